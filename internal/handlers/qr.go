package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/WellingtonFilho7/lumine-sync/internal/db"
)

// GET /qr/{id}.png: printable card QR for a child; scanning opens the
// day's attendance form for that child in the site UI.
func QR(store *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.NotFound(w, r)
			return
		}
		// ensure the child exists
		child, err := store.GetChild(id)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		url := "http://" + r.Host + "/records/new?childInternalId=" + child.ID

		png, err := qrcode.Encode(url, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "failed to generate qr", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
