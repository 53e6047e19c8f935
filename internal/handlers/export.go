package handlers

import (
	"net/http"

	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/normalize"
	"github.com/WellingtonFilho7/lumine-sync/internal/sync"
)

// GET /export: full local dataset as JSON, for backup/transfer.
func Export(store *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		children, err := store.Children()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		recs, err := store.Records()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="lumine-export-`+isoToday()+`.json"`)
		writeJSON(w, http.StatusOK, map[string]any{
			"exportedAt": isoToday(),
			"children":   children,
			"records":    recs,
		})
	}
}

// POST /import: replace the local dataset from an exported JSON file.
// Entities are normalized on the way in; the result is queued for sync.
func Import(store *db.DB, engine *sync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		children, _ := normalize.Children(raw["children"])
		recs, _ := normalize.Records(raw["records"])
		if err := store.ReplaceAll(children, recs); err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		engine.AddPending(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"children": len(children),
			"records":  len(recs),
		})
	}
}
