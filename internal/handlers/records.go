package handlers

import (
	"net/http"

	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/services"
)

// GET /records
func ListRecords(store *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := store.Records()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "records": recs})
	}
}

// POST /records: upsert by (child, calendar day).
func AddRecord(svc *services.Records) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if _, ok := raw["date"]; !ok {
			raw["date"] = isoToday()
		}
		rec, err := svc.Add(r.Context(), raw)
		if err != nil {
			writeErr(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "record": rec})
	}
}
