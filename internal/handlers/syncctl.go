package handlers

import (
	"net/http"

	"github.com/WellingtonFilho7/lumine-sync/internal/sync"
)

// GET /status: current sync state for the UI badge/modal.
func SyncStatus(engine *sync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, engine.Snapshot())
	}
}

// POST /sync: user-initiated sync of the full local dataset.
func SyncNow(engine *sync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok := engine.SyncWithServer(r.Context(), nil, sync.ModeManual)
		writeJSON(w, http.StatusOK, map[string]any{"success": ok, "state": engine.Snapshot()})
	}
}

// POST /download: conflict resolution where server state wins.
func DownloadNow(engine *sync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok := engine.Download(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"success": ok, "state": engine.Snapshot()})
	}
}

// POST /sync/dismiss: clear the current notice or conflict prompt.
func DismissNotice(engine *sync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.Dismiss()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": engine.Snapshot()})
	}
}

// POST /review-mode {"on": bool}: toggle suppression of automatic push.
func ReviewMode(engine *sync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		on, _ := raw["on"].(bool)
		engine.SetReviewMode(on)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "reviewMode": on})
	}
}
