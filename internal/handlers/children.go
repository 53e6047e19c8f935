package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/services"
)

// GET /children
func ListChildren(store *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		children, err := store.Children()
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "children": children})
	}
}

// POST /children
func AddChild(svc *services.Children) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		child, err := svc.Add(r.Context(), raw)
		if err != nil {
			writeErr(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "child": child})
	}
}

// PATCH /children/{id}
func UpdateChild(svc *services.Children) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(r)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		child, err := svc.Update(r.Context(), chi.URLParam(r, "id"), raw)
		if err != nil {
			writeErr(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "child": child})
	}
}

// DELETE /children/{id}
func DeleteChild(svc *services.Children) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeErr(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrSyncRejected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
