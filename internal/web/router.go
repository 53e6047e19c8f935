package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/handlers"
	"github.com/WellingtonFilho7/lumine-sync/internal/services"
	"github.com/WellingtonFilho7/lumine-sync/internal/sync"
)

// Deps is everything the local API needs; wired in cmd/server.
type Deps struct {
	Store    *db.DB
	Engine   *sync.Engine
	Children *services.Children
	Records  *services.Records
}

func Router(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.Health)

	// Entities
	r.Get("/children", handlers.ListChildren(d.Store))
	r.Post("/children", handlers.AddChild(d.Children))
	r.Patch("/children/{id}", handlers.UpdateChild(d.Children))
	r.Delete("/children/{id}", handlers.DeleteChild(d.Children))
	r.Get("/records", handlers.ListRecords(d.Store))
	r.Post("/records", handlers.AddRecord(d.Records))

	// Sync control
	r.Get("/status", handlers.SyncStatus(d.Engine))
	r.Post("/sync", handlers.SyncNow(d.Engine))
	r.Post("/download", handlers.DownloadNow(d.Engine))
	r.Post("/sync/dismiss", handlers.DismissNotice(d.Engine))
	r.Post("/review-mode", handlers.ReviewMode(d.Engine))

	// Dataset backup/restore
	r.Get("/export", handlers.Export(d.Store))
	r.Post("/import", handlers.Import(d.Store, d.Engine))

	// QR image for printed child cards
	r.Get("/qr/{id}.png", handlers.QR(d.Store))

	return r
}
