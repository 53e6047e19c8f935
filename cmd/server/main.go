package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/services"
	"github.com/WellingtonFilho7/lumine-sync/internal/sync"
	"github.com/WellingtonFilho7/lumine-sync/internal/web"
)

const version = "1.2.0"

func main() {
	store, err := db.Open(getEnv("LUMINE_DB", "lumine.db"))
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	// Device id is minted once and persists across restarts.
	deviceID := store.GetMeta(db.MetaDeviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
		if err := store.SetMeta(db.MetaDeviceID, deviceID); err != nil {
			log.Fatalf("persist device id: %v", err)
		}
	}

	syncURL := getEnv("LUMINE_SYNC_URL", "")
	remote := api.New(syncURL, os.Getenv("LUMINE_SYNC_TOKEN"), deviceID, version)

	engine := sync.New(store, remote, sync.Config{
		Probe:        probeFor(syncURL),
		SyncDelay:    getDuration("SYNC_DELAY", 4*time.Second),
		SyncInterval: getDuration("SYNC_INTERVAL", 45*time.Second),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	engine.Start(ctx)

	cfg := services.Config{OnlineOnly: os.Getenv("ONLINE_ONLY") == "1"}
	r := web.Router(web.Deps{
		Store:    store,
		Engine:   engine,
		Children: services.NewChildren(store, engine, remote, cfg),
		Records:  services.NewRecords(store, engine, remote, cfg),
	})

	addr := getEnv("ADDR", ":8090")
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Lumine sync agent listening on %s (device %s)", addr, deviceID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// probeFor builds the connectivity check: a quick TCP dial of the sync
// host. With no sync URL configured the agent runs permanently offline.
func probeFor(syncURL string) func() bool {
	if syncURL == "" {
		return func() bool { return false }
	}
	u, err := url.Parse(syncURL)
	if err != nil || u.Host == "" {
		return func() bool { return false }
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	return func() bool {
		conn, err := net.DialTimeout("tcp", host, 2*time.Second)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
