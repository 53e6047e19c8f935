package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/services"
	"github.com/WellingtonFilho7/lumine-sync/internal/sync"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "agent.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	client := api.New("http://127.0.0.1:1", "", "dev-test", "test")
	engine := sync.New(store, client, sync.Config{Probe: func() bool { return false }})
	cfg := services.Config{}
	return Router(Deps{
		Store:    store,
		Engine:   engine,
		Children: services.NewChildren(store, engine, client, cfg),
		Records:  services.NewRecords(store, engine, client, cfg),
	})
}

func TestRouterHealthz(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterStatus(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st["status"] != "idle" {
		t.Errorf("status = %v, want idle", st["status"])
	}
}

func TestRouterAddAndListChildren(t *testing.T) {
	r := testRouter(t)

	body := strings.NewReader(`{"name":"Teste","enrollmentStatus":"em_triagem"}`)
	req := httptest.NewRequest(http.MethodPost, "/children", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /children = %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/children", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var resp struct {
		Children []map[string]any `json:"children"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Children) != 1 || resp.Children[0]["name"] != "Teste" {
		t.Errorf("children = %+v", resp.Children)
	}
}
