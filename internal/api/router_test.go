package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Dry1ceD7/AAELink-sub002/internal/config"
	"github.com/Dry1ceD7/AAELink-sub002/internal/hub"
	"github.com/Dry1ceD7/AAELink-sub002/internal/ws"
)

func newTestRouter() http.Handler {
	log := zerolog.Nop()
	reg := hub.NewRegistry()
	idx := hub.NewMembership()
	engine := hub.NewEngine(reg, idx, log)
	pres := hub.NewPresence(engine, log)
	router := hub.NewRouter(reg, idx, pres, engine, nil, log)
	engine.SetCleanup(router.HandleDisconnect)
	wsServer := ws.NewServer(reg, router, ws.HeaderIdentity, ws.DefaultOptions(), log)

	return NewRouter(log, &config.Config{}, nil, nil, wsServer, reg, idx)
}

func TestRouterHealthDegradedWithoutStores(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRouterWSRequiresIdentity(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/ws", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
