package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Dry1ceD7/AAELink-sub002/internal/hub"
	"github.com/Dry1ceD7/AAELink-sub002/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	ds    store.DataStore
	redis *store.RedisStore
	reg   *hub.Registry
	idx   *hub.Membership
}

// NewHandler creates a new Handler with the given stores and hub structures.
func NewHandler(ds store.DataStore, redis *store.RedisStore, reg *hub.Registry, idx *hub.Membership) *Handler {
	return &Handler{ds: ds, redis: redis, reg: reg, idx: idx}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
