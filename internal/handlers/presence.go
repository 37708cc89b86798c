package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// PresenceResponse represents a user's connection-level presence.
type PresenceResponse struct {
	UserID   string `json:"user_id"`
	Online   bool   `json:"online"`
	Devices  int    `json:"devices"`
	LastSeen string `json:"last_seen,omitempty"`
}

// Presence handles user presence lookup from the live registry.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "user ID is required")
		return
	}

	resp := PresenceResponse{
		UserID:  userID,
		Online:  h.reg.IsOnline(userID),
		Devices: h.reg.DeviceCount(userID),
	}
	if last, ok := h.reg.LastSeen(userID); ok {
		resp.LastSeen = last.UTC().Format(time.RFC3339)
	}

	h.JSON(w, http.StatusOK, resp)
}
