package handlers

import (
	"net/http"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	LiveConnections int   `json:"live_connections"`
	OnlineUsers     int   `json:"online_users"`
	ActiveChannels  int   `json:"active_channels"`
	TotalChannels   int64 `json:"total_channels"`
	TotalMessages   int64 `json:"total_messages"`
}

// Stats returns live hub counters plus catalog aggregates.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalChannels, err := h.ds.CountChannels(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count channels")
		return
	}

	totalMessages, err := h.ds.SumMessageCount(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to sum messages")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		LiveConnections: h.reg.ConnCount(),
		OnlineUsers:     h.reg.UserCount(),
		ActiveChannels:  h.idx.ChannelCount(),
		TotalChannels:   totalChannels,
		TotalMessages:   totalMessages,
	})
}
