package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// HistoryMessage represents a message in the history response.
type HistoryMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Body      string `json:"body"`
	ParentID  string `json:"pid,omitempty"`
	Timestamp int64  `json:"ts"`
}

// HistoryResponse represents the channel history response.
type HistoryResponse struct {
	ChannelID string           `json:"channel_id"`
	Messages  []HistoryMessage `json:"messages"`
	HasMore   bool             `json:"has_more"`
}

// ChannelHistory returns recent messages from the Redis sink, newest first.
// Clients use it to backfill after connecting; live traffic arrives over the
// websocket.
func (h *Handler) ChannelHistory(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	if channelID == "" {
		h.Error(w, http.StatusBadRequest, "channel ID is required")
		return
	}
	if h.redis == nil {
		h.Error(w, http.StatusServiceUnavailable, "history not configured")
		return
	}

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}
	var before int64
	if b, err := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64); err == nil && b > 0 {
		before = b
	}

	msgs, err := h.redis.ChannelMessages(r.Context(), channelID, limit+1, before)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "history lookup failed")
		return
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}

	out := make([]HistoryMessage, len(msgs))
	for i, m := range msgs {
		out[i] = HistoryMessage{
			ID:        m.ID,
			From:      m.FromID,
			Body:      m.Body,
			ParentID:  m.ParentID,
			Timestamp: m.Timestamp,
		}
	}

	h.JSON(w, http.StatusOK, HistoryResponse{
		ChannelID: channelID,
		Messages:  out,
		HasMore:   hasMore,
	})
}
