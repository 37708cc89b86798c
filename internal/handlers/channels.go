package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Channel name validation: alphanumeric, hyphens, underscores, 1-50 chars
var channelNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// ChannelInfo represents a channel in the list response.
type ChannelInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MessageCount int64  `json:"message_count"`
	LiveMembers  int    `json:"live_members"`
	LastActive   string `json:"last_active"`
}

// ChannelListResponse represents the channels list response.
type ChannelListResponse struct {
	Channels []ChannelInfo `json:"channels"`
	Total    int           `json:"total"`
}

// CreateChannelRequest represents the channel creation request.
type CreateChannelRequest struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by,omitempty"`
}

// CreateChannelResponse represents the channel creation response.
type CreateChannelResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MembersResponse represents the live member set of a channel.
type MembersResponse struct {
	ChannelID string   `json:"channel_id"`
	Members   []string `json:"members"`
	Count     int      `json:"count"`
}

// ListChannels handles listing channels from the catalog, annotated with the
// hub's live member counts.
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	// Parse query params
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 20
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	chans, total, err := h.ds.ListChannels(r.Context(), limit, offset)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	// Build response
	channels := make([]ChannelInfo, len(chans))
	for i, ch := range chans {
		channels[i] = ChannelInfo{
			ID:           ch.ID.String(),
			Name:         ch.Name,
			MessageCount: ch.MessageCount,
			LiveMembers:  h.idx.MemberCount(ch.Name),
			LastActive:   ch.LastActiveAt.UTC().Format(time.RFC3339),
		}
	}

	h.JSON(w, http.StatusOK, ChannelListResponse{
		Channels: channels,
		Total:    total,
	})
}

// CreateChannel handles channel creation.
func (h *Handler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var req CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Validate name
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if !channelNameRegex.MatchString(req.Name) {
		h.Error(w, http.StatusBadRequest, "name must be 1-50 characters, alphanumeric with hyphens and underscores only")
		return
	}

	if existing, err := h.ds.GetChannelByName(r.Context(), req.Name); err == nil && existing != nil {
		h.Error(w, http.StatusConflict, "channel already exists")
		return
	}

	var createdBy *uuid.UUID
	if req.CreatedBy != "" {
		if id, err := uuid.Parse(req.CreatedBy); err == nil {
			createdBy = &id
		}
	}

	ch, err := h.ds.CreateChannel(r.Context(), req.Name, createdBy)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create channel")
		return
	}

	h.JSON(w, http.StatusCreated, CreateChannelResponse{
		ID:   ch.ID.String(),
		Name: ch.Name,
	})
}

// ChannelMembers returns the live member set of a channel from the hub.
func (h *Handler) ChannelMembers(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	if channelID == "" {
		h.Error(w, http.StatusBadRequest, "channel ID is required")
		return
	}

	members := h.idx.Members(channelID)
	h.JSON(w, http.StatusOK, MembersResponse{
		ChannelID: channelID,
		Members:   members,
		Count:     len(members),
	})
}
