package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Dry1ceD7/AAELink-sub002/internal/hub"
	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

// fakeCatalog is an in-memory DataStore for handler tests.
type fakeCatalog struct {
	channels []models.Channel
}

func (f *fakeCatalog) Close()                         {}
func (f *fakeCatalog) Ping(ctx context.Context) error { return nil }

func (f *fakeCatalog) CreateChannel(ctx context.Context, name string, createdBy *uuid.UUID) (*models.Channel, error) {
	ch := models.Channel{
		ID:           uuid.New(),
		Name:         name,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
		LastActiveAt: time.Now(),
	}
	f.channels = append(f.channels, ch)
	return &ch, nil
}

func (f *fakeCatalog) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	for _, ch := range f.channels {
		if ch.ID == id {
			return &ch, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) GetChannelByName(ctx context.Context, name string) (*models.Channel, error) {
	for _, ch := range f.channels {
		if ch.Name == name {
			return &ch, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ListChannels(ctx context.Context, limit, offset int) ([]models.Channel, int, error) {
	if offset >= len(f.channels) {
		return nil, len(f.channels), nil
	}
	end := offset + limit
	if end > len(f.channels) {
		end = len(f.channels)
	}
	return f.channels[offset:end], len(f.channels), nil
}

func (f *fakeCatalog) UpdateChannelActivity(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeCatalog) IncrementMessageCount(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeCatalog) CountChannels(ctx context.Context) (int64, error) {
	return int64(len(f.channels)), nil
}

func (f *fakeCatalog) SumMessageCount(ctx context.Context) (int64, error) {
	var total int64
	for _, ch := range f.channels {
		total += ch.MessageCount
	}
	return total, nil
}

func newTestHandler(ds *fakeCatalog) (*Handler, *hub.Registry, *hub.Membership) {
	reg := hub.NewRegistry()
	idx := hub.NewMembership()
	return NewHandler(ds, nil, reg, idx), reg, idx
}

func TestCreateChannel(t *testing.T) {
	h, _, _ := newTestHandler(&fakeCatalog{})

	req := httptest.NewRequest("POST", "/channels", strings.NewReader(`{"name":"general"}`))
	w := httptest.NewRecorder()
	h.CreateChannel(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp CreateChannelResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Name != "general" || resp.ID == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateChannelValidation(t *testing.T) {
	h, _, _ := newTestHandler(&fakeCatalog{})

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"empty name", `{"name":"  "}`, http.StatusBadRequest},
		{"bad chars", `{"name":"no spaces!"}`, http.StatusBadRequest},
		{"too long", `{"name":"` + strings.Repeat("x", 51) + `"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/channels", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.CreateChannel(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestCreateChannelConflict(t *testing.T) {
	ds := &fakeCatalog{}
	ds.CreateChannel(context.Background(), "general", nil)
	h, _, _ := newTestHandler(ds)

	req := httptest.NewRequest("POST", "/channels", strings.NewReader(`{"name":"general"}`))
	w := httptest.NewRecorder()
	h.CreateChannel(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestListChannelsWithLiveMembers(t *testing.T) {
	ds := &fakeCatalog{}
	ds.CreateChannel(context.Background(), "general", nil)
	h, _, idx := newTestHandler(ds)
	idx.Join("general", "alice")
	idx.Join("general", "bob")

	req := httptest.NewRequest("GET", "/channels", nil)
	w := httptest.NewRecorder()
	h.ListChannels(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp ChannelListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Channels) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Channels[0].LiveMembers != 2 {
		t.Errorf("live_members = %d, want 2", resp.Channels[0].LiveMembers)
	}
}

func TestListChannelsLastActiveIsUTC(t *testing.T) {
	ds := &fakeCatalog{}
	ds.CreateChannel(context.Background(), "general", nil)
	// A catalog timestamp in a non-UTC zone must not be mislabeled as Z.
	zone := time.FixedZone("ICT", 7*3600)
	instant := time.Date(2026, 8, 28, 17, 30, 0, 0, zone)
	ds.channels[0].LastActiveAt = instant
	h, _, _ := newTestHandler(ds)

	req := httptest.NewRequest("GET", "/channels", nil)
	w := httptest.NewRecorder()
	h.ListChannels(w, req)

	var resp ChannelListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	got, err := time.Parse(time.RFC3339, resp.Channels[0].LastActive)
	if err != nil {
		t.Fatalf("last_active %q is not RFC 3339: %v", resp.Channels[0].LastActive, err)
	}
	if !got.Equal(instant) {
		t.Errorf("last_active = %v, want the same instant as %v", got, instant)
	}
	if !strings.HasSuffix(resp.Channels[0].LastActive, "Z") {
		t.Errorf("last_active %q not rendered in UTC", resp.Channels[0].LastActive)
	}
}

func TestChannelMembers(t *testing.T) {
	h, _, idx := newTestHandler(&fakeCatalog{})
	idx.Join("general", "alice")

	r := chi.NewRouter()
	r.Get("/channels/{id}/members", h.ChannelMembers)

	req := httptest.NewRequest("GET", "/channels/general/members", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp MembersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Members[0] != "alice" {
		t.Errorf("response = %+v", resp)
	}
}

func TestPresenceLookup(t *testing.T) {
	h, reg, _ := newTestHandler(&fakeCatalog{})
	reg.Register("alice", nil)

	r := chi.NewRouter()
	r.Get("/presence/{id}", h.Presence)

	req := httptest.NewRequest("GET", "/presence/alice", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp PresenceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Online || resp.Devices != 1 {
		t.Errorf("response = %+v", resp)
	}

	req = httptest.NewRequest("GET", "/presence/nobody", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Online || resp.Devices != 0 {
		t.Errorf("offline response = %+v", resp)
	}
}

func TestStats(t *testing.T) {
	ds := &fakeCatalog{}
	ds.CreateChannel(context.Background(), "general", nil)
	h, reg, idx := newTestHandler(ds)
	reg.Register("alice", nil)
	idx.Join("general", "alice")

	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	h.Stats(w, req)

	var resp StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.LiveConnections != 1 || resp.OnlineUsers != 1 || resp.ActiveChannels != 1 || resp.TotalChannels != 1 {
		t.Errorf("response = %+v", resp)
	}
}
