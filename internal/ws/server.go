package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Dry1ceD7/AAELink-sub002/internal/hub"
	"github.com/Dry1ceD7/AAELink-sub002/internal/metrics"
)

// Options are the transport knobs for a connection.
type Options struct {
	SendQueueSize   int
	ReadLimit       int64
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxConnsPerUser int // 0 = unlimited
}

// DefaultOptions mirror common gorilla/websocket deployments.
func DefaultOptions() Options {
	return Options{
		SendQueueSize: 256,
		ReadLimit:     64 * 1024,
		PingInterval:  54 * time.Second,
		PongTimeout:   60 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}

// IdentityResolver supplies the trusted user identity for an upgrade request.
// Authentication itself happened upstream; by the time a request reaches this
// server the identity is assumed verified.
type IdentityResolver func(r *http.Request) (string, error)

// HeaderIdentity resolves the identity from the X-User-ID header, falling back
// to the "user" query parameter for browser clients.
func HeaderIdentity(r *http.Request) (string, error) {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id, nil
	}
	if id := r.URL.Query().Get("user"); id != "" {
		return id, nil
	}
	return "", errors.New("ws: missing user identity")
}

// Server upgrades HTTP requests and hands each connection to the hub.
type Server struct {
	reg      *hub.Registry
	router   *hub.Router
	resolve  IdentityResolver
	opts     Options
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer creates the websocket endpoint handler.
func NewServer(reg *hub.Registry, router *hub.Router, resolve IdentityResolver, opts Options, log zerolog.Logger) *Server {
	return &Server{
		reg:     reg,
		router:  router,
		resolve: resolve,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the fronting proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Handle is the GET /ws endpoint.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolve(r)
	if err != nil {
		http.Error(w, `{"error":"identity required"}`, http.StatusUnauthorized)
		return
	}
	if s.opts.MaxConnsPerUser > 0 && s.reg.DeviceCount(userID) >= s.opts.MaxConnsPerUser {
		http.Error(w, `{"error":"too many connections"}`, http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(conn, s.router, s.opts, s.log)
	client.userID = userID
	client.connID = s.reg.Register(userID, client)

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	s.log.Info().
		Str("conn_id", client.connID).
		Str("user_id", userID).
		Str("remote_addr", r.RemoteAddr).
		Msg("connection registered")

	go client.writePump()
	go client.readPump()
}
