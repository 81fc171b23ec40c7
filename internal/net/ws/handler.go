// Package ws serves battle seats and spectators over websockets.
package ws

import (
	"errors"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"skirmish/internal/host"
	"skirmish/internal/telemetry"
)

// HandlerConfig tunes the websocket endpoint.
type HandlerConfig struct {
	Logger telemetry.Logger
	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration
	// CheckOrigin overrides the default allow-all origin check.
	CheckOrigin func(r *nethttp.Request) bool
}

// Handler upgrades requests into battle sessions. A seat token in the
// "token" query parameter or a bearer header joins as a player; a "battle"
// parameter alone joins as a spectator.
type Handler struct {
	manager      *host.Manager
	logger       telemetry.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

// NewHandler constructs a websocket handler for manager.
func NewHandler(manager *host.Manager, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *nethttp.Request) bool {
			return true
		}
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Handler{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		writeTimeout: writeTimeout,
	}
}

func bearer(r *nethttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	var (
		room *host.Room
		seat *host.Seat
		err  error
	)
	if token := bearer(r); token != "" {
		room, seat, err = h.manager.Authorize(token)
		if err != nil {
			nethttp.Error(w, "invalid seat token", nethttp.StatusUnauthorized)
			return
		}
		if err := seat.Attach(); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusConflict)
			return
		}
	} else {
		id := r.URL.Query().Get("battle")
		if id == "" {
			nethttp.Error(w, "missing token or battle", nethttp.StatusBadRequest)
			return
		}
		room, err = h.manager.Room(id)
		if err != nil {
			status := nethttp.StatusInternalServerError
			if errors.Is(err, host.ErrUnknownBattle) {
				status = nethttp.StatusNotFound
			}
			nethttp.Error(w, err.Error(), status)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for battle %s: %v", room.ID(), err)
		if seat != nil {
			seat.Detach()
		}
		return
	}
	s := newSession(conn, room, seat, h.logger, h.writeTimeout)
	s.serve(r.Context())
}
