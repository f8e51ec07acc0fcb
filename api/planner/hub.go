// Package planner serves route planner sessions over WebSocket. Each
// connection drives its own search modal: place inputs with debounced
// geocoding, the vehicle category and the route search hand-off.
package planner

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/services/search"
	routeplanner "github.com/killallgit/route-planner-api/internal/services/planner"
	"github.com/killallgit/route-planner-api/pkg/config"
)

const (
	defaultPingInterval   = 30 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultWriteWait      = 10 * time.Second
	defaultMaxMessageSize = 8192
	sendBufferSize        = 64
)

// Settings holds the connection and search tuning of a session
type Settings struct {
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
	Debounce        time.Duration
	MinQueryLength  int
}

// SettingsFromConfig reads session settings, falling back to defaults for
// anything unset
func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{
		PingInterval:    defaultPingInterval,
		PongWait:        defaultPongWait,
		WriteWait:       defaultWriteWait,
		MaxMessageSize:  defaultMaxMessageSize,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if cfg == nil {
		return s
	}

	ws := cfg.WebSocket
	if ws.PingInterval > 0 {
		s.PingInterval = ws.PingInterval
	}
	if ws.PongWait > 0 {
		s.PongWait = ws.PongWait
	}
	if ws.WriteWait > 0 {
		s.WriteWait = ws.WriteWait
	}
	if ws.MaxMessageSize > 0 {
		s.MaxMessageSize = ws.MaxMessageSize
	}
	if ws.ReadBufferSize > 0 {
		s.ReadBufferSize = ws.ReadBufferSize
	}
	if ws.WriteBufferSize > 0 {
		s.WriteBufferSize = ws.WriteBufferSize
	}
	// pings must arrive before the peer gives up waiting for a pong
	if s.PingInterval >= s.PongWait {
		s.PingInterval = s.PongWait * 9 / 10
	}

	if cfg.Security.EnableCORS {
		s.AllowedOrigins = cfg.Security.CORSOrigins
	}
	s.Debounce = cfg.Search.Debounce
	s.MinQueryLength = cfg.Search.MinQueryLength
	return s
}

func (s Settings) searchOptions(log *slog.Logger) []search.Option {
	opts := []search.Option{search.WithLogger(log)}
	if s.Debounce > 0 {
		opts = append(opts, search.WithDebounce(s.Debounce))
	}
	if s.MinQueryLength > 0 {
		opts = append(opts, search.WithMinQueryLength(s.MinQueryLength))
	}
	return opts
}

// checkOrigin allows same-origin and non-browser clients, plus the
// configured origins. An empty list or "*" allows everything.
func (s Settings) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.AllowedOrigins) == 0 || slices.Contains(s.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.AllowedOrigins, origin)
}

// Hub tracks open planner sessions so they can be closed on shutdown
type Hub struct {
	deps     *types.Dependencies
	settings Settings
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	wg       sync.WaitGroup
}

// NewHub creates a hub for the given dependencies
func NewHub(deps *types.Dependencies) *Hub {
	settings := SettingsFromConfig(deps.Config)
	return &Hub{
		deps:     deps,
		settings: settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  settings.ReadBufferSize,
			WriteBufferSize: settings.WriteBufferSize,
			CheckOrigin:     settings.checkOrigin,
		},
		log:      deps.Log().With("component", "planner"),
		sessions: make(map[string]*Session),
	}
}

// Count returns the number of open sessions
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// ServeWS upgrades the request and runs a planner session until the
// client disconnects
// @Summary      Planner session
// @Description  Upgrades to a WebSocket carrying {type, data} messages. Client messages: open, close,
// @Description  query{field,text}, select{field,id}, commit{field}, category{value}, search, toggle_results.
// @Description  Server messages: state{field,state}, selection{selection}, modal{visible,showResults},
// @Description  warning{message}, error{field,message}, route_search{id}.
// @Tags         planner
// @Success      101 "Switching protocols"
// @Failure      503 {object} types.ErrorResponse "Planner unavailable"
// @Router       /api/v1/planner/ws [get]
func (h *Hub) ServeWS(c *gin.Context) {
	if h.deps.Geocoder == nil || h.deps.RouteService == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Status:  types.StatusError,
			Message: "Planner is not available",
			Error:   "SERVICE_DOWN",
		})
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Status:  types.StatusError,
			Message: "Server is shutting down",
			Error:   "SERVICE_DOWN",
		})
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.log.Warn("websocket upgrade failed", "error", err, "client_ip", c.ClientIP())
		return
	}

	s := newSession(uuid.NewString(), conn, h.settings, h.log)
	s.modal = routeplanner.New(h.deps.Geocoder, h.deps.RouteService,
		routeplanner.WithLogger(s.log),
		routeplanner.WithInputOptions(h.settings.searchOptions(s.log)...),
		routeplanner.OnViewChange(s.onView),
		routeplanner.OnInputState(s.onInputState),
		routeplanner.OnInputError(s.onInputError),
		routeplanner.OnSelectionChange(s.onSelection),
		routeplanner.OnWarning(s.onWarning),
	)

	if !h.register(s) {
		s.modal.Shutdown()
		_ = conn.Close()
		return
	}
	defer h.unregister(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.run(ctx)
}

func (h *Hub) register(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s.ID] = s
	s.log.Info("planner session opened", "sessions", len(h.sessions))
	return true
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.ID)
	n := len(h.sessions)
	h.mu.Unlock()
	s.log.Info("planner session closed", "sessions", n)
}

// Close disconnects every session and waits for them to finish or for ctx
// to expire. New connections are refused afterwards.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.closeConn(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
