package diag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FernandoPintoL/socket-rentals/internal/bridge"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/database"
	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/logging"
	"github.com/FernandoPintoL/socket-rentals/internal/journal"
	"github.com/FernandoPintoL/socket-rentals/internal/wsclient"
)

const (
	// gracefulShutdownTimeout bounds in-flight requests during Close.
	gracefulShutdownTimeout = 5 * time.Second

	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second

	defaultEventsLimit = 50
)

// SnapshotSource exposes the bridge's observable state.
type SnapshotSource interface {
	Snapshot() bridge.Snapshot
}

// TransportStats exposes the WebSocket client's statistics.
type TransportStats interface {
	Stats() wsclient.Stats
}

// JournalReader is the read side of the journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	CountByKind(ctx context.Context) (map[journal.Kind]int, error)
}

// SchemaSource reports which journal migrations have been applied.
type SchemaSource interface {
	GetMigrationStatus(ctx context.Context) ([]database.MigrationRecord, []database.Migration, error)
}

// Deps holds the dependencies of the diagnostics server.
type Deps struct {
	Config    config.DiagConfig
	Logger    *logging.Logger
	Session   SnapshotSource // required
	Transport TransportStats // required
	Journal   JournalReader  // optional
	Schema    SchemaSource   // optional
	Version   string
}

// Server is the diagnostics HTTP server.
type Server struct {
	cfg       config.DiagConfig
	logger    *logging.Logger
	session   SnapshotSource
	transport TransportStats
	journal   JournalReader
	schema    SchemaSource
	version   string
	started   time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a diagnostics server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("bridge session is required")
	}
	if deps.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		session:   deps.Session,
		transport: deps.Transport,
		journal:   deps.Journal,
		schema:    deps.Schema,
		version:   deps.Version,
		started:   time.Now(),
	}, nil
}

// Handler returns the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/events", s.handleEvents)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such route")
	})

	return r
}

// Start binds the listener and serves in the background.
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("diag listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("diag server error", "error", err)
		}
	}()

	s.logger.Info("diag server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down diag server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.transport.Stats().Connected {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	Version   string               `json:"version"`
	Uptime    string               `json:"uptime"`
	Bridge    bridge.Snapshot      `json:"bridge"`
	Transport transportStatus      `json:"transport"`
	Journal   map[journal.Kind]int `json:"journal,omitempty"`
	Schema    *schemaStatus        `json:"schema,omitempty"`
}

type schemaStatus struct {
	Version string `json:"version"`
	Applied int    `json:"applied"`
	Pending int    `json:"pending"`
}

type transportStatus struct {
	URL             string    `json:"url"`
	Connected       bool      `json:"connected"`
	MessagesTx      uint64    `json:"messages_tx"`
	MessagesRx      uint64    `json:"messages_rx"`
	ConnectsTotal   uint64    `json:"connects_total"`
	ReconnectsTotal uint64    `json:"reconnects_total"`
	ErrorsTotal     uint64    `json:"errors_total"`
	LastActivity    time.Time `json:"last_activity,omitzero"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.transport.Stats()
	resp := statusResponse{
		Version: s.version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Bridge:  s.session.Snapshot(),
		Transport: transportStatus{
			URL:             st.URL,
			Connected:       st.Connected,
			MessagesTx:      st.MessagesTx,
			MessagesRx:      st.MessagesRx,
			ConnectsTotal:   st.ConnectsTotal,
			ReconnectsTotal: st.ReconnectsTotal,
			ErrorsTotal:     st.ErrorsTotal,
			LastActivity:    st.LastActivity,
		},
	}

	if s.journal != nil {
		counts, err := s.journal.CountByKind(r.Context())
		if err != nil {
			s.logger.Warn("journal counts unavailable", "error", err)
		} else {
			resp.Journal = counts
		}
	}

	if s.schema != nil {
		applied, pending, err := s.schema.GetMigrationStatus(r.Context())
		if err != nil {
			s.logger.Warn("schema status unavailable", "error", err)
		} else {
			resp.Schema = &schemaStatus{Applied: len(applied), Pending: len(pending)}
			if len(applied) > 0 {
				resp.Schema.Version = applied[len(applied)-1].Version
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "journal is disabled")
		return
	}

	limit := defaultEventsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading journal", "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "journal unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": entries,
		"count":  len(entries),
	})
}
