// Package api serves a viewer session over HTTP and websocket so an external
// front end can render both documents and ask for line correspondences.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/xrefview/internal/logging"
	"github.com/FocuswithJustin/xrefview/internal/server"
	"github.com/FocuswithJustin/xrefview/internal/viewer"
)

// Server serves one session.
type Server struct {
	cfg      Config
	session  *viewer.Session
	hub      *Hub
	upgrader websocket.Upgrader
	started  time.Time
}

// NewServer creates a server for session. The hub must be started with
// Hub().Run before websocket clients connect; Start does this.
func NewServer(cfg Config, session *viewer.Session) *Server {
	cors := server.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}
	return &Server{
		cfg:     cfg,
		session: session,
		hub:     NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || cors.Allows(origin)
			},
		},
		started: time.Now(),
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()
	handler = server.SecurityHeaders(server.APICSPConfig(), handler)
	handler = server.CORSMiddleware(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	return logging.CombinedMiddleware(handler)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/documents/{side}", s.handleDocument)
	mux.HandleFunc("GET /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("PUT /api/crossref", s.handleCrossRef)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return mux
}

// Start serves session on cfg.Addr() until ctx is cancelled, then shuts
// down gracefully.
func Start(ctx context.Context, cfg Config, session *viewer.Session) error {
	s := NewServer(cfg, session)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logging.GetLogger().Handler(), slog.LevelError),
	}

	if len(cfg.AllowedOrigins) == 0 {
		logging.Warn("allowing all origins (*)", "recommendation", "set --allowed-origin for shared hosts")
	}
	logging.ServerStartup("query_api", "http", srv.Addr,
		"websocket_protocol", "ws",
		"session_id", session.ID())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopHub()
		logging.Info("server_shutdown", "addr", srv.Addr)
		return srv.Shutdown(shutdownCtx)
	}
}
