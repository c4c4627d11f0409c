package viewer

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server is the viewer HTTP server plus its websocket hub
type Server struct {
	hub    *Hub
	server *http.Server
}

// NewServer builds the viewer server on addr
func NewServer(addr string, session Session, config HubConfig) *Server {
	hub := NewHub(session, config)
	return &Server{
		hub: hub,
		server: &http.Server{
			Addr:              addr,
			Handler:           newRouter(session, hub),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func newRouter(session Session, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	NewHandler(session).RegisterRoutes(mux)
	mux.HandleFunc("/ws/snapshot", hub.HandleConnection)
	setupHealthCheck(mux, session, hub)

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

func setupHealthCheck(mux *http.ServeMux, session Session, hub *Hub) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"connected":  session.Connected(),
			"ui_clients": hub.Count(),
		})
	})
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx ends, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("viewer server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("viewer server shutdown failed")
		return err
	}
	log.Info().Msg("viewer server stopped")
	return nil
}
