package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Router returns the observability routes: /metrics and /health.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         "healthy",
			"service":        "planmcp",
			"uptime_seconds": int(time.Since(m.ServerStartTime).Seconds()),
		})
	})
	return r
}

// Server serves the observability routes on a side HTTP listener.
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

// NewServer creates an HTTP server for addr (e.g. "127.0.0.1:9464").
func NewServer(addr string, m *Metrics, log zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           m.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("metrics endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics endpoint stopped")
		}
	}()
}

// Shutdown stops the server, waiting at most five seconds.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn().Err(err).Msg("metrics endpoint shutdown")
	}
}
