// Package status serves health, Prometheus metrics and a read-only view of
// active cooldowns over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/keshon/cmdguard/internal/cooldown"
)

// Snapshotter is the part of cooldown.Manager the server reads.
type Snapshotter interface {
	Snapshot() []cooldown.Window
}

// Server is the status HTTP server.
type Server struct {
	router     *chi.Mux
	addr       string
	src        Snapshotter
	log        zerolog.Logger
	driver     string
	storeStats func() any
}

type Option func(*Server)

// WithStore adds the durable store's driver, and its stats when stats is
// non-nil, to /healthz.
func WithStore(driver string, stats func() any) Option {
	return func(s *Server) {
		s.driver = driver
		s.storeStats = stats
	}
}

// New builds the router. gatherer may be nil, in which case /metrics is not mounted.
func New(addr string, src Snapshotter, gatherer prometheus.Gatherer, log zerolog.Logger, opts ...Option) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{router: r, addr: addr, src: src, log: log}
	for _, opt := range opts {
		opt(s)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/cooldowns", s.handleCooldowns)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("Starting status server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down status server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.driver != "" {
		store := map[string]any{"driver": s.driver}
		if s.storeStats != nil {
			store["stats"] = s.storeStats()
		}
		body["store"] = store
	}
	writeJSON(w, http.StatusOK, body)
}

type windowView struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
	Remaining string    `json:"remaining"`
	Durable   bool      `json:"durable"`
}

// handleCooldowns lists active windows; ?prefix= filters by key prefix.
func (s *Server) handleCooldowns(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	out := []windowView{}
	for _, win := range s.src.Snapshot() {
		if prefix != "" && !strings.HasPrefix(win.Key, prefix) {
			continue
		}
		out = append(out, windowView{
			Key:       win.Key,
			ExpiresAt: win.ExpiresAt.UTC(),
			Remaining: cooldown.FormatRemaining(win.Remaining),
			Durable:   win.Durable,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "cooldowns": out})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
