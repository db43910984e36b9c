package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync"
	"time"

	"icalagenda/internal/config"
	appLog "icalagenda/internal/log"
)

const agendaCacheTTL = 30 * time.Second

// RenderFunc produces the current agenda text.
type RenderFunc func(ctx context.Context) ([]byte, error)

// Server exposes the rendered agenda over HTTP:
//   - /health  always unauthenticated
//   - /agenda  plain-text agenda, cached for a short TTL
//   - /metrics Prometheus metrics, if a handler was given
type Server struct {
	cfg     *config.Config
	render  RenderFunc
	metrics http.Handler
	mux     *http.ServeMux

	now func() time.Time

	agendaMu    sync.Mutex
	agendaCache *agendaCache
}

// agendaCache holds the last rendered agenda and when it was produced.
type agendaCache struct {
	body      []byte
	updatedAt time.Time
}

// NewServer constructs a Server. metrics may be nil.
func NewServer(cfg *config.Config, render RenderFunc, metrics http.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		render:  render,
		metrics: metrics,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/agenda", s.handleAgenda)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="icalagenda", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAgenda renders the agenda, reusing the previous rendering while it
// is younger than agendaCacheTTL.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.agendaMu.Lock()
	defer s.agendaMu.Unlock()

	now := s.now()
	if s.agendaCache == nil || now.Sub(s.agendaCache.updatedAt) >= agendaCacheTTL {
		body, err := s.render(r.Context())
		if err != nil {
			appLog.Error("agenda render failed", err)
			http.Error(w, "failed to render agenda", http.StatusInternalServerError)
			return
		}
		s.agendaCache = &agendaCache{body: body, updatedAt: now}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.agendaCache.body)
}
