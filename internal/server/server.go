// Package server exposes the directory, resolver and composer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"foiadir/internal/compose"
	"foiadir/internal/config"
	"foiadir/internal/directory"
	"foiadir/internal/metrics"
)

// Server hosts the resolution and composition API.
type Server struct {
	store    *directory.Store
	resolver *directory.Resolver
	composer *compose.Composer
	metrics  *metrics.Metrics
	log      *zap.Logger

	http            *http.Server
	shutdownTimeout time.Duration
}

// New builds the server and its router. metrics may be nil.
func New(cfg *config.Config, store *directory.Store, resolver *directory.Resolver, composer *compose.Composer, m *metrics.Metrics, log *zap.Logger) *Server {
	s := &Server{
		store:           store,
		resolver:        resolver,
		composer:        composer,
		metrics:         m,
		log:             log,
		shutdownTimeout: cfg.GetShutdownTimeout(),
	}
	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router. Tests drive it with httptest directly.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until ctx is canceled, then drains in-flight requests
// within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.http.Addr))
		err := s.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/agencies", s.handleAgencies)
		r.Get("/resolve", s.handleResolve)
		r.Post("/compose", s.handleCompose)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAgencies(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Records()
	if err != nil {
		s.log.Error("directory read failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "directory unavailable")
		return
	}
	writeJSON(w, http.StatusOK, agenciesResponse{Count: len(records), Records: records})
}

// handleResolve maps a unit id or name to a submission channel. A miss
// is a PORTAL result with status 200, not an error; only a query with
// no signal at all is rejected.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := directory.Query{
		UnitID: r.URL.Query().Get("unit_id"),
		Name:   r.URL.Query().Get("name"),
	}

	res, err := s.resolver.Resolve(q)
	if err != nil {
		if errors.Is(err, directory.ErrEmptyQuery) {
			s.writeError(w, http.StatusBadRequest, "unit_id or name is required")
			return
		}
		s.log.Error("resolve failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "directory unavailable")
		return
	}

	s.metrics.IncResolverLookup(string(res.Channel))
	writeJSON(w, http.StatusOK, res)
}

type composeRequest struct {
	Query   directory.Query `json:"query"`
	Request compose.Request `json:"request"`
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	res, err := s.resolver.Resolve(req.Query)
	if err != nil {
		if errors.Is(err, directory.ErrEmptyQuery) {
			s.writeError(w, http.StatusBadRequest, "query.unit_id or query.name is required")
			return
		}
		s.log.Error("resolve failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "directory unavailable")
		return
	}
	s.metrics.IncResolverLookup(string(res.Channel))

	payload, err := s.composer.Build(res, req.Request)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type agenciesResponse struct {
	Count   int                `json:"count"`
	Records []directory.Record `json:"records"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
