// Package server exposes reflection over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anoideaopen/pbreflect/core/reflection"
	"github.com/anoideaopen/pbreflect/core/registry"
	"github.com/anoideaopen/pbreflect/core/rpc"
	"github.com/anoideaopen/pbreflect/core/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// LoadFunc loads the registry from a source file.
type LoadFunc func(ctx context.Context, path string) (*registry.Namespace, error)

// snapshot is one loaded registry with its own reflection cache. Reloads swap
// the whole snapshot.
type snapshot struct {
	root      *registry.Namespace
	reflector *reflection.Reflector

	mu        sync.Mutex
	instances map[*rpc.ServiceType]*rpc.Service
}

// service returns the one instance reflected for st in this snapshot.
func (s *snapshot) service(st *rpc.ServiceType) *rpc.Service {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.instances[st]
	if !ok {
		svc = st.New(nil)
		s.instances[st] = svc
	}
	return svc
}

type Server struct {
	log      logrus.FieldLogger
	source   string
	load     LoadFunc
	metrics  *Metrics
	gatherer prometheus.Gatherer

	current atomic.Pointer[snapshot]
}

// New loads source and returns a server over it. Metrics are registered in a
// dedicated prometheus registry served on /metrics.
func New(ctx context.Context, source string, load LoadFunc, log logrus.FieldLogger) (*Server, error) {
	reg := prometheus.NewRegistry()

	s := &Server{
		log:      log,
		source:   source,
		load:     load,
		metrics:  NewMetrics(reg),
		gatherer: reg,
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Reload loads the source again and swaps the registry. On failure the current
// registry is kept.
func (s *Server) Reload(ctx context.Context) error {
	root, err := s.load(ctx, s.source)
	if err != nil {
		s.metrics.Reloads.WithLabelValues("error").Inc()
		return fmt.Errorf("loading %s: %w", s.source, err)
	}

	types := 0
	root.Walk(func(_, _ string, _ any) bool {
		types++
		return true
	})

	s.current.Store(&snapshot{
		root:      root,
		reflector: reflection.NewReflector(s.log),
		instances: make(map[*rpc.ServiceType]*rpc.Service),
	})
	s.metrics.Reloads.WithLabelValues("ok").Inc()
	s.metrics.RegistrySize.Set(float64(types))

	s.log.WithFields(logrus.Fields{"source": s.source, "types": types}).Info("registry loaded")

	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/messages/{path}", s.message)
		r.Get("/services/{path}", s.service)
		r.Get("/ns/{path}", s.namespace)
	})

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type nsResponse struct {
	Path string `json:"path"`
	NS   string `json:"ns"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	_, span := telemetry.StartSpan(r.Context(), "server.message",
		telemetry.Kind(telemetry.EntityMessage), telemetry.Path(path))
	defer span.End()

	snap := s.current.Load()
	mt, err := reflection.ResolveMessage(path, snap.root)
	if s.failed(w, telemetry.EntityMessage, path, mt == nil, err) {
		return
	}

	writeJSON(w, http.StatusOK, snap.reflector.Message(mt, snap.root))
}

func (s *Server) service(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	_, span := telemetry.StartSpan(r.Context(), "server.service",
		telemetry.Kind(telemetry.EntityService), telemetry.Path(path))
	defer span.End()

	snap := s.current.Load()
	st, err := reflection.ResolveServiceType(path, snap.root)
	if s.failed(w, telemetry.EntityService, path, st == nil, err) {
		return
	}

	writeJSON(w, http.StatusOK, snap.reflector.Service(snap.service(st), snap.root))
}

func (s *Server) namespace(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	_, span := telemetry.StartSpan(r.Context(), "server.namespace",
		telemetry.Kind(telemetry.EntityNamespace), telemetry.Path(path))
	defer span.End()

	snap := s.current.Load()
	v, ok := reflection.Resolve(path, snap.root)
	if s.failed(w, telemetry.EntityNamespace, path, !ok, nil) {
		return
	}

	writeJSON(w, http.StatusOK, nsResponse{Path: path, NS: reflection.FindNS(v, snap.root)})
}

// failed writes the error response for a lookup and counts the outcome. It
// reports whether the request is finished.
func (s *Server) failed(w http.ResponseWriter, kind telemetry.EntityKind, path string, absent bool, err error) bool {
	lookups := s.metrics.Lookups.MustCurryWith(prometheus.Labels{"kind": string(kind)})

	switch {
	case errors.Is(err, reflection.ErrTypeKindMismatch):
		lookups.WithLabelValues(outcomeMismatch).Inc()
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return true
	case err != nil:
		s.log.WithError(err).WithField("path", path).Error("lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return true
	case absent:
		lookups.WithLabelValues(outcomeNotFound).Inc()
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("nothing at path: '%s'", path)})
		return true
	}

	lookups.WithLabelValues(outcomeOK).Inc()
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
