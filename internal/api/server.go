// Package api serves enrichment analyses over HTTP.
//
// Routes:
//
//	GET  /health          liveness probe
//	POST /v1/enrichment   single-pass enrichment against every library
//	POST /v1/iterative    iterative enrichment against every library
//	POST /v1/network      DOT network (or analysis prompt) from iterative runs
//
// Analysis requests carry the gene set, background and libraries inline as
// JSON documents; see [AnalysisRequest]. Responses embed the pipeline result
// together with the input validation report.
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/iterenrich/pkg/buildinfo"
	"github.com/matzehuels/iterenrich/pkg/observability"
	"github.com/matzehuels/iterenrich/pkg/pipeline"
)

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 32 << 20

// Options configures a Server.
type Options struct {
	// Defaults are the analysis options a request starts from before its own
	// overrides are applied.
	Defaults pipeline.Options
	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64
	Logger       *log.Logger
}

// Server handles API requests. It is safe for concurrent use.
type Server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	maxBody  int64
	logger   *log.Logger
}

// NewServer creates a server that executes analyses with runner.
func NewServer(runner *pipeline.Runner, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		runner:   runner,
		defaults: opts.Defaults,
		maxBody:  opts.MaxBodyBytes,
		logger:   opts.Logger,
	}
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/enrichment", s.analyze(pipeline.ModeRegular))
		r.Post("/iterative", s.analyze(pipeline.ModeIterative))
		r.Post("/network", s.network)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.logger, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// logRequests logs every request and reports it to the server hooks.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed.Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}
