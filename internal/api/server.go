// Package api exposes docrank over HTTP: queued ranking jobs over uploaded
// documents, synchronous single-document outlines and embedding statistics.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/pipeline"
)

// Server routes API requests to the job orchestrator.
type Server struct {
	handler      http.Handler
	orchestrator *pipeline.Orchestrator
	stats        *embed.Stats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer wires the router. stats may be nil when embedding calls are not
// instrumented; the stats endpoint then answers 503.
func NewServer(orch *pipeline.Orchestrator, stats *embed.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/formats", s.handleFormats)
		r.Post("/outline", s.handleOutline)

		r.Route("/analyze", func(r chi.Router) {
			r.Post("/", s.handleAnalyze)
			r.Get("/{jobID}", s.handleAnalyzeStatus)
		})

		r.Get("/stats/embed", s.handleEmbedStats)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"model":       s.orchestrator.Runner().Model(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"extensions": parser.Extensions()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
