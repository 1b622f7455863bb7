package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docsum/internal/config"
	"github.com/dgallion1/docsum/internal/ingest"
	"github.com/dgallion1/docsum/internal/llm"
	"github.com/dgallion1/docsum/internal/pipeline"
)

// DocumentLister lists indexed document ids.
type DocumentLister interface {
	List() ([]string, error)
}

// StatsSource reports LLM call latency overall and per model.
type StatsSource interface {
	Snapshot() (llm.StatsSnapshot, map[string]llm.StatsSnapshot)
}

// Server is the HTTP API server for docsum.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	indexer      *ingest.Indexer
	docs         DocumentLister
	stats        StatsSource
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(orch *pipeline.Orchestrator, indexer *ingest.Indexer, docs DocumentLister, stats StatsSource, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		indexer:      indexer,
		docs:         docs,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents", s.handleIngest)
		r.Post("/documents/batch", s.handleBatchIngest)
		r.Delete("/documents/{docID}", s.handleDeleteDocument)

		r.Post("/documents/{docID}/summaries", s.handleSubmitSummary)
		r.Get("/summaries/{jobID}", s.handleSummaryStatus)

		r.Get("/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
		"workers":     s.orchestrator.Workers(),
	})
}
