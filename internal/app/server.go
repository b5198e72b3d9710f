package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/api/handlers"
	appMiddleware "github.com/osamusic/med-regulatory/internal/api/middlewares"
	"github.com/osamusic/med-regulatory/internal/config"
	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/core/classifier"
	"github.com/osamusic/med-regulatory/internal/core/crawler"
	"github.com/osamusic/med-regulatory/internal/core/process"
	"github.com/osamusic/med-regulatory/internal/core/workflow"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.SugaredLogger
}

// NewServer builds and wires all routes.
func NewServer(
	cfg *config.Config,
	log *zap.SugaredLogger,
	store core.Store,
	crawlEngine *crawler.Crawler,
	uploader *crawler.Uploader,
	scheduler *crawler.Scheduler,
	orchestrator *classifier.Orchestrator,
	processor *process.Processor,
	generator *workflow.Generator,
	docIndex core.VectorIndex,
	llm core.LLMProvider,
) *Server {
	authHandler := handlers.NewAuthHandler(store, cfg.JWTSecret)
	crawlerHandler := handlers.NewCrawlerHandler(store, crawlEngine, uploader, scheduler, log)
	classifierHandler := handlers.NewClassifierHandler(orchestrator, log)
	processHandler := handlers.NewProcessHandler(store, processor, log)
	workflowHandler := handlers.NewWorkflowHandler(generator, log)
	searchHandler := handlers.NewSearchHandler(docIndex, llm, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// authenticated endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWT(cfg.JWTSecret))

			protected.Get("/crawler/status", crawlerHandler.Status)
			protected.Get("/crawler/schedules", crawlerHandler.Schedules)
			protected.Get("/crawler/documents", crawlerHandler.Documents)
			protected.Get("/classifier/progress", classifierHandler.Progress)
			protected.Get("/classifier/results/{doc_id}", classifierHandler.Result)
			protected.Get("/classifier/all", classifierHandler.All)
			protected.Get("/classifier/stats", classifierHandler.Stats)
			protected.Get("/classifier/keywords", classifierHandler.Keywords)
			protected.Get("/process/clusters", processHandler.Clusters)
			protected.Post("/search/query", searchHandler.Query)
			protected.Post("/workflow/{phase}", workflowHandler.Generate)

			// pipeline mutations are admin-only
			protected.Group(func(admin chi.Router) {
				admin.Use(appMiddleware.RequireAdmin)

				admin.Post("/crawler/run", crawlerHandler.Run)
				admin.Post("/crawler/upload", crawlerHandler.Upload)
				admin.Post("/crawler/schedule", crawlerHandler.Schedule)
				admin.Post("/classifier/classify", classifierHandler.Classify)
				admin.Post("/process/documents", processHandler.CreateDocuments)
				admin.Post("/process/classify", processHandler.Classify)
				admin.Post("/process/cluster", processHandler.Cluster)
			})
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Infow("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
