package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/osamusic/med-regulatory/internal/config"
	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/core/classifier"
	"github.com/osamusic/med-regulatory/internal/core/crawler"
	db "github.com/osamusic/med-regulatory/internal/core/database"
	"github.com/osamusic/med-regulatory/internal/core/extractor"
	"github.com/osamusic/med-regulatory/internal/core/llm"
	"github.com/osamusic/med-regulatory/internal/core/objectstore"
	"github.com/osamusic/med-regulatory/internal/core/process"
	"github.com/osamusic/med-regulatory/internal/core/workflow"
	"github.com/osamusic/med-regulatory/internal/logging"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	Store        *db.PgStore
	Orchestrator *classifier.Orchestrator
	Scheduler    *crawler.Scheduler
	Server       *Server

	log  *zap.SugaredLogger
	llm  *llm.GeminiLLM
	embd *llm.GeminiEmbedder
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logging.New(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := db.NewPgStore(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	log.Info("database initialized and ready")

	geminiLLM, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}
	embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	docIndex, err := db.NewPgVectorIndex(store.DB(), embedder, "documents", cfg.EmbedDim)
	if err != nil {
		return nil, fmt.Errorf("init document index: %w", err)
	}
	processIndex, err := db.NewPgVectorIndex(store.DB(), embedder, "process", cfg.EmbedDim)
	if err != nil {
		return nil, fmt.Errorf("init process index: %w", err)
	}

	// Object archival is optional: without AWS credentials uploads are
	// still ingested, just not archived.
	var objects core.ObjectStore
	if s3, err := objectstore.NewS3Store(initCtx, cfg); err != nil {
		log.Warnw("object store disabled", "reason", err)
	} else {
		objects = s3
		log.Info("object store initialized and ready")
	}

	ex := extractor.New(log)
	crawlEngine := crawler.New(store, ex, log, cfg.MaxDocumentSize,
		time.Duration(cfg.CrawlTimeoutSec)*time.Second, cfg.CrawlRPS)
	uploader := crawler.NewUploader(crawlEngine, objects)
	scheduler := crawler.NewScheduler(crawlEngine, log)

	docClassifier := classifier.NewDocumentClassifier(geminiLLM, log, cfg.MaxPromptSize)
	orchestrator := classifier.NewOrchestrator(store, docClassifier, docIndex, log)

	processor := process.New(store, geminiLLM, processIndex, log, cfg.SimilarityThreshold)
	generator := workflow.NewGenerator(store, geminiLLM, log)

	server := NewServer(cfg, log, store, crawlEngine, uploader, scheduler, orchestrator, processor, generator, docIndex, geminiLLM)

	return &App{
		Store:        store,
		Orchestrator: orchestrator,
		Scheduler:    scheduler,
		Server:       server,
		log:          log,
		llm:          geminiLLM,
		embd:         embedder,
	}, nil
}

// Run starts the worker, the scheduler and the HTTP server, and blocks
// until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.Orchestrator.Start(ctx)
	a.Scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.embd != nil {
		_ = a.embd.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
