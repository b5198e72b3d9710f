package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	middleware "github.com/osamusic/med-regulatory/internal/api/middlewares"
	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/core/crawler"
	"github.com/osamusic/med-regulatory/internal/models"
)

// crawlStatus is the handler-local view of the most recent crawl or
// upload. One writer at a time is not enforced; runs overwrite each
// other, latest wins.
type crawlStatus struct {
	Running     bool       `json:"running"`
	Target      string     `json:"target,omitempty"`
	SavedCount  int        `json:"saved_count"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CrawlerHandler struct {
	store     core.Store
	crawler   *crawler.Crawler
	uploader  *crawler.Uploader
	scheduler *crawler.Scheduler
	log       *zap.SugaredLogger

	mu     sync.RWMutex
	status crawlStatus
}

func NewCrawlerHandler(store core.Store, c *crawler.Crawler, u *crawler.Uploader, s *crawler.Scheduler, log *zap.SugaredLogger) *CrawlerHandler {
	return &CrawlerHandler{store: store, crawler: c, uploader: u, scheduler: s, log: log}
}

// Run accepts a crawl target and collects in the background.
func (h *CrawlerHandler) Run(w http.ResponseWriter, r *http.Request) {
	var target models.CrawlTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil || target.URL == "" {
		http.Error(w, "invalid crawl target", http.StatusBadRequest)
		return
	}

	ownerID := middleware.UserID(r.Context())
	h.markStarted(target.URL)

	go func() {
		ctx := context.Background()
		docs := h.crawler.Crawl(ctx, target)
		err := h.crawler.SaveAll(ctx, docs, ownerID)
		h.markFinished(len(docs), err)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"message": "crawl started", "url": target.URL})
}

// Status reports the latest crawl's state.
func (h *CrawlerHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	st := h.status
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

// Upload ingests a single uploaded file through the same splitting and
// persistence path as crawled documents.
func (h *CrawlerHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}

	filename := filepath.Base(header.Filename)
	ownerID := middleware.UserID(r.Context())
	h.markStarted("upload:" + filename)

	go func() {
		n, err := h.uploader.ProcessUpload(context.Background(), data, filename, ownerID)
		h.markFinished(n, err)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"message": "upload accepted", "filename": filename})
}

type scheduleRequest struct {
	Cron   string             `json:"cron"`
	Target models.CrawlTarget `json:"target"`
}

// Schedule registers a recurring crawl on a cron expression.
func (h *CrawlerHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cron == "" || req.Target.URL == "" {
		http.Error(w, "invalid schedule request", http.StatusBadRequest)
		return
	}

	id, err := h.scheduler.Add(req.Cron, req.Target, middleware.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"id": id, "cron": req.Cron, "url": req.Target.URL})
}

// Schedules lists the registered recurring crawls.
func (h *CrawlerHandler) Schedules(w http.ResponseWriter, r *http.Request) {
	entries := h.scheduler.Entries()
	if entries == nil {
		entries = []crawler.ScheduleEntry{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// Documents lists the most recently ingested documents.
func (h *CrawlerHandler) Documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListRecentDocuments(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

func (h *CrawlerHandler) markStarted(target string) {
	now := time.Now()
	h.mu.Lock()
	h.status = crawlStatus{Running: true, Target: target, StartedAt: &now}
	h.mu.Unlock()
}

func (h *CrawlerHandler) markFinished(saved int, err error) {
	now := time.Now()
	h.mu.Lock()
	h.status.Running = false
	h.status.SavedCount = saved
	h.status.CompletedAt = &now
	if err != nil {
		h.status.Error = err.Error()
		h.log.Errorw("crawl run failed", "target", h.status.Target, "error", err)
	}
	h.mu.Unlock()
}
