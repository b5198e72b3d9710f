package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/models"
)

// ScheduleEntry describes one registered recurring crawl.
type ScheduleEntry struct {
	ID     cron.EntryID       `json:"id"`
	Cron   string             `json:"cron"`
	Target models.CrawlTarget `json:"target"`
	Next   time.Time          `json:"next,omitempty"`
}

// Scheduler runs recurring crawls on cron expressions. Each tick is a
// full crawl-and-save of its target with UpdateExisting semantics
// deciding whether unchanged pages are refetched.
type Scheduler struct {
	cron    *cron.Cron
	crawler *Crawler
	log     *zap.SugaredLogger

	mu      sync.Mutex
	entries []ScheduleEntry
}

func NewScheduler(c *Crawler, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		crawler: c,
		log:     log,
	}
}

// Add registers a recurring crawl. expr uses standard cron syntax or a
// descriptor ("@daily", "0 3 * * *", "@every 12h", ...).
func (s *Scheduler) Add(expr string, target models.CrawlTarget, ownerID string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(expr, func() {
		ctx := context.Background()
		docs := s.crawler.Crawl(ctx, target)
		if err := s.crawler.SaveAll(ctx, docs, ownerID); err != nil {
			s.log.Errorw("scheduled crawl save failed", "url", target.URL, "error", err)
			return
		}
		s.log.Infow("scheduled crawl completed", "url", target.URL, "documents", len(docs))
	})
	if err != nil {
		return 0, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.mu.Lock()
	s.entries = append(s.entries, ScheduleEntry{ID: id, Cron: expr, Target: target})
	s.mu.Unlock()
	s.log.Infow("crawl schedule registered", "cron", expr, "url", target.URL)
	return id, nil
}

// Entries lists the registered schedules with their next run time.
func (s *Scheduler) Entries() []ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ScheduleEntry, len(s.entries))
	copy(out, s.entries)
	for i := range out {
		out[i].Next = s.cron.Entry(out[i].ID).Next
	}
	return out
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling; a crawl already in flight runs to completion.
func (s *Scheduler) Stop() { s.cron.Stop() }
