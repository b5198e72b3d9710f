package classifier

import (
	"sync"
	"time"

	"github.com/osamusic/med-regulatory/internal/models"
)

// ProgressTracker is the process-wide progress state for the single
// active classification run. The worker is its only writer (the
// capacity-1 queue makes that structural); the mutex exists for memory
// visibility to polling readers, not for writer coordination.
type ProgressTracker struct {
	mu    sync.RWMutex
	state models.ClassificationProgress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{state: models.ClassificationProgress{Status: models.StatusIdle}}
}

// Reset discards any previous run's state and arms the tracker for a
// new run. Latest run wins: a prior run's final counters are gone once
// a new request is accepted.
func (p *ProgressTracker) Reset(total int) {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = models.ClassificationProgress{
		TotalDocuments: total,
		Status:         models.StatusInitializing,
		StartedAt:      &now,
	}
}

func (p *ProgressTracker) MarkInProgress() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = models.StatusInProgress
}

// Increment advances the processed counter. Called once per document
// whether or not its stages succeeded, so the denominator stays honest.
func (p *ProgressTracker) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.ProcessedDocuments++
}

func (p *ProgressTracker) Complete() {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = models.StatusCompleted
	p.state.CompletedAt = &now
}

func (p *ProgressTracker) Fail() {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = models.StatusError
	p.state.CompletedAt = &now
}

// Snapshot returns a copy of the current progress state.
func (p *ProgressTracker) Snapshot() models.ClassificationProgress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}
