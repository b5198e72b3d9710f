package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/models"
)

var (
	// ErrBusy is returned when a run is already queued or executing.
	ErrBusy = errors.New("classification run already in progress")
	// ErrNoDocuments is returned when selection matched nothing.
	ErrNoDocuments = errors.New("no documents found for classification")
)

// Request selects which documents to classify. The three modes are
// mutually exclusive and checked in order: all documents, explicit
// document IDs, section IDs (treated as document IDs).
type Request struct {
	SectionIDs   []string `json:"section_ids"`
	DocumentIDs  []string `json:"document_ids"`
	AllDocuments bool     `json:"all_documents"`
	Reclassify   bool     `json:"reclassify"`
}

// Accepted is the immediate response to a classification request; the
// caller polls progress separately.
type Accepted struct {
	ProcessedCount   int                         `json:"processed_count"`
	SkippedDocuments []string                    `json:"skipped_documents"`
	Message          string                      `json:"message,omitempty"`
	TotalCount       int                         `json:"total_count"`
	CurrentCount     int                         `json:"current_count"`
	Status           models.ClassificationStatus `json:"status"`
}

type job struct {
	docIDs []string
	cfg    Config
	userID string
}

// Orchestrator owns the background classification pipeline: selection,
// the single-slot work queue, per-document stage execution, result
// persistence and progress state. The capacity-1 channel plus the one
// worker goroutine make "at most one run system-wide" structural.
type Orchestrator struct {
	store      core.Store
	classifier *DocumentClassifier
	index      core.VectorIndex // document search index, may be nil
	log        *zap.SugaredLogger
	progress   *ProgressTracker
	jobs       chan job
	submitMu   sync.Mutex
}

func NewOrchestrator(store core.Store, dc *DocumentClassifier, index core.VectorIndex, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		classifier: dc,
		index:      index,
		log:        log,
		progress:   NewProgressTracker(),
		jobs:       make(chan job, 1),
	}
}

// Start launches the single worker goroutine. It returns when ctx is
// cancelled; a job already dequeued runs to completion first.
func (o *Orchestrator) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				o.log.Info("classification worker shutting down")
				return
			case j := <-o.jobs:
				o.runJob(j)
			}
		}
	}()
}

// StartClassification resolves the selection, resets progress for the
// new run and enqueues it. Returns ErrBusy when the slot is taken and
// ErrNoDocuments when the selection matched nothing.
func (o *Orchestrator) StartClassification(ctx context.Context, req Request, cfg Config, userID string) (*Accepted, error) {
	docs, skipped, err := o.selectDocuments(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}

	// Reserve the slot, then reset progress, then hand the job over.
	// Resetting before the send guarantees the worker's own transitions
	// (in_progress, increments, completed) happen after the reset, even
	// when it drains the job immediately. submitMu keeps a competing
	// caller from filling the slot between the check and the send; the
	// worker only ever drains, so the send below cannot block.
	o.submitMu.Lock()
	defer o.submitMu.Unlock()
	if len(o.jobs) > 0 {
		return nil, ErrBusy
	}

	// Latest run wins: any previous run's final state is discarded now.
	o.progress.Reset(len(ids))
	o.jobs <- job{docIDs: ids, cfg: cfg, userID: userID}

	accepted := &Accepted{
		ProcessedCount:   len(ids),
		SkippedDocuments: skipped,
		TotalCount:       len(ids),
		CurrentCount:     0,
		Status:           models.StatusInitializing,
	}
	if len(skipped) > 0 {
		accepted.Message = "The following documents were skipped because they have already been classified: " +
			strings.Join(skipped, ", ")
	}
	o.log.Infow("classification accepted", "documents", len(ids), "skipped", len(skipped), "user", userID)
	return accepted, nil
}

// selectDocuments applies the request's selection mode. In explicit-ID
// mode, already-classified documents are skipped and reported by title
// unless reclassification was forced.
func (o *Orchestrator) selectDocuments(ctx context.Context, req Request) ([]models.Document, []string, error) {
	switch {
	case req.AllDocuments:
		if req.Reclassify {
			docs, err := o.store.ListDocuments(ctx)
			return docs, nil, err
		}
		docs, err := o.store.ListUnclassified(ctx)
		return docs, nil, err

	case len(req.DocumentIDs) > 0:
		var docs []models.Document
		var skipped []string
		for _, id := range req.DocumentIDs {
			doc, err := o.store.GetDocument(ctx, id)
			if err != nil {
				return nil, nil, fmt.Errorf("load document %s: %w", id, err)
			}
			if doc == nil {
				continue
			}
			if !req.Reclassify {
				existing, err := o.store.LatestClassification(ctx, id)
				if err != nil {
					return nil, nil, fmt.Errorf("check classification %s: %w", id, err)
				}
				if existing != nil {
					title := doc.Title
					if title == "" {
						title = fmt.Sprintf("Document %s", id)
					}
					skipped = append(skipped, title)
					continue
				}
			}
			docs = append(docs, *doc)
		}
		return docs, skipped, nil

	case len(req.SectionIDs) > 0:
		docs, err := o.store.ListDocumentsByIDs(ctx, req.SectionIDs)
		return docs, nil, err
	}
	return nil, nil, nil
}

// runJob executes one classification run on the worker goroutine. A
// single document's failure is contained: it is logged, the progress
// counter still advances, and the run moves on.
func (o *Orchestrator) runJob(j job) {
	ctx := context.Background()
	o.progress.MarkInProgress()
	o.log.Infow("starting background classification", "documents", len(j.docIDs))

	for idx, docID := range j.docIDs {
		if err := o.classifyOne(ctx, docID, j.cfg, j.userID); err != nil {
			o.log.Errorw("document classification failed", "doc_id", docID, "error", err)
		}
		o.progress.Increment()
		o.log.Infow("classification advanced", "doc_id", docID, "done", idx+1, "total", len(j.docIDs))
	}

	o.progress.Complete()
	o.log.Info("background classification completed")
}

func (o *Orchestrator) classifyOne(ctx context.Context, docID string, cfg Config, userID string) error {
	doc, err := o.store.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document %s not found", docID)
	}

	result := o.classifier.ClassifyDocument(ctx, doc.Content, cfg)
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := o.store.SaveClassification(ctx, &models.ClassificationResult{
		DocumentID: docID,
		UserID:     userID,
		ResultJSON: string(payload),
		CreatedAt:  time.Now(),
	}); err != nil {
		return fmt.Errorf("save classification: %w", err)
	}

	if o.index != nil {
		meta := map[string]string{"doc_id": doc.DocID, "title": doc.Title, "url": doc.URL}
		if err := o.index.Insert(ctx, doc.Content, meta); err != nil {
			// Search indexing is an enrichment, not part of the result.
			o.log.Warnw("index insert failed", "doc_id", docID, "error", err)
		}
	}
	return nil
}

// Progress returns a snapshot of the active (or latest) run.
func (o *Orchestrator) Progress() models.ClassificationProgress {
	return o.progress.Snapshot()
}
