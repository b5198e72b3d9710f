package process

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/models"
)

// BatchSize caps how many statements go into one LLM call.
const BatchSize = 10

// Processor runs the secondary pipeline: batch taxonomy classification
// of free-text guideline statements and near-duplicate clustering.
type Processor struct {
	store     core.Store
	llm       core.LLMProvider
	index     core.VectorIndex
	log       *zap.SugaredLogger
	threshold float64
}

func New(store core.Store, llm core.LLMProvider, index core.VectorIndex, log *zap.SugaredLogger, threshold float64) *Processor {
	if threshold <= 0 {
		threshold = 0.88
	}
	return &Processor{store: store, llm: llm, index: index, log: log, threshold: threshold}
}

// BatchResult is one statement's taxonomy labels as the model returned
// them, before enum normalization.
type BatchResult struct {
	Subject       string `json:"subject"`
	Phase         string `json:"phase"`
	Priority      string `json:"priority"`
	Role          string `json:"role"`
	ProcessedText string `json:"processed_text"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ClassifyBatch sends up to BatchSize statements in one call. The
// response must be a JSON array aligned positionally with the input;
// a parse failure is fatal for the batch (returned, not swallowed),
// because misalignment would silently mislabel unrelated statements.
func (p *Processor) ClassifyBatch(ctx context.Context, texts []string) ([]BatchResult, error) {
	var b strings.Builder
	b.WriteString("Classify each of the following cybersecurity requirements:\n\n")
	for i, text := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, text)
	}
	b.WriteString(`
Return a JSON list. Each item should have:
- subject (Manufacturer, Healthcare Provider, Regulatory Authority)
- phase (Design, Development, Pre-market, Operation, Incident Response, Disposal)
- priority (Shall, Should)
- role (if subject is Manufacturer: choose from Development Engineer, Security Architect, Quality Assurance, Regulatory Affairs, Product Manager, Operations Engineer, Incident Response Specialist; otherwise: use Other)
- processed_text (normalized summary)`)

	raw, err := p.llm.Complete(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("batch classify call: %w", err)
	}

	cleaned := raw
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		cleaned = m[1]
	}

	var results []BatchResult
	if err := json.Unmarshal([]byte(cleaned), &results); err != nil {
		return nil, fmt.Errorf("batch classify parse: %w\n\noriginal:\n%s", err, cleaned)
	}
	return results, nil
}

// ClassifyAndSave classifies statements in batches and persists the
// normalized labels. Enum vocabulary the model invents maps to
// "unknown" instead of failing the document.
func (p *Processor) ClassifyAndSave(ctx context.Context, docs []models.ProcessDocument) error {
	for start := 0; start < len(docs); start += BatchSize {
		end := start + BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.OriginalText
		}

		results, err := p.ClassifyBatch(ctx, texts)
		if err != nil {
			return err
		}

		n := len(batch)
		if len(results) < n {
			p.log.Warnw("batch result shorter than input", "want", n, "got", len(results))
			n = len(results)
		}
		for i := 0; i < n; i++ {
			doc := batch[i]
			doc.ProcessedText = results[i].ProcessedText
			doc.Subject = models.NormalizeSubject(results[i].Subject)
			doc.Phase = models.NormalizePhase(results[i].Phase)
			doc.Priority = models.NormalizePriority(results[i].Priority)
			doc.Role = models.NormalizeRole(results[i].Role)
			if err := p.store.UpdateProcessDocument(ctx, &doc); err != nil {
				return fmt.Errorf("update process document %s: %w", doc.ID, err)
			}
		}
	}
	return nil
}
