package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ResultView is one document's latest classification, decoded for API
// consumers.
type ResultView struct {
	ID            int64         `json:"id"`
	DocumentID    string        `json:"document_id"`
	DocumentTitle string        `json:"document_title"`
	SourceURL     string        `json:"source_url"`
	OriginalTitle string        `json:"original_title"`
	CreatedAt     time.Time     `json:"created_at"`
	Requirements  []Requirement `json:"requirements"`
	Keywords      []Keyword     `json:"keywords"`
}

// Stats summarizes classification coverage.
type Stats struct {
	TotalDocuments           int     `json:"total_documents"`
	ClassifiedDocuments      int     `json:"classified_documents"`
	ClassificationPercentage float64 `json:"classification_percentage"`
}

// GetStats reports how much of the corpus has been classified.
func (o *Orchestrator) GetStats(ctx context.Context) (Stats, error) {
	total, err := o.store.CountDocuments(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	classified, err := o.store.CountClassifiedDocuments(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count classified: %w", err)
	}
	stats := Stats{TotalDocuments: total, ClassifiedDocuments: classified}
	if total > 0 {
		stats.ClassificationPercentage = math.Round(float64(classified)/float64(total)*10000) / 100
	}
	return stats, nil
}

// AllResults lists the latest classification per document, decoded.
// Rows whose JSON fails to decode are logged and left out rather than
// failing the whole listing.
func (o *Orchestrator) AllResults(ctx context.Context, offset, limit int) ([]ResultView, error) {
	rows, err := o.store.ListLatestClassifications(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}

	views := make([]ResultView, 0, len(rows))
	for _, row := range rows {
		doc, err := o.store.GetDocument(ctx, row.DocumentID)
		if err != nil || doc == nil {
			continue
		}
		var decoded Result
		if err := json.Unmarshal([]byte(row.ResultJSON), &decoded); err != nil {
			o.log.Errorw("stored result not decodable", "classification_id", row.ID, "error", err)
			continue
		}
		title := doc.Title
		if title == "" {
			title = "Unknown Document"
		}
		views = append(views, ResultView{
			ID:            row.ID,
			DocumentID:    row.DocumentID,
			DocumentTitle: title,
			SourceURL:     doc.URL,
			OriginalTitle: doc.OriginalTitle,
			CreatedAt:     row.CreatedAt,
			Requirements:  decoded.Requirements,
			Keywords:      decoded.Keywords,
		})
	}
	return views, nil
}

// LatestResult returns the decoded latest classification for one
// document, or nil when the document has none.
func (o *Orchestrator) LatestResult(ctx context.Context, docID string) (*ResultView, error) {
	row, err := o.store.LatestClassification(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load classification: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	doc, err := o.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	var decoded Result
	if err := json.Unmarshal([]byte(row.ResultJSON), &decoded); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	view := &ResultView{
		ID:           row.ID,
		DocumentID:   row.DocumentID,
		CreatedAt:    row.CreatedAt,
		Requirements: decoded.Requirements,
		Keywords:     decoded.Keywords,
	}
	if doc != nil {
		view.DocumentTitle = doc.Title
		view.SourceURL = doc.URL
		view.OriginalTitle = doc.OriginalTitle
	}
	return view, nil
}

// stop words filtered out of the aggregate keyword listing.
var commonWords = map[string]bool{
	"and": true, "the": true, "of": true, "to": true, "in": true, "for": true,
	"with": true, "on": true, "at": true, "by": true, "from": true, "a": true,
	"an": true, "is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true,
	"shall": true, "can": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "as": true, "so": true, "not": true, "no": true,
}

// UniqueKeywords collects every keyword across stored results, first
// occurrence order, minus stop words and fragments shorter than three
// characters.
func (o *Orchestrator) UniqueKeywords(ctx context.Context) ([]string, error) {
	rows, err := o.store.ListAllClassifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, row := range rows {
		var decoded Result
		if err := json.Unmarshal([]byte(row.ResultJSON), &decoded); err != nil {
			o.log.Warnw("skipping undecodable result_json", "classification_id", row.ID)
			continue
		}
		for _, kw := range decoded.Keywords {
			k := kw.Keyword
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			if commonWords[strings.ToLower(k)] || len(k) <= 2 {
				continue
			}
			keywords = append(keywords, k)
		}
	}
	return keywords, nil
}
