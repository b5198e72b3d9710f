package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/core"
)

type SearchHandler struct {
	index core.VectorIndex
	llm   core.LLMProvider
	log   *zap.SugaredLogger
}

func NewSearchHandler(index core.VectorIndex, llm core.LLMProvider, log *zap.SugaredLogger) *SearchHandler {
	return &SearchHandler{index: index, llm: llm, log: log}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchSource struct {
	DocID string  `json:"doc_id"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Query answers a question over the classified document index:
// retrieve the nearest documents, then ask the model to answer from
// that context only.
func (h *SearchHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 || req.TopK > 20 {
		req.TopK = 5
	}

	hits, err := h.index.Retrieve(ctx, req.Query, req.TopK)
	if err != nil {
		http.Error(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
		return
	}
	if len(hits) == 0 {
		json.NewEncoder(w).Encode(map[string]any{"answer": "", "sources": []searchSource{}})
		return
	}

	var sb strings.Builder
	sources := make([]searchSource, 0, len(hits))
	for _, hit := range hits {
		sb.WriteString(hit.Text)
		sb.WriteString("\n---\n")
		sources = append(sources, searchSource{
			DocID: hit.Meta["doc_id"],
			Title: hit.Meta["title"],
			URL:   hit.Meta["url"],
			Score: hit.Score,
		})
	}

	prompt := fmt.Sprintf(
		"You are an assistant for medical device cybersecurity regulation. Answer based only on the given document content. If unsure, say 'I cannot find this in the documents.'\n\nContext:\n%s\n\nQuestion: %s",
		sb.String(), req.Query)

	answer, err := h.llm.Complete(ctx, prompt)
	if err != nil {
		http.Error(w, fmt.Sprintf("LLM failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"answer":  answer,
		"sources": sources,
	})
}
