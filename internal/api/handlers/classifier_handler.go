package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	middleware "github.com/osamusic/med-regulatory/internal/api/middlewares"
	"github.com/osamusic/med-regulatory/internal/core/classifier"
)

type ClassifierHandler struct {
	orchestrator *classifier.Orchestrator
	log          *zap.SugaredLogger
}

func NewClassifierHandler(o *classifier.Orchestrator, log *zap.SugaredLogger) *ClassifierHandler {
	return &ClassifierHandler{orchestrator: o, log: log}
}

type classifyRequest struct {
	classifier.Request
	MinKeywordLength int `json:"min_keyword_length"`
	MaxKeywords      int `json:"max_keywords"`
}

// Classify accepts a selection and starts a background run.
func (h *ClassifierHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	cfg := classifier.DefaultConfig()
	if req.MinKeywordLength > 0 {
		cfg.Keyword.MinKeywordLength = req.MinKeywordLength
	}
	if req.MaxKeywords > 0 {
		cfg.Keyword.MaxKeywords = req.MaxKeywords
	}

	accepted, err := h.orchestrator.StartClassification(
		r.Context(), req.Request, cfg, middleware.UserID(r.Context()))
	switch {
	case errors.Is(err, classifier.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, classifier.ErrNoDocuments):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(accepted)
}

// Progress reports the active (or latest) run's counters.
func (h *ClassifierHandler) Progress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.orchestrator.Progress())
}

// Result returns the latest classification for one document.
func (h *ClassifierHandler) Result(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "doc_id")
	view, err := h.orchestrator.LatestResult(r.Context(), docID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if view == nil {
		http.Error(w, "no classification for document", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// All lists the latest classification per document, paginated.
func (h *ClassifierHandler) All(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)

	views, err := h.orchestrator.AllResults(r.Context(), offset, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// Stats reports corpus classification coverage.
func (h *ClassifierHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orchestrator.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// Keywords lists every unique keyword across stored results.
func (h *ClassifierHandler) Keywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := h.orchestrator.UniqueKeywords(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if keywords == nil {
		keywords = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"keywords": keywords})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
