package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/core/workflow"
	"github.com/osamusic/med-regulatory/internal/models"
)

type WorkflowHandler struct {
	generator *workflow.Generator
	log       *zap.SugaredLogger
}

func NewWorkflowHandler(g *workflow.Generator, log *zap.SugaredLogger) *WorkflowHandler {
	return &WorkflowHandler{generator: g, log: log}
}

// Generate builds role-grouped work instructions for one lifecycle
// phase from the clustered guideline statements.
func (h *WorkflowHandler) Generate(w http.ResponseWriter, r *http.Request) {
	phase := models.NormalizePhase(chi.URLParam(r, "phase"))
	if phase == models.PhaseUnknown {
		http.Error(w, "unknown lifecycle phase", http.StatusBadRequest)
		return
	}

	result, err := h.generator.Generate(r.Context(), phase)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
