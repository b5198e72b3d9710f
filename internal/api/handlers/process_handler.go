package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/core/process"
	"github.com/osamusic/med-regulatory/internal/models"
)

type ProcessHandler struct {
	store     core.Store
	processor *process.Processor
	log       *zap.SugaredLogger
}

func NewProcessHandler(store core.Store, p *process.Processor, log *zap.SugaredLogger) *ProcessHandler {
	return &ProcessHandler{store: store, processor: p, log: log}
}

type createStatementsRequest struct {
	Category   string   `json:"category"`
	Standard   string   `json:"standard"`
	Statements []string `json:"statements"`
}

// CreateDocuments registers free-text guideline statements for the
// taxonomy pipeline. Enum fields start as unknown.
func (h *ProcessHandler) CreateDocuments(w http.ResponseWriter, r *http.Request) {
	var req createStatementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Statements) == 0 {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	var created []string
	for _, text := range req.Statements {
		if text == "" {
			continue
		}
		doc := &models.ProcessDocument{
			ID:           uuid.NewString(),
			OriginalText: text,
			Category:     req.Category,
			Standard:     req.Standard,
			Subject:      models.SubjectUnknown,
			Phase:        models.PhaseUnknown,
			Priority:     models.PriorityUnknown,
			Role:         models.RoleUnknown,
			Status:       models.StatusUnknown,
			CreatedAt:    time.Now(),
		}
		if err := h.store.CreateProcessDocument(r.Context(), doc); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		created = append(created, doc.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"created": len(created), "ids": created})
}

// Classify labels every still-unknown process document in batches.
// Batch parse failures abort the run; partial progress from earlier
// batches is kept.
func (h *ProcessHandler) Classify(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListUnclassifiedProcess(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(docs) == 0 {
		http.Error(w, "no unclassified process documents", http.StatusNotFound)
		return
	}

	if err := h.processor.ClassifyAndSave(r.Context(), docs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"classified": len(docs)})
}

// Cluster groups near-duplicate process documents.
func (h *ProcessHandler) Cluster(w http.ResponseWriter, r *http.Request) {
	summary, err := h.processor.ClusterDocuments(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// Clusters lists every cluster with its member documents.
func (h *ProcessHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.store.ListClusters(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if clusters == nil {
		clusters = []models.ProcessCluster{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(clusters)
}
