package core

import (
	"context"

	"github.com/osamusic/med-regulatory/internal/models"
)

// Store defines all persistence operations the pipeline needs. It
// abstracts Postgres so the engines never depend on a specific DB.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)

	Exists(ctx context.Context, docID string) (bool, error)
	Upsert(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, docID string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	ListUnclassified(ctx context.Context) ([]models.Document, error)
	ListDocumentsByIDs(ctx context.Context, docIDs []string) ([]models.Document, error)
	ListRecentDocuments(ctx context.Context, limit int) ([]models.Document, error)
	CountDocuments(ctx context.Context) (int, error)

	// SaveClassification overwrites the existing result for the same
	// document when one exists; otherwise it inserts a new row.
	SaveClassification(ctx context.Context, result *models.ClassificationResult) error
	LatestClassification(ctx context.Context, docID string) (*models.ClassificationResult, error)
	ListLatestClassifications(ctx context.Context, offset, limit int) ([]models.ClassificationResult, error)
	ListAllClassifications(ctx context.Context) ([]models.ClassificationResult, error)
	CountClassifiedDocuments(ctx context.Context) (int, error)

	CreateProcessDocument(ctx context.Context, doc *models.ProcessDocument) error
	ListUnclassifiedProcess(ctx context.Context) ([]models.ProcessDocument, error)
	ListUnclustered(ctx context.Context) ([]models.ProcessDocument, error)
	UpdateProcessDocument(ctx context.Context, doc *models.ProcessDocument) error
	CreateCluster(ctx context.Context, cluster *models.ProcessCluster) error
	AssignCluster(ctx context.Context, docID, clusterID string) error
	ListClusters(ctx context.Context) ([]models.ProcessCluster, error)
	ListClusteredByPhase(ctx context.Context, phase models.PhaseEnum) ([]models.ProcessDocument, error)
}

// LLMProvider is the completion surface of the model backend. Output
// carries no schema guarantee; callers must treat it as untrusted text.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbeddingProvider turns texts into vectors for the index.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Scored is one vector index hit.
type Scored struct {
	Text  string
	Meta  map[string]string
	Score float64
}

// VectorIndex is the similarity-search surface used for semantic
// document search and process-document clustering.
type VectorIndex interface {
	Insert(ctx context.Context, text string, meta map[string]string) error
	Retrieve(ctx context.Context, query string, topK int) ([]Scored, error)
}

// ObjectStore archives raw uploaded files. Implementations may be
// absent in a deployment; callers must tolerate a nil store.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
