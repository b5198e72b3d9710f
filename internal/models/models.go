package models

import (
	"time"
)

// SourceType identifies how a document's raw bytes were interpreted.
type SourceType string

const (
	SourceHTML  SourceType = "HTML"
	SourcePDF   SourceType = "PDF"
	SourceOther SourceType = "OTHER"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Document is one collected piece of content. DocID is derived from the
// source URL (plus the chunk index for split parts), so re-crawling the
// same URL updates the existing row instead of inserting a duplicate.
type Document struct {
	DocID         string     `db:"doc_id" json:"doc_id"`
	URL           string     `db:"url" json:"url"`
	Title         string     `db:"title" json:"title"`
	OriginalTitle string     `db:"original_title" json:"original_title"`
	Content       string     `db:"content" json:"content"`
	SourceType    SourceType `db:"source_type" json:"source_type"`
	DownloadedAt  time.Time  `db:"downloaded_at" json:"downloaded_at"`
	Lang          string     `db:"lang" json:"lang"`
	OwnerID       string     `db:"owner_id" json:"owner_id,omitempty"`
}

// CrawlTarget configures one crawl invocation. It is immutable for the
// duration of the run.
type CrawlTarget struct {
	URL             string   `json:"url"`
	MimeFilters     []string `json:"mime_filters"`
	Depth           int      `json:"depth"`
	Name            string   `json:"name,omitempty"`
	UpdateExisting  bool     `json:"update_existing"`
	MaxDocumentSize int      `json:"max_document_size,omitempty"`
}

// DefaultMimeFilters are applied when a crawl request leaves the filter
// list empty.
var DefaultMimeFilters = []string{
	"application/pdf",
	"text/html",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Chunk is a size-bounded slice of a larger document, ordered within
// its parent. It only lives between the splitter and Document assembly.
type Chunk struct {
	Title   string
	Content string
}

// TocEntry is one table-of-contents row extracted from a PDF outline,
// carrying the text of its target page.
type TocEntry struct {
	Level   int    `json:"level"`
	Title   string `json:"title"`
	PageNum int    `json:"page_num"`
	Text    string `json:"text"`
}

// ClassificationResult is one classification run's output for a
// document. ResultJSON always deserializes to an object holding
// `requirements` and `keywords` arrays, even when a stage failed.
type ClassificationResult struct {
	ID         int64     `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	ResultJSON string    `db:"result_json" json:"result_json"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ClassificationStatus enumerates the lifecycle of one classification run.
type ClassificationStatus string

const (
	StatusIdle         ClassificationStatus = "idle"
	StatusInitializing ClassificationStatus = "initializing"
	StatusInProgress   ClassificationStatus = "in_progress"
	StatusCompleted    ClassificationStatus = "completed"
	StatusError        ClassificationStatus = "error"
)

// ClassificationProgress is the process-wide view of the single active
// classification run. It is reset whenever a new run is accepted and is
// not durable across restarts.
type ClassificationProgress struct {
	TotalDocuments     int                  `json:"total_documents"`
	ProcessedDocuments int                  `json:"processed_documents"`
	Status             ClassificationStatus `json:"status"`
	StartedAt          *time.Time           `json:"started_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
}

// ProcessDocument is one free-text guideline statement in the secondary
// taxonomy pipeline. Enum fields stay "unknown" until classified.
type ProcessDocument struct {
	ID            string       `db:"id" json:"id"`
	OriginalText  string       `db:"original_text" json:"original_text"`
	Category      string       `db:"category" json:"category"`
	Standard      string       `db:"standard" json:"standard"`
	ProcessedText string       `db:"processed_text" json:"processed_text"`
	Subject       SubjectEnum  `db:"subject" json:"subject"`
	Phase         PhaseEnum    `db:"phase" json:"phase"`
	Priority      PriorityEnum `db:"priority" json:"priority"`
	Role          RoleEnum     `db:"role" json:"role"`
	Status        StatusEnum   `db:"status" json:"status"`
	ClusterID     string       `db:"cluster_id" json:"cluster_id,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// ProcessCluster groups near-duplicate ProcessDocuments. RepText is the
// processed text of the cluster's first member.
type ProcessCluster struct {
	ID        string            `db:"id" json:"cluster_id"`
	RepText   string            `db:"rep_text" json:"rep_text"`
	Documents []ProcessDocument `json:"documents,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
