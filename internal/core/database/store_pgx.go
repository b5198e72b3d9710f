package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/osamusic/med-regulatory/internal/config"
	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/models"
)

// PgStore implements core.Store over Postgres via the pgx stdlib
// driver.
type PgStore struct {
	db *sql.DB
}

func NewPgStore(ctx context.Context, cfg *config.Config) (*PgStore, error) {
	if cfg == nil || cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &PgStore{db: db}, nil
}

func (s *PgStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for the vector index, which shares
// the connection pool.
func (s *PgStore) DB() *sql.DB { return s.db }

// users

func (s *PgStore) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO users (id, email, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt)
	return err
}

func (s *PgStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, is_admin, created_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := s.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PgStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// documents

func (s *PgStore) Exists(ctx context.Context, docID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE doc_id = $1)`, docID).Scan(&exists)
	return exists, err
}

// Upsert inserts a new document or updates an existing one in place.
// Re-crawling a stable URL must never create a duplicate row.
func (s *PgStore) Upsert(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(doc_id, url, title, original_title, content, source_type, downloaded_at, lang, owner_id)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (doc_id) DO UPDATE SET
			title = EXCLUDED.title,
			original_title = EXCLUDED.original_title,
			content = EXCLUDED.content,
			downloaded_at = EXCLUDED.downloaded_at
	`
	_, err := s.db.ExecContext(ctx, q,
		doc.DocID, doc.URL, doc.Title, doc.OriginalTitle, doc.Content,
		doc.SourceType, doc.DownloadedAt, doc.Lang, doc.OwnerID)
	return err
}

const documentColumns = `doc_id, url, title, original_title, content, source_type, downloaded_at, lang, owner_id`

func scanDocument(row interface{ Scan(...any) error }) (models.Document, error) {
	var d models.Document
	err := row.Scan(&d.DocID, &d.URL, &d.Title, &d.OriginalTitle, &d.Content,
		&d.SourceType, &d.DownloadedAt, &d.Lang, &d.OwnerID)
	return d, err
}

func (s *PgStore) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE doc_id = $1`
	d, err := scanDocument(s.db.QueryRowContext(ctx, q, docID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PgStore) queryDocuments(ctx context.Context, q string, args ...any) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PgStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY downloaded_at ASC`)
}

func (s *PgStore) ListUnclassified(ctx context.Context) ([]models.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE doc_id NOT IN (SELECT DISTINCT document_id FROM classification_results)
		ORDER BY downloaded_at ASC`)
}

func (s *PgStore) ListDocumentsByIDs(ctx context.Context, docIDs []string) ([]models.Document, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE doc_id = ANY($1)
		ORDER BY downloaded_at ASC`, docIDs)
}

func (s *PgStore) ListRecentDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+` FROM documents
		ORDER BY downloaded_at DESC LIMIT $1`, limit)
}

func (s *PgStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// classifications

// SaveClassification overwrites the document's existing result row if
// one exists; history is a single latest row per document per the
// upsert policy.
func (s *PgStore) SaveClassification(ctx context.Context, result *models.ClassificationResult) error {
	if result == nil {
		return errors.New("nil classification result")
	}
	const update = `
		UPDATE classification_results
		SET result_json = $2, user_id = $3, created_at = $4
		WHERE id = (
			SELECT id FROM classification_results
			WHERE document_id = $1
			ORDER BY created_at DESC LIMIT 1
		)
	`
	res, err := s.db.ExecContext(ctx, update,
		result.DocumentID, result.ResultJSON, result.UserID, result.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	const insert = `
		INSERT INTO classification_results (document_id, user_id, result_json, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.db.ExecContext(ctx, insert,
		result.DocumentID, result.UserID, result.ResultJSON, result.CreatedAt)
	return err
}

const classificationColumns = `id, document_id, user_id, result_json, created_at`

func (s *PgStore) LatestClassification(ctx context.Context, docID string) (*models.ClassificationResult, error) {
	q := `
		SELECT ` + classificationColumns + ` FROM classification_results
		WHERE document_id = $1
		ORDER BY created_at DESC LIMIT 1
	`
	var r models.ClassificationResult
	err := s.db.QueryRowContext(ctx, q, docID).Scan(&r.ID, &r.DocumentID, &r.UserID, &r.ResultJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PgStore) queryClassifications(ctx context.Context, q string, args ...any) ([]models.ClassificationResult, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ClassificationResult
	for rows.Next() {
		var r models.ClassificationResult
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.UserID, &r.ResultJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgStore) ListLatestClassifications(ctx context.Context, offset, limit int) ([]models.ClassificationResult, error) {
	return s.queryClassifications(ctx, `
		SELECT `+classificationColumns+` FROM (
			SELECT DISTINCT ON (document_id) `+classificationColumns+`
			FROM classification_results
			ORDER BY document_id, created_at DESC
		) latest
		ORDER BY id
		OFFSET $1 LIMIT $2`, offset, limit)
}

func (s *PgStore) ListAllClassifications(ctx context.Context) ([]models.ClassificationResult, error) {
	return s.queryClassifications(ctx, `
		SELECT `+classificationColumns+` FROM classification_results
		WHERE result_json IS NOT NULL
		ORDER BY id`)
}

func (s *PgStore) CountClassifiedDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT document_id) FROM classification_results`).Scan(&n)
	return n, err
}

// process documents & clusters

func (s *PgStore) CreateProcessDocument(ctx context.Context, doc *models.ProcessDocument) error {
	if doc == nil {
		return errors.New("nil process document")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO process_documents
			(id, original_text, category, standard, processed_text, subject, phase, priority, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, q,
		doc.ID, doc.OriginalText, doc.Category, doc.Standard, doc.ProcessedText,
		doc.Subject, doc.Phase, doc.Priority, doc.Role, doc.Status, doc.CreatedAt)
	return err
}

const processColumns = `id, original_text, category, standard, processed_text, subject, phase, priority, role, status, COALESCE(cluster_id, ''), created_at`

func (s *PgStore) queryProcessDocuments(ctx context.Context, q string, args ...any) ([]models.ProcessDocument, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProcessDocument
	for rows.Next() {
		var d models.ProcessDocument
		if err := rows.Scan(&d.ID, &d.OriginalText, &d.Category, &d.Standard, &d.ProcessedText,
			&d.Subject, &d.Phase, &d.Priority, &d.Role, &d.Status, &d.ClusterID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PgStore) ListUnclassifiedProcess(ctx context.Context) ([]models.ProcessDocument, error) {
	return s.queryProcessDocuments(ctx, `
		SELECT `+processColumns+` FROM process_documents
		WHERE subject = 'unknown'
		ORDER BY created_at ASC`)
}

// ListUnclustered returns cluster candidates in creation order, the
// stable key the greedy clustering pass depends on.
func (s *PgStore) ListUnclustered(ctx context.Context) ([]models.ProcessDocument, error) {
	return s.queryProcessDocuments(ctx, `
		SELECT `+processColumns+` FROM process_documents
		WHERE cluster_id IS NULL
		ORDER BY created_at ASC, id ASC`)
}

func (s *PgStore) UpdateProcessDocument(ctx context.Context, doc *models.ProcessDocument) error {
	const q = `
		UPDATE process_documents
		SET processed_text = $2, subject = $3, phase = $4, priority = $5, role = $6, status = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q,
		doc.ID, doc.ProcessedText, doc.Subject, doc.Phase, doc.Priority, doc.Role, doc.Status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("process document not found: %s", doc.ID)
	}
	return nil
}

func (s *PgStore) CreateCluster(ctx context.Context, cluster *models.ProcessCluster) error {
	if cluster == nil {
		return errors.New("nil cluster")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO process_clusters (id, rep_text) VALUES ($1, $2)`,
		cluster.ID, cluster.RepText)
	return err
}

func (s *PgStore) AssignCluster(ctx context.Context, docID, clusterID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE process_documents SET cluster_id = $2 WHERE id = $1`, docID, clusterID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("process document not found: %s", docID)
	}
	return nil
}

func (s *PgStore) ListClusters(ctx context.Context) ([]models.ProcessCluster, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rep_text, created_at FROM process_clusters ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []models.ProcessCluster
	byID := make(map[string]int)
	for rows.Next() {
		var c models.ProcessCluster
		if err := rows.Scan(&c.ID, &c.RepText, &c.CreatedAt); err != nil {
			return nil, err
		}
		byID[c.ID] = len(clusters)
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	docs, err := s.queryProcessDocuments(ctx, `
		SELECT `+processColumns+` FROM process_documents
		WHERE cluster_id IS NOT NULL
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if i, ok := byID[d.ClusterID]; ok {
			clusters[i].Documents = append(clusters[i].Documents, d)
		}
	}
	return clusters, nil
}

func (s *PgStore) ListClusteredByPhase(ctx context.Context, phase models.PhaseEnum) ([]models.ProcessDocument, error) {
	return s.queryProcessDocuments(ctx, `
		SELECT `+processColumns+` FROM process_documents
		WHERE cluster_id IS NOT NULL AND phase = $1
		ORDER BY created_at ASC`, phase)
}

var _ core.Store = (*PgStore)(nil)
