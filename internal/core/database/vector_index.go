package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/osamusic/med-regulatory/internal/core"
)

// PgVectorIndex stores embeddings in the index_entries table and
// retrieves by cosine similarity. The namespace keeps the
// classification index and the process clustering index from seeing
// each other's entries. dim must match the embedding column width; a
// model producing a different width fails here with a clear error
// instead of an opaque one inside Postgres.
type PgVectorIndex struct {
	db        *sql.DB
	embedder  core.EmbeddingProvider
	namespace string
	dim       int
}

func NewPgVectorIndex(db *sql.DB, embedder core.EmbeddingProvider, namespace string, dim int) (*PgVectorIndex, error) {
	if db == nil {
		return nil, errors.New("nil db handle")
	}
	if embedder == nil {
		return nil, errors.New("nil embedding provider")
	}
	if namespace == "" {
		return nil, errors.New("empty namespace")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dim)
	}
	return &PgVectorIndex{db: db, embedder: embedder, namespace: namespace, dim: dim}, nil
}

func (x *PgVectorIndex) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := x.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one text", len(vecs))
	}
	if len(vecs[0]) != x.dim {
		return nil, fmt.Errorf("embedding dimension %d does not match index dimension %d", len(vecs[0]), x.dim)
	}
	return vecs[0], nil
}

func (x *PgVectorIndex) Insert(ctx context.Context, text string, meta map[string]string) error {
	vec, err := x.embedOne(ctx, text)
	if err != nil {
		return fmt.Errorf("embed text: %w", err)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	const q = `
		INSERT INTO index_entries (namespace, text, meta, embedding)
		VALUES ($1, $2, $3, $4)
	`
	_, err = x.db.ExecContext(ctx, q, x.namespace, text, metaJSON, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("insert index entry: %w", err)
	}
	return nil
}

func (x *PgVectorIndex) Retrieve(ctx context.Context, query string, topK int) ([]core.Scored, error) {
	if topK <= 0 {
		return nil, nil
	}
	vec, err := x.embedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// <=> is cosine distance; similarity is its complement.
	const q = `
		SELECT text, meta, 1 - (embedding <=> $1) AS score
		FROM index_entries
		WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := x.db.QueryContext(ctx, q, pgvector.NewVector(vec), x.namespace, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var out []core.Scored
	for rows.Next() {
		var (
			sc       core.Scored
			metaJSON []byte
		)
		if err := rows.Scan(&sc.Text, &metaJSON, &sc.Score); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &sc.Meta); err != nil {
				return nil, fmt.Errorf("decode meta: %w", err)
			}
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

var _ core.VectorIndex = (*PgVectorIndex)(nil)
