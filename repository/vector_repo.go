package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// VectorStore persists email embeddings and serves nearest-neighbor queries.
// Two implementations exist: Postgres with pgvector, and Weaviate.
type VectorStore interface {
	AddEmails(ctx context.Context, docs []types.EmailDocument, embeddings [][]float32) error
	// Query returns the topK nearest documents to the embedding, closest
	// first. An empty userID matches all tenants.
	Query(ctx context.Context, embedding []float32, topK int, userID string) ([]types.EmailDocument, error)
	Close()
}

// PgvectorStore stores embeddings in the email_embeddings table and ranks by
// L2 distance.
type PgvectorStore struct {
	pool      *pgxpool.Pool
	dimension int
}

func NewPgvectorStore(ctx context.Context, pool *pgxpool.Pool, dimension int) (*PgvectorStore, error) {
	store := &PgvectorStore{pool: pool, dimension: dimension}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PgvectorStore) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS email_embeddings (
			id             TEXT PRIMARY KEY,
			subject        TEXT,
			content        TEXT,
			sent_date_time TIMESTAMPTZ,
			user_id        TEXT,
			embedding      vector(%d)
		)`, s.dimension)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create email_embeddings table: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		"CREATE INDEX IF NOT EXISTS idx_email_embeddings_user_id ON email_embeddings (user_id)"); err != nil {
		return fmt.Errorf("failed to create user_id index: %w", err)
	}
	return nil
}

// AddEmails upserts by message id, so re-ingesting the same mailbox query is
// idempotent.
func (s *PgvectorStore) AddEmails(ctx context.Context, docs []types.EmailDocument, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("document count %d does not match embedding count %d", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, doc := range docs {
		batch.Queue(`
			INSERT INTO email_embeddings (id, subject, content, sent_date_time, user_id, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				subject = EXCLUDED.subject,
				content = EXCLUDED.content,
				sent_date_time = EXCLUDED.sent_date_time,
				user_id = EXCLUDED.user_id,
				embedding = EXCLUDED.embedding`,
			doc.ID, doc.Subject, doc.Content, doc.SentDateTime, doc.UserID,
			pgvector.NewVector(embeddings[i]),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert email embedding: %w", err)
		}
	}

	log.Info().Int("count", len(docs)).Msg("Added email embeddings to pgvector store")
	return nil
}

func (s *PgvectorStore) Query(ctx context.Context, embedding []float32, topK int, userID string) ([]types.EmailDocument, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, subject, content, sent_date_time, embedding <-> $1 AS distance
		FROM email_embeddings
		WHERE $2 = '' OR user_id = $2
		ORDER BY embedding <-> $1
		LIMIT $3`,
		pgvector.NewVector(embedding), userID, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	var docs []types.EmailDocument
	for rows.Next() {
		var doc types.EmailDocument
		if err := rows.Scan(&doc.ID, &doc.Subject, &doc.Content, &doc.SentDateTime, &doc.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan vector query row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PgvectorStore) Close() {
	s.pool.Close()
}
