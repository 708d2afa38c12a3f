package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/database"
)

// NewVectorStore resolves the vector backend from configuration.
func NewVectorStore(ctx context.Context, cfg *config.Config) (VectorStore, error) {
	switch strings.ToLower(cfg.VectorStore) {
	case "pgvector", "postgres", "":
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPgvectorStore(ctx, pool, cfg.EmbeddingDimension)
	case "weaviate":
		return NewWeaviateStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore)
	}
}
