package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/types"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const weaviateBatchSize = 200

const emailClass = "EmailEmbedding"

var emailClassObject = &models.Class{
	Class: emailClass,
	Properties: []*models.Property{
		{Name: "messageId", DataType: []string{"text"}},
		{Name: "subject", DataType: []string{"text"}},
		{Name: "content", DataType: []string{"text"}},
		{Name: "sentDateTime", DataType: []string{"date"}},
		{Name: "userId", DataType: []string{"text"}},
	},
	// Vectors are supplied by the embedding model, never by a vectorizer module
	Vectorizer:      "none",
	VectorIndexType: "hnsw",
}

// WeaviateStore is the alternate VectorStore backend. The class is created on
// startup when missing.
type WeaviateStore struct {
	client *weaviate.Client
}

func NewWeaviateStore(cfg *config.Config) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.WeaviateHost, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.WeaviateHost, scheme+"://")
	clientCfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.WeaviateAPIKey != "" {
		clientCfg.AuthConfig = auth.ApiKey{Value: cfg.WeaviateAPIKey}
	}

	client, err := weaviate.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get weaviate schema: %w", err)
	}
	hasClass := false
	for _, class := range schema.Classes {
		if class.Class == emailClass {
			hasClass = true
			break
		}
	}
	if !hasClass {
		if err := client.Schema().ClassCreator().WithClass(emailClassObject).Do(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to create %s class: %w", emailClass, err)
		}
	}
	return &WeaviateStore{client: client}, nil
}

func (s *WeaviateStore) AddEmails(ctx context.Context, docs []types.EmailDocument, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("document count %d does not match embedding count %d", len(docs), len(embeddings))
	}

	for i := 0; i < len(docs); i += weaviateBatchSize {
		end := min(i+weaviateBatchSize, len(docs))

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			batcher = batcher.WithObjects(&models.Object{
				Class: emailClass,
				Properties: map[string]interface{}{
					"messageId":    docs[j].ID,
					"subject":      docs[j].Subject,
					"content":      docs[j].Content,
					"sentDateTime": docs[j].SentDateTime.Format(time.RFC3339),
					"userId":       docs[j].UserID,
				},
				Vector: embeddings[j],
			})
		}
		if _, err := batcher.Do(ctx); err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", i, end, err)
		}
		log.Info().Int("from", i).Int("to", end).Int("total", len(docs)).Msg("Inserted email embedding batch")
	}
	return nil
}

func (s *WeaviateStore) Query(ctx context.Context, embedding []float32, topK int, userID string) ([]types.EmailDocument, error) {
	if topK <= 0 {
		topK = 5
	}

	fields := []graphql.Field{
		{Name: "messageId"},
		{Name: "subject"},
		{Name: "content"},
		{Name: "sentDateTime"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	getBuilder := s.client.GraphQL().Get().
		WithClassName(emailClass).
		WithFields(fields...).
		WithNearVector(s.client.GraphQL().NearVectorArgBuilder().WithVector(embedding)).
		WithLimit(topK)
	if userID != "" {
		getBuilder = getBuilder.WithWhere(
			filters.Where().
				WithPath([]string{"userId"}).
				WithOperator(filters.Equal).
				WithValueString(userID))
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("weaviate query failed: %v", result.Errors[0].Message)
	}

	var docs []types.EmailDocument
	data, ok := result.Data["Get"].(map[string]interface{})[emailClass].([]interface{})
	if !ok {
		return docs, nil
	}
	for _, item := range data {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		doc := types.EmailDocument{
			ID:      stringProp(obj, "messageId"),
			Subject: stringProp(obj, "subject"),
			Content: stringProp(obj, "content"),
		}
		if raw := stringProp(obj, "sentDateTime"); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				doc.SentDateTime = t
			}
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				doc.Distance = distance
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *WeaviateStore) Close() {}

func stringProp(obj map[string]interface{}, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}
