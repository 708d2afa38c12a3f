package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/repository"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// TaskTypeRAGIngest identifies the background ingestion task on the queue.
const TaskTypeRAGIngest = "rag:ingest"

type IngestTaskPayload struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

// NewRAGIngestTask builds the queue task for an ingestion request.
func NewRAGIngestTask(query, userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestTaskPayload{Query: query, UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRAGIngest, payload), nil
}

// IngestService pulls matching emails out of the mailbox, cleans them, embeds
// them and writes them to the vector store. It runs inside the worker
// process.
type IngestService struct {
	repo     repository.EmailRepository
	emails   *EmailService
	cleaner  *EmailCleaner
	embedder EmbeddingModel
	store    repository.VectorStore
}

func NewIngestService(repo repository.EmailRepository, embedder EmbeddingModel, store repository.VectorStore) *IngestService {
	return &IngestService{
		repo:     repo,
		emails:   NewEmailService(repo),
		cleaner:  NewEmailCleaner(),
		embedder: embedder,
		store:    store,
	}
}

// Ingest fetches up to 100 emails matching the query and upserts their
// embeddings. A single failed email is logged and skipped, not fatal to the
// batch.
func (s *IngestService) Ingest(ctx context.Context, query, userID string) (int, error) {
	log.Info().Str("query", query).Str("user_id", userID).Msg("Starting RAG ingestion")

	emails, err := s.repo.ListMessages(ctx, types.ListMessagesOptions{Search: query, Top: 100})
	if err != nil {
		return 0, err
	}

	var docs []types.EmailDocument
	var texts []string
	for _, email := range emails {
		full, err := s.emails.FetchEmailContent(ctx, email.ID, true)
		if err != nil {
			log.Error().Err(err).Str("email_id", email.ID).Msg("Failed to process email for RAG ingestion")
			continue
		}
		cleaned := s.cleaner.Clean(full)
		docs = append(docs, types.EmailDocument{
			ID:           email.ID,
			Subject:      email.Subject,
			Content:      cleaned,
			SentDateTime: email.SentDateTime,
			UserID:       userID,
		})
		texts = append(texts, cleaned)
	}

	if len(docs) == 0 {
		log.Warn().Msg("No emails were processed for RAG ingestion")
		return 0, nil
	}

	log.Info().Int("count", len(docs)).Msg("Generating embeddings for emails")
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed emails: %w", err)
	}
	if err := s.store.AddEmails(ctx, docs, embeddings); err != nil {
		return 0, err
	}

	log.Info().Int("ingested_count", len(docs)).Str("user_id", userID).Msg("Completed RAG ingestion")
	return len(docs), nil
}

// HandleRAGIngestTask adapts Ingest to the task queue handler signature.
func (s *IngestService) HandleRAGIngestTask(ctx context.Context, t *asynq.Task) error {
	var payload IngestTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid ingest task payload: %w", err)
	}
	_, err := s.Ingest(ctx, payload.Query, payload.UserID)
	return err
}
