package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/database"
	"github.com/tieubaoca/email-summarizer-be/repository"
	"github.com/tieubaoca/email-summarizer-be/types"
	"github.com/tieubaoca/email-summarizer-be/utils"
	"golang.org/x/sync/errgroup"
)

// NoRelevantInformation is the fixed answer when the map stage finds nothing.
// Returning it is defined behavior, not an error.
const NoRelevantInformation = "No relevant information found in the provided documents."

const excerptDelimiter = "\n\n---\n\n"

const ragMapCachePrefix = "rag:map:"

// RAGService answers questions over retrieved email documents with a
// map-reduce chain: split to token-bounded chunks, extract relevant text per
// chunk concurrently (cached), then reduce, collapsing pairwise when the
// combined excerpts exceed the model's token budget.
type RAGService struct {
	llm         ChatModel
	splitter    *Splitter
	cache       database.CacheStore
	cacheTTL    time.Duration
	tokenBudget int
}

func NewRAGService(cfg *config.Config, llm ChatModel, cache database.CacheStore) (*RAGService, error) {
	splitter, err := NewSplitter(cfg, llm.ModelName())
	if err != nil {
		return nil, err
	}
	return &RAGService{
		llm:         llm,
		splitter:    splitter,
		cache:       cache,
		cacheTTL:    time.Duration(cfg.CacheExpirationSeconds) * time.Second,
		tokenBudget: cfg.ContextWindow(llm.ModelName()),
	}, nil
}

// Per-chunk map outcome. A failed call is not the same thing as a chunk that
// legitimately found nothing relevant.
type mapOutcome int

const (
	mapFound mapOutcome = iota
	mapEmpty
	mapFailed
)

type mapResult struct {
	outcome mapOutcome
	text    string
	err     error
}

// Answer runs the full chain and returns the final answer plus a flag that is
// true when allowPartial let the chain proceed past failed chunks.
func (s *RAGService) Answer(ctx context.Context, question string, docs []types.Document, allowPartial bool) (string, bool, error) {
	chunks := s.splitter.SplitDocuments(docs)
	log.Info().
		Int("chunks", len(chunks)).
		Int("documents", len(docs)).
		Msg("Processing document chunks")

	found, partial, err := s.mapChunks(ctx, question, chunks, allowPartial)
	if err != nil {
		return "", false, types.NewRAGError(err)
	}
	if len(found) == 0 {
		return NoRelevantInformation, partial, nil
	}

	combined, err := s.collapse(ctx, question, strings.Join(found, excerptDelimiter))
	if err != nil {
		return "", false, types.NewRAGError(err)
	}

	answer, err := s.llm.Generate(ctx, ragReducePrompt(question, combined))
	if err != nil {
		return "", false, types.NewRAGError(err)
	}
	return answer, partial, nil
}

// AnswerStream runs the same map stage to completion (collapse included),
// then streams only the terminal reduce call. When the map stage finds
// nothing, the sentinel is delivered as a single unit.
func (s *RAGService) AnswerStream(ctx context.Context, question string, docs []types.Document, handler types.StreamHandler) error {
	chunks := s.splitter.SplitDocuments(docs)

	found, _, err := s.mapChunks(ctx, question, chunks, false)
	if err != nil {
		return types.NewRAGError(err)
	}
	if len(found) == 0 {
		handler(NoRelevantInformation)
		return nil
	}

	combined, err := s.collapse(ctx, question, strings.Join(found, excerptDelimiter))
	if err != nil {
		return types.NewRAGError(err)
	}

	if err := s.llm.GenerateStream(ctx, ragReducePrompt(question, combined), handler); err != nil {
		return types.NewRAGError(err)
	}
	return nil
}

// mapChunks fans the extraction prompt out over all chunks concurrently and
// fans results back in by input index, so reduce input order is always chunk
// order regardless of completion order. Cache key is a hash of the chunk
// content plus the normalized question.
func (s *RAGService) mapChunks(ctx context.Context, question string, chunks []types.Document, allowPartial bool) ([]string, bool, error) {
	results := make([]mapResult, len(chunks))
	normalized := utils.NormalizeQuestion(question)

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			key := ragMapCachePrefix + utils.CacheKey(chunk.Content, normalized)
			if cached, ok, err := s.cache.Get(gctx, key); err == nil && ok {
				results[i] = classifyMapText(cached)
				return nil
			}

			out, err := s.llm.Generate(gctx, ragMapPrompt(question, chunk.Content))
			if err != nil {
				if !allowPartial {
					// Cancels the whole batch via the group context.
					return fmt.Errorf("map stage failed for chunk %d: %w", i, err)
				}
				results[i] = mapResult{outcome: mapFailed, err: err}
				return nil
			}

			if err := s.cache.Set(gctx, key, out, s.cacheTTL); err != nil {
				log.Warn().Err(err).Msg("Failed to cache map result")
			}
			results[i] = classifyMapText(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	var found []string
	partial := false
	for i, r := range results {
		switch r.outcome {
		case mapFound:
			found = append(found, r.text)
		case mapFailed:
			partial = true
			log.Warn().Err(r.err).Int("chunk", i).Msg("Proceeding without failed chunk")
		}
	}
	return found, partial, nil
}

func classifyMapText(text string) mapResult {
	if strings.TrimSpace(text) == "" {
		return mapResult{outcome: mapEmpty}
	}
	return mapResult{outcome: mapFound, text: text}
}

// collapse reduces combined excerpts below the token budget by repeatedly
// pairing adjacent chunks and reducing each pair, halving the chunk count per
// round. Pairs within a round are independent and reduced concurrently; the
// last odd chunk passes through untouched.
func (s *RAGService) collapse(ctx context.Context, question, combined string) (string, error) {
	estimated := s.splitter.CountTokens(combined)
	if estimated <= s.tokenBudget {
		return combined, nil
	}
	log.Info().
		Int("estimated_tokens", estimated).
		Int("token_budget", s.tokenBudget).
		Msg("Combined results exceed token limit, applying recursive collapse")

	chunks := s.splitter.Split(combined)
	for len(chunks) > 1 {
		reduced, err := s.collapseRound(ctx, question, chunks)
		if err != nil {
			return "", err
		}
		chunks = reduced
		log.Info().Int("chunks", len(chunks)).Msg("Collapsed")
	}
	return chunks[0], nil
}

func (s *RAGService) collapseRound(ctx context.Context, question string, chunks []string) ([]string, error) {
	out := make([]string, (len(chunks)+1)/2)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < len(chunks); i += 2 {
		if i+1 >= len(chunks) {
			out[i/2] = chunks[i]
			break
		}
		pair := chunks[i] + excerptDelimiter + chunks[i+1]
		slot := i / 2
		g.Go(func() error {
			reduced, err := s.llm.Generate(gctx, ragReducePrompt(question, pair))
			if err != nil {
				return err
			}
			out[slot] = reduced
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Retriever performs the semantic search that feeds the RAG chain.
type Retriever struct {
	embedder EmbeddingModel
	store    repository.VectorStore
}

func NewRetriever(embedder EmbeddingModel, store repository.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

func (r *Retriever) Retrieve(ctx context.Context, question string, topK int, userID string) ([]types.EmailDocument, error) {
	embedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return r.store.Query(ctx, embedding, topK, userID)
}

// DocumentsFromEmails adapts vector store rows into pipeline documents.
func DocumentsFromEmails(rows []types.EmailDocument) []types.Document {
	docs := make([]types.Document, len(rows))
	for i, row := range rows {
		docs[i] = types.Document{
			Content: row.Content,
			Metadata: map[string]any{
				"message_id": row.ID,
				"subject":    row.Subject,
				"sent_at":    row.SentDateTime,
			},
		}
	}
	return docs
}
