package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/database"
	"github.com/tieubaoca/email-summarizer-be/types"
	"github.com/tieubaoca/email-summarizer-be/utils"
	"golang.org/x/sync/errgroup"
)

const summaryCachePrefix = "summary:"

// NoEmailsToSummarize is returned by DigestEmails for an empty input set.
const NoEmailsToSummarize = "No emails to summarize."

// SummaryService summarizes email content. Short emails go through a single
// prompt; emails larger than one chunk go through the map-reduce chain.
// Results are cached by content hash so re-summarizing identical content
// costs no LLM calls.
type SummaryService struct {
	llm      ChatModel
	splitter *Splitter
	cache    database.CacheStore
	cacheTTL time.Duration
}

func NewSummaryService(cfg *config.Config, llm ChatModel, cache database.CacheStore) (*SummaryService, error) {
	splitter, err := NewSplitter(cfg, llm.ModelName())
	if err != nil {
		return nil, err
	}
	return &SummaryService{
		llm:      llm,
		splitter: splitter,
		cache:    cache,
		cacheTTL: time.Duration(cfg.CacheExpirationSeconds) * time.Second,
	}, nil
}

// Summarize returns the summary and whether it was served from cache.
func (s *SummaryService) Summarize(ctx context.Context, content string) (string, bool, error) {
	key := summaryCachePrefix + utils.CacheKey(content)
	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		log.Info().Msg("Summary served from cache")
		return cached, true, nil
	}

	summary, err := s.summarize(ctx, content)
	if err != nil {
		return "", false, types.NewSummarizationError(err)
	}

	if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache summary")
	}
	return summary, false, nil
}

func (s *SummaryService) summarize(ctx context.Context, content string) (string, error) {
	chunks := s.splitter.Split(content)
	if len(chunks) <= 1 {
		return s.llm.Generate(ctx, simpleSummaryPrompt(content))
	}

	log.Info().Int("chunks", len(chunks)).Msg("Email exceeds chunk size, using map-reduce summarization")

	partials := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			out, err := s.llm.Generate(gctx, mapPrompt(chunk))
			if err != nil {
				return err
			}
			partials[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return s.llm.Generate(ctx, reducePrompt(strings.Join(partials, "\n\n")))
}

// SummarizeStructured produces the schema-constrained summary when the
// provider supports it. Providers without structured output, or a failed
// structured call, fall back to the plain chain with a nil structured part.
func (s *SummaryService) SummarizeStructured(ctx context.Context, content string) (string, *types.EmailSummary, bool, error) {
	gen, ok := s.llm.(StructuredGenerator)
	if !ok {
		log.Info().Str("model", s.llm.ModelName()).Msg("Provider does not support structured output, using plain summarization")
		summary, cached, err := s.Summarize(ctx, content)
		return summary, nil, cached, err
	}

	structured, err := gen.GenerateEmailSummary(ctx, content)
	if err != nil {
		log.Warn().Err(err).Msg("Structured summarization failed, falling back to plain summarization")
		summary, cached, err := s.Summarize(ctx, content)
		return summary, nil, cached, err
	}
	return structured.Summary, structured, false, nil
}

// DigestEmails produces a single cross-email digest. The fixed response for
// an empty set is not an error.
func (s *SummaryService) DigestEmails(ctx context.Context, contents []string) (string, error) {
	if len(contents) == 0 {
		return NoEmailsToSummarize, nil
	}

	joined := strings.Join(contents, "\n\n=== NEXT EMAIL ===\n\n")
	if len(s.splitter.Split(joined)) > 1 {
		// Too large for one digest prompt; summarize each email first, then
		// digest the summaries.
		summaries := make([]string, len(contents))
		g, gctx := errgroup.WithContext(ctx)
		for i, content := range contents {
			g.Go(func() error {
				out, _, err := s.Summarize(gctx, content)
				if err != nil {
					return err
				}
				summaries[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", types.NewSummarizationError(err)
		}
		joined = strings.Join(summaries, "\n\n=== NEXT EMAIL ===\n\n")
	}

	digest, err := s.llm.Generate(ctx, bulkSummaryPrompt(joined))
	if err != nil {
		return "", types.NewSummarizationError(err)
	}
	return digest, nil
}
