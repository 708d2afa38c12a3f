package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// ChatModel is the uniform contract over the configured LLM backend.
type ChatModel interface {
	// ModelName reports the concrete model identifier, used for token-budget
	// lookups. Each variant carries its own name; there is no reflection.
	ModelName() string
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error
}

// StructuredGenerator is implemented by providers that support
// schema-constrained generation (OpenAI, Gemini). Callers type-assert and
// fall back to the plain chain when the assertion or the call fails.
type StructuredGenerator interface {
	GenerateEmailSummary(ctx context.Context, content string) (*types.EmailSummary, error)
}

// EmbeddingModel embeds documents for ingestion and queries for retrieval.
type EmbeddingModel interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewChatModel resolves the chat backend from configuration. The config is
// passed in explicitly; no process-wide provider singleton.
func NewChatModel(ctx context.Context, cfg *config.Config) (ChatModel, error) {
	provider := strings.ToLower(cfg.LLMProvider)
	log.Info().Str("provider", provider).Msg("Initializing LLM")

	switch provider {
	case "openai":
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModelName), nil
	case "gemini":
		if cfg.GoogleApplicationCredentials != "" && cfg.GoogleCloudProject != "" {
			log.Info().Msg("Using Vertex AI with service account authentication")
			return NewGeminiServiceWithServiceAccount(ctx, cfg)
		}
		log.Info().Msg("Using Google AI with API key authentication")
		return NewGeminiService(ctx, cfg.GoogleAPIKey, cfg.GeminiModelName)
	case "ollama":
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

// NewEmbeddingModel resolves the embedding backend from configuration.
func NewEmbeddingModel(ctx context.Context, cfg *config.Config) (EmbeddingModel, error) {
	provider := strings.ToLower(cfg.EmbeddingProvider)

	switch provider {
	case "openai":
		return NewOpenAIEmbedding(cfg.OpenAIAPIKey, cfg.EmbeddingModelName), nil
	case "gemini":
		svc, err := NewGeminiService(ctx, cfg.GoogleAPIKey, cfg.GeminiModelName)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "ollama":
		return NewOllamaService(cfg.OllamaBaseURL, cfg.EmbeddingModelName)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}
