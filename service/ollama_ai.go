package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// OllamaService implements ChatModel and EmbeddingModel against a local
// model server. It does not implement StructuredGenerator; callers fall back
// to the plain text chain.
type OllamaService struct {
	client *api.Client
	model  string
}

func NewOllamaService(baseURL, model string) (*OllamaService, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}
	return &OllamaService{
		client: api.NewClient(u, http.DefaultClient),
		model:  model,
	}, nil
}

func (s *OllamaService) ModelName() string { return s.model }

func (s *OllamaService) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	var sb strings.Builder
	req := &api.GenerateRequest{
		Model:   s.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]any{"temperature": 0.0},
	}
	err := s.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (s *OllamaService) GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error {
	req := &api.GenerateRequest{
		Model:   s.model,
		Prompt:  prompt,
		Options: map[string]any{"temperature": 0.0},
	}
	return s.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		if resp.Response != "" {
			handler(resp.Response)
		}
		return nil
	})
}

func (s *OllamaService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.client.Embed(ctx, &api.EmbedRequest{
		Model: s.model,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

func (s *OllamaService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}
