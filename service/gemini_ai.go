package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// vertexInit performs the one-time credential setup for the service-account
// path. Safe to call on every request; only the first call does work.
var vertexInit sync.Once

// GeminiService implements ChatModel, StructuredGenerator and EmbeddingModel
// on top of the Gemini API. It is created through one of two auth paths:
// API key, or service account (Vertex).
type GeminiService struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

func NewGeminiService(ctx context.Context, apiKey, modelName string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("no Google API key provided")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return newGeminiService(client, modelName), nil
}

// NewGeminiServiceWithServiceAccount builds the Vertex-authenticated variant.
// Credential bootstrap happens once per process regardless of how many
// clients are constructed.
func NewGeminiServiceWithServiceAccount(ctx context.Context, cfg *config.Config) (*GeminiService, error) {
	vertexInit.Do(func() {
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.GoogleApplicationCredentials)
		os.Setenv("GOOGLE_CLOUD_PROJECT", cfg.GoogleCloudProject)
		os.Setenv("GOOGLE_CLOUD_LOCATION", cfg.GoogleCloudLocation)
	})
	client, err := genai.NewClient(ctx, option.WithCredentialsFile(cfg.GoogleApplicationCredentials))
	if err != nil {
		return nil, err
	}
	return newGeminiService(client, cfg.GeminiModelName), nil
}

func newGeminiService(client *genai.Client, modelName string) *GeminiService {
	// The "google/" prefix is a routing convention of some gateways; the
	// native API wants the bare model id.
	name := strings.TrimPrefix(modelName, "google/")
	model := client.GenerativeModel(name)
	model.SetTemperature(0)
	return &GeminiService{
		client:    client,
		model:     model,
		modelName: name,
	}
}

func (s *GeminiService) ModelName() string { return s.modelName }

func (s *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return geminiResponseText(resp)
}

func (s *GeminiService) GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error {
	iter := s.model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					handler(string(text))
				}
			}
		}
	}
}

// GenerateEmailSummary constrains the response to the EmailSummary schema via
// Gemini's JSON response mode.
func (s *GeminiService) GenerateEmailSummary(ctx context.Context, content string) (*types.EmailSummary, error) {
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":      {Type: genai.TypeString, Description: "A concise summary of the email content"},
			"key_points":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"action_items": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"sentiment":    {Type: genai.TypeString, Description: "Overall sentiment: positive, negative, or neutral"},
		},
		Required: []string{"summary", "key_points", "sentiment"},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(structuredSummaryPrompt(content)))
	if err != nil {
		return nil, err
	}
	text, err := geminiResponseText(resp)
	if err != nil {
		return nil, err
	}
	var summary types.EmailSummary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *GeminiService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := s.client.EmbeddingModel("text-embedding-004")
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}
	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		embeddings[i] = e.Values
	}
	return embeddings, nil
}

func (s *GeminiService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel("text-embedding-004")
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("no response generated")
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String(), nil
}
