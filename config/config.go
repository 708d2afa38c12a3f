package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full recognized-option surface of the service, loaded once at
// process start. An invalid provider configuration is fatal: LoadConfig
// returns an error and the process must not serve traffic.
type Config struct {
	Port string `mapstructure:"port"`

	// LLM provider selection: "openai", "gemini" or "ollama".
	LLMProvider string `mapstructure:"llm_provider"`

	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModelName string `mapstructure:"openai_model_name"`

	// Gemini supports two auth paths. When both the credentials file and the
	// project are set, the service-account (Vertex) path wins over the API key.
	GoogleAPIKey                 string `mapstructure:"GOOGLE_API_KEY"`
	GoogleApplicationCredentials string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	GoogleCloudProject           string `mapstructure:"google_cloud_project"`
	GoogleCloudLocation          string `mapstructure:"google_cloud_location"`
	GeminiModelName              string `mapstructure:"gemini_model_name"`

	OllamaBaseURL string `mapstructure:"ollama_base_url"`
	OllamaModel   string `mapstructure:"ollama_model"`

	EmbeddingProvider  string `mapstructure:"embedding_provider"`
	EmbeddingModelName string `mapstructure:"embedding_model_name"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension"`

	// Microsoft Graph / Azure AD.
	AzureClientID     string `mapstructure:"AZURE_CLIENT_ID"`
	AzureClientSecret string `mapstructure:"AZURE_CLIENT_SECRET"`
	AzureTenantID     string `mapstructure:"AZURE_TENANT_ID"`
	TargetUserID      string `mapstructure:"target_user_id"`
	UseMockGraphAPI   bool   `mapstructure:"use_mock_graph_api"`
	MockGraphAPIURL   string `mapstructure:"mock_graph_api_url"`

	DatabaseURL string `mapstructure:"database_url"`
	VectorStore string `mapstructure:"vector_store"` // "pgvector" (default) or "weaviate"

	WeaviateHost   string `mapstructure:"weaviate_host"`
	WeaviateAPIKey string `mapstructure:"WEAVIATE_APIKEY"`

	RedisURL               string `mapstructure:"redis_url"`
	CacheExpirationSeconds int    `mapstructure:"cache_expiration_seconds"`

	RateLimitRequests int `mapstructure:"rate_limit_requests"` // per minute, per client

	CORSOrigins []string `mapstructure:"cors_origins"`

	// RAG tokenization.
	RAGTokenMax         int            `mapstructure:"rag_token_max"`
	ModelContextWindows map[string]int `mapstructure:"model_context_windows"`
	ChunkSizeRatio      float64        `mapstructure:"chunk_size_ratio"`
	DefaultChunkOverlap int            `mapstructure:"default_chunk_overlap"`

	RAGTopK int `mapstructure:"rag_top_k"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables for secrets
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("GOOGLE_API_KEY")
	v.BindEnv("GOOGLE_APPLICATION_CREDENTIALS")
	v.BindEnv("AZURE_CLIENT_ID")
	v.BindEnv("AZURE_CLIENT_SECRET")
	v.BindEnv("AZURE_TENANT_ID")
	v.BindEnv("WEAVIATE_APIKEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("llm_provider", "gemini")
	v.SetDefault("openai_model_name", "gpt-4o-mini")
	v.SetDefault("google_cloud_location", "us-central1")
	v.SetDefault("gemini_model_name", "gemini-2.5-flash")
	v.SetDefault("ollama_base_url", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama2")
	v.SetDefault("embedding_provider", "openai")
	v.SetDefault("embedding_model_name", "text-embedding-3-small")
	v.SetDefault("embedding_dimension", 1536)
	v.SetDefault("target_user_id", "me")
	v.SetDefault("mock_graph_api_url", "http://localhost:8001")
	v.SetDefault("vector_store", "pgvector")
	v.SetDefault("redis_url", "redis://localhost:6379")
	v.SetDefault("cache_expiration_seconds", 3600)
	v.SetDefault("rate_limit_requests", 100)
	v.SetDefault("rag_token_max", 16000)
	v.SetDefault("chunk_size_ratio", 0.02)
	v.SetDefault("default_chunk_overlap", 200)
	v.SetDefault("rag_top_k", 5)
	v.SetDefault("model_context_windows", map[string]int{
		"gemini-2.5-flash": 1048576,
		"gpt-4o-mini":      128000,
		"gpt-4.1":          1000000,
	})
}

// Validate checks that the selected LLM provider has the credentials it
// needs. Called from LoadConfig so that a bad provider config fails fast.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLMProvider) {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set when llm_provider is 'openai'")
		}
	case "gemini":
		if c.GoogleAPIKey == "" && !(c.GoogleApplicationCredentials != "" && c.GoogleCloudProject != "") {
			return fmt.Errorf("either GOOGLE_API_KEY or both GOOGLE_APPLICATION_CREDENTIALS and " +
				"google_cloud_project must be set when llm_provider is 'gemini'")
		}
	case "ollama":
		// base URL and model have defaults
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}

	if c.ChunkSizeRatio <= 0 {
		return fmt.Errorf("chunk_size_ratio must be positive, got %f", c.ChunkSizeRatio)
	}
	if c.RAGTokenMax <= 0 {
		return fmt.Errorf("rag_token_max must be positive, got %d", c.RAGTokenMax)
	}
	return nil
}

// ContextWindow returns the context window for a model, falling back to the
// configured RAG token maximum for unknown models.
func (c *Config) ContextWindow(modelName string) int {
	if ctx, ok := c.ModelContextWindows[modelName]; ok {
		return ctx
	}
	return c.RAGTokenMax
}
