/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/database"
	"github.com/tieubaoca/email-summarizer-be/handler"
	"github.com/tieubaoca/email-summarizer-be/middleware"
	"github.com/tieubaoca/email-summarizer-be/repository"
	"github.com/tieubaoca/email-summarizer-be/service"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the API server",
	Long:  `Starts the HTTP server serving summarization, search and RAG endpoints`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load config")
		}

		// Cache: redis in production, in-memory fallback when unreachable
		var cache database.CacheStore
		var cachePinger handler.Pinger
		redisStore, err := database.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid redis URL")
		}
		if err := redisStore.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, falling back to in-memory cache")
			cache = database.NewMemoryStore()
		} else {
			cache = redisStore
			cachePinger = redisStore
		}

		llm, err := service.NewChatModel(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize LLM")
		}
		embedder, err := service.NewEmbeddingModel(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize embedding model")
		}
		vectorStore, err := repository.NewVectorStore(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize vector store")
		}
		defer vectorStore.Close()

		emailRepo := repository.NewEmailRepository(cfg, cfg.TargetUserID)
		emailService := service.NewEmailService(emailRepo)
		summaryService, err := service.NewSummaryService(cfg, llm, cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize summary service")
		}
		ragService, err := service.NewRAGService(cfg, llm, cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize RAG service")
		}
		retriever := service.NewRetriever(embedder, vectorStore)
		wsService := service.NewWebSocketService(retriever, ragService, cfg.RAGTopK)

		redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid redis URL for task queue")
		}
		queue := asynq.NewClient(redisOpt)
		defer queue.Close()

		// Handlers
		summarizeHandler := handler.NewSummarizeHandler(emailService, summaryService, cfg.LLMProvider)
		emailsHandler := handler.NewEmailsHandler(emailService)
		summariesHandler := handler.NewSummariesHandler(emailService, summaryService, cfg.LLMProvider)
		ragHandler := handler.NewRAGHandler(queue, retriever, ragService, cfg.TargetUserID, cfg.RAGTopK, cfg.LLMProvider)
		healthHandler := handler.NewHealthHandler(cfg.LLMProvider, cfg.VectorStore, cachePinger)

		// Azure AD token validation, skipped in mock mode
		protect := func(h http.Handler) http.Handler { return h }
		if !cfg.UseMockGraphAPI && cfg.AzureTenantID != "" {
			validator, err := middleware.NewTokenValidator(ctx, cfg.AzureTenantID, cfg.AzureClientID)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize token validator")
			}
			protect = validator.Middleware
		} else {
			log.Warn().Msg("Authentication disabled")
		}

		mux := http.NewServeMux()
		mux.Handle("/summarize", protect(summarizeHandler.HandleSummarize()))
		mux.Handle("/emails", protect(emailsHandler.HandleList()))
		mux.Handle("/summaries", protect(summariesHandler.HandleBulk()))
		mux.Handle("/summaries/daily", protect(summariesHandler.HandleDaily()))
		mux.Handle("/rag/ingest", protect(ragHandler.HandleIngest()))
		mux.Handle("/rag/query", protect(ragHandler.HandleQuery()))
		mux.Handle("/rag/ask", protect(ragHandler.HandleAsk()))
		mux.Handle("/rag/ask/stream", protect(ragHandler.HandleAskStream()))
		mux.Handle("/ws/ask", protect(http.HandlerFunc(wsService.HandleAsk)))
		mux.Handle("/health", healthHandler.HandleHealth())

		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests)
		root := handler.CORS(cfg.CORSOrigins)(rateLimiter.Middleware(mux))

		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := http.ListenAndServe(":"+cfg.Port, root); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
