/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/repository"
	"github.com/tieubaoca/email-summarizer-be/service"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background ingestion worker",
	Long:  `Starts a worker process that consumes email ingestion tasks from the queue`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load config")
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
		ingestService := service.NewIngestService(emailRepo, embedder, vectorStore)

		redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid redis URL for task queue")
		}

		srv := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 5})
		mux := asynq.NewServeMux()
		mux.HandleFunc(service.TaskTypeRAGIngest, ingestService.HandleRAGIngestTask)

		log.Info().Msg("Starting ingestion worker")
		if err := srv.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Worker error")
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
