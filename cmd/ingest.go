/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/repository"
	"github.com/tieubaoca/email-summarizer-be/service"
)

// ingestCmd runs one ingestion synchronously, without the queue. Useful for
// backfills and local testing.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest emails matching a query into the vector store",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		query, _ := cmd.Flags().GetString("query")
		userID, _ := cmd.Flags().GetString("user")

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load config")
		}
		if userID == "" {
			userID = cfg.TargetUserID
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

		emailRepo := repository.NewEmailRepository(cfg, userID)
		ingestService := service.NewIngestService(emailRepo, embedder, vectorStore)

		count, err := ingestService.Ingest(ctx, query, userID)
		if err != nil {
			log.Fatal().Err(err).Msg("Ingestion failed")
		}
		log.Info().Int("ingested_count", count).Msg("Ingestion complete")
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringP("query", "q", "", "search query for emails to ingest")
	ingestCmd.Flags().StringP("user", "u", "", "mailbox user id (defaults to target_user_id)")
}
