package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docquery/app/agent"
	"docquery/app/server"
	"docquery/config"
	"docquery/loader"
	"docquery/pipeline"
	"docquery/types"
)

func main() {
	root := &cobra.Command{
		Use:   "docquery",
		Short: "Document query-retrieval service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A .env file is optional outside local development.
			_ = godotenv.Load()
		},
	}
	root.AddCommand(serveCmd(), askCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := server.New(config.Load(), logger)
			if err != nil {
				return err
			}

			go func() {
				if err := s.Run(); err != nil {
					logger.Error("error to start server", zap.Error(err))
				}
			}()

			sigch := make(chan os.Signal, 1)
			signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
			<-sigch
			logger.Info("received shutdown signal, shutting down server")
			s.Stop()
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	var (
		docs      []string
		questions []string
		format    string
		opts      types.ProcessingOptions
	)

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer questions against documents without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg := config.Load()
			embedder, generator, err := server.BuildProviders(cfg)
			if err != nil {
				return err
			}

			synth := agent.NewSynthesizer(generator, cfg.ModelCallsPerSecond, cfg.RetryAttempts, logger)
			pipe := pipeline.New(
				loader.New(logger),
				embedder,
				synth,
				nil,
				cfg.MaxConcurrentQuestions,
				cfg.EmbedTimeout,
				logger,
			)

			req := &types.AnswerRequest{
				Documents:         docs,
				Questions:         questions,
				DocumentFormat:    types.DocumentFormat(format),
				ProcessingOptions: opts,
			}
			if errs := types.Validate(req); len(errs) > 0 {
				return fmt.Errorf("invalid request: %v", errs)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			resp, err := pipe.Run(ctx, req, "cli")
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringArrayVarP(&docs, "doc", "d", nil, "document path or URL (repeatable)")
	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "question to answer (repeatable)")
	cmd.Flags().StringVar(&format, "format", "auto", "document format: pdf, docx, email or auto")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", types.DefaultChunkSize, "chunk size in characters")
	cmd.Flags().IntVar(&opts.ChunkOverlap, "chunk-overlap", types.DefaultChunkOverlap, "chunk overlap in characters")
	cmd.Flags().IntVar(&opts.TopKRetrieval, "top-k", types.DefaultTopK, "retrieved chunks per question")
	cmd.Flags().BoolVar(&opts.IncludeMetadata, "metadata", true, "include per-answer metadata")
	_ = cmd.MarkFlagRequired("doc")

	return cmd
}
