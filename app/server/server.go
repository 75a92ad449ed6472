package server

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docquery/app/agent"
	"docquery/app/api"
	"docquery/config"
	"docquery/loader"
	"docquery/model"
	"docquery/pipeline"
	"docquery/session"
	"docquery/store"
)

type Server struct {
	cfg      config.Config
	app      *fiber.App
	sessions *session.Registry
	store    *store.PostgresStore
	logger   *zap.Logger
}

func New(cfg config.Config, logger *zap.Logger) (*Server, error) {
	embedder, generator, err := BuildProviders(cfg)
	if err != nil {
		return nil, err
	}

	var pg *store.PostgresStore
	var archive pipeline.Archive
	if cfg.PostgresDSN != "" {
		pg, err = store.NewPostgresStore(context.Background(), cfg.PostgresDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("error connecting to postgres: %w", err)
		}
		if err := pg.Init(context.Background()); err != nil {
			pg.Close()
			return nil, fmt.Errorf("error creating tables: %w", err)
		}
		archive = pg
	}

	sessions := session.NewRegistry()
	synth := agent.NewSynthesizer(generator, cfg.ModelCallsPerSecond, cfg.RetryAttempts, logger)
	pipe := pipeline.New(
		loader.New(logger),
		embedder,
		synth,
		archive,
		cfg.MaxConcurrentQuestions,
		cfg.EmbedTimeout,
		logger,
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
		BodyLimit:    64 * 1024 * 1024, // large PDFs arrive through /upload
	})

	var (
		checkHandler   = api.NewCheckHandler(sessions)
		answerHandler  = api.NewAnswerHandler(pipe, sessions, logger)
		fileHandler    = api.NewFileHandler(cfg.UploadDir, logger)
		sessionHandler = api.NewSessionHandler(sessions)
		check          = app.Group("/check")
		apiv1          = app.Group("/api/v1")
	)

	app.Get("/", checkHandler.HandleRoot)
	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Get("/health", checkHandler.HandleHealth)
	apiv1.Get("/metrics", checkHandler.HandleMetrics)
	apiv1.Post("/answer", answerHandler.HandleAnswer)
	apiv1.Post("/upload", fileHandler.HandleUpload)
	apiv1.Get("/sessions", sessionHandler.HandleList)
	apiv1.Get("/sessions/:id", sessionHandler.HandleGet)
	apiv1.Delete("/sessions/:id", sessionHandler.HandleDelete)

	if pg != nil {
		documentHandler := api.NewDocumentHandler(pg, embedder)
		apiv1.Get("/documents", documentHandler.HandleList)
		apiv1.Post("/documents/search", documentHandler.HandleSearch)
	}

	return &Server{
		cfg:      cfg,
		app:      app,
		sessions: sessions,
		store:    pg,
		logger:   logger,
	}, nil
}

// BuildProviders picks the embedder/generator pair from configuration.
func BuildProviders(cfg config.Config) (model.Embedder, model.Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return model.NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.GeminiEmbed),
			model.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiModel),
			nil
	case "ollama":
		return model.NewOllamaEmbedder(cfg.OllamaEmbedURL, cfg.OllamaEmbedName, cfg.EmbedTimeout),
			model.NewOllamaGenerator(cfg.OllamaURL, cfg.OllamaModel, cfg.ModelTimeout),
			nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

func (s *Server) Run() error {
	s.logger.Info("server listening", zap.String("addr", s.cfg.ListenAddr))
	return s.app.Listen(s.cfg.ListenAddr)
}

func (s *Server) Stop() {
	if err := s.app.Shutdown(); err != nil {
		s.logger.Error("error shutting down server", zap.Error(err))
	}
	if s.store != nil {
		s.store.Close()
	}
	s.logger.Info("server stopped")
}
