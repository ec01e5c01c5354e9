package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/cloudinary"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/config"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/delivery"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/groq"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/media"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/pipeline"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/repository"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/wiki"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	logger.Info("Starting daily history pipeline...")

	cfgPath := "configs/config.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	auditRepo := repository.NewIngestionLogRepository(db, logger)
	archiveRepo := repository.NewProcessedEventRepository(db, logger)

	ctx := context.Background()

	// Collaborator construction. Failures here still leave an audit
	// record, tagged INIT_ERROR.
	groqClient, err := groq.NewClient(groq.Config{
		APIKey:     cfg.AI.APIKey,
		ModelName:  cfg.AI.ModelName,
		MaxRetries: cfg.AI.MaxRetries,
	}, logger)
	if err != nil {
		auditInitFailure(ctx, auditRepo, logger, err)
		os.Exit(1)
	}

	modelInfo := groqClient.GetModelInfo()
	modelName := "unknown"
	if m, ok := modelInfo["model"].(string); ok {
		modelName = m
	}
	logger.Info("AI scoring ready", zap.String("model", modelName))

	cloudinaryClient, err := cloudinary.NewClient(cloudinary.Config{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
	}, logger)
	if err != nil {
		auditInitFailure(ctx, auditRepo, logger, err)
		os.Exit(1)
	}

	wikiClient := wiki.NewClient(cfg.Wiki.BaseURL, cfg.Wiki.UserAgent, logger)
	enricher := media.NewEnricher(wikiClient, cloudinaryClient, logger)
	deliveryClient := delivery.NewClient(cfg.Delivery.URL, cfg.Delivery.Secret, logger)

	p := pipeline.NewPipeline(pipeline.Config{
		APISecret:       cfg.Delivery.Secret,
		MaxCandidates:   cfg.AI.MaxCandidates,
		DeliveryEnabled: cfg.Delivery.Enabled,
	}, wikiClient, groqClient, enricher, deliveryClient, auditRepo, archiveRepo, logger)

	entry := p.Run(ctx)

	logger.Info("Pipeline run complete", zap.String("status", entry.Status))
	if entry.Status != pipeline.StatusSuccess &&
		entry.Status != pipeline.StatusSuccessUploaded &&
		entry.Status != pipeline.StatusPartialSuccess {
		os.Exit(1)
	}
}

func auditInitFailure(ctx context.Context, audit repository.IngestionLogRepository, logger *zap.Logger, initErr error) {
	logger.Error("Collaborator construction failed", zap.Error(initErr))

	msg := pipeline.TruncateMessage(initErr.Error())
	entry := &models.IngestionLog{
		EventDate:    time.Now(),
		Status:       pipeline.StatusInitError,
		ErrorMessage: &msg,
	}
	if err := audit.Insert(ctx, entry); err != nil {
		logger.Error("Failed to write audit record", zap.Error(err))
	}
}
