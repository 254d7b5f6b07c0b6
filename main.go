package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ayubridge/mapping-engine/pkg/config"
	"github.com/ayubridge/mapping-engine/pkg/database"
	"github.com/ayubridge/mapping-engine/pkg/logging"
	"github.com/ayubridge/mapping-engine/pkg/repositories"
	"github.com/ayubridge/mapping-engine/pkg/services"
	"github.com/ayubridge/mapping-engine/pkg/whoicd"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Mapping run aborted", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("source_release", cfg.Terminology.SourceRelease),
		zap.String("target_release", cfg.Terminology.TargetRelease))

	if err := cfg.ValidateForRun(); err != nil {
		return err
	}

	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := database.RunMigrations(migrationDB, "migrations", logger); err != nil {
		migrationDB.Close()
		return err
	}
	migrationDB.Close()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	cache, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		// The cache is an optimization; a run without it just hits the WHO
		// API for every search.
		logger.Warn("Redis unavailable, search cache disabled", zap.Error(err))
		cache = nil
	}
	if cache != nil {
		defer cache.Close()
	}

	tables, err := services.LoadRuleTables()
	if err != nil {
		return err
	}

	termRepo := repositories.NewTermRepository(db)
	recordRepo := repositories.NewMappingRecordRepository(db)
	runRepo := repositories.NewMappingRunRepository(db)
	feedbackRepo := repositories.NewFeedbackRepository(db)
	icdRepo := repositories.NewICDCodeRepository(db)

	whoClient := whoicd.NewClient(&cfg.WHO, &cfg.Redis, cache, logger)
	adapters := []services.CandidateSearcher{
		services.NewRuleBridgeAdapter(tables, &cfg.Terminology, logger),
		services.NewLocalIndexAdapter(icdRepo, &cfg.Terminology, cfg.Mapping.LocalTopK, logger),
		services.NewRemoteAPIAdapter(whoClient, &cfg.Terminology, cfg.Mapping.RemoteTopK,
			time.Duration(cfg.WHO.TimeoutSeconds)*time.Second, logger),
	}

	engine := services.NewMappingEngine(
		cfg,
		termRepo,
		recordRepo,
		runRepo,
		services.NewFeedbackService(feedbackRepo, logger),
		services.NewNormalizer(tables),
		adapters,
		services.NewSignalScorer(&cfg.Mapping, &cfg.Terminology, tables),
		services.NewTierClassifier(&cfg.Mapping, &cfg.Terminology),
		services.NewMappingAssembler(&cfg.Terminology),
		logger,
	)

	runID := uuid.New()
	result, err := engine.Run(ctx, runID)
	if result != nil {
		for tier, count := range result.Stats.TierCounts {
			logger.Info("Tier summary", zap.String("tier", string(tier)), zap.Int("mappings", count))
		}
	}
	return err
}
