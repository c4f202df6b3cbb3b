package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/angelitadias/ETL-Pipeline-API/internal/config"
	"github.com/angelitadias/ETL-Pipeline-API/internal/db"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/load"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/types"
	"github.com/angelitadias/ETL-Pipeline-API/internal/lake"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
	"github.com/angelitadias/ETL-Pipeline-API/internal/store"
	"github.com/google/uuid"
)

// Exit codes per stage so schedulers can tell failures apart.
const (
	exitFetch  = 2
	exitBronze = 3
	exitSilver = 4
	exitGold   = 5
	exitLoad   = 6
)

func exitCode(err error) int {
	var stageErr *gastos.StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case gastos.StageFetch:
			return exitFetch
		case gastos.StageBronze:
			return exitBronze
		case gastos.StageSilver:
			return exitSilver
		case gastos.StageGold:
			return exitGold
		}
	}
	return 1
}

func loadWarehouse(ctx context.Context, cfg *config.Config, runID string, appLogger *logger.Logger) error {
	const component = "Main"

	database, err := db.New(
		cfg.DB.Addr,
		cfg.DB.MaxOpenConns,
		cfg.DB.MaxIdleConns,
		cfg.DB.MaxIdleTime)
	if err != nil {
		return err
	}
	defer database.Close()
	appLogger.Info(component, "Database connection pool established")

	storage := store.NewStorage(database)

	df, err := lake.ReadPartitioned(cfg.GoldDir, types.PartitionColumns)
	if err != nil {
		return err
	}

	loaded, loadErr := load.LoadAggregates(ctx, df, runID, storage, appLogger)

	history := &store.IngestionHistory{
		RunID:         runID,
		Dataset:       cfg.DatasetSlug,
		TableName:     cfg.TableName,
		Status:        store.StatusSuccess,
		RecordsLoaded: loaded,
	}
	if loadErr != nil {
		history.Status = store.StatusFailure
		history.Message = loadErr.Error()
	}
	if err := storage.IngestionHistory.Insert(ctx, history); err != nil {
		appLogger.Error(component, "Failed to record ingestion history: runID=%s error=%v", runID, err)
	}

	return loadErr
}

func main() {
	const component = "Main"
	var appLogger = &logger.Logger{MinLevel: logger.LevelInfo}

	// Configure log output format
	log.SetFlags(0) // Remove default timestamp since we add our own

	startingTime := time.Now()

	logLevelPtr := flag.String("loglevel", "info", "Log level: debug, info, warn, error")
	skipFetchPtr := flag.Bool("skip-fetch", false, "Reuse raw pages on disk instead of fetching")
	loadPtr := flag.Bool("load", false, "Load gold aggregates into the warehouse after the pipeline")
	flag.Parse()

	appLogger.SetLogLevel(logger.ParseLevel(*logLevelPtr))

	cfg := config.Load()
	runID := uuid.NewString()

	appLogger.Info(component, "Application starting: dataset=%s table=%s runID=%s startTime=%s",
		cfg.DatasetSlug, cfg.TableName, runID, startingTime.Format(time.RFC3339))

	if !*skipFetchPtr && cfg.APIToken == "" {
		appLogger.Error(component, "API_TOKEN is required to fetch data (set it in the environment or .env)")
		os.Exit(exitFetch)
	}

	if err := cfg.EnsureDirs(); err != nil {
		appLogger.Fatal(component, "Failed to create dataset directories: error=%v", err)
	}

	ctx := context.Background()

	pipeline := gastos.New(cfg, appLogger)
	pipeline.SkipFetch = *skipFetchPtr

	if err := pipeline.Run(ctx); err != nil {
		appLogger.Error(component, "Pipeline failed: runID=%s error=%v", runID, err)
		os.Exit(exitCode(err))
	}

	if *loadPtr {
		if err := loadWarehouse(ctx, cfg, runID, appLogger); err != nil {
			appLogger.Error(component, "Warehouse load failed: runID=%s error=%v", runID, err)
			os.Exit(exitLoad)
		}
	}

	timeTaken := time.Since(startingTime)
	appLogger.Info(component, "Application completed successfully: runID=%s duration=%.2f seconds", runID, timeTaken.Seconds())
}
