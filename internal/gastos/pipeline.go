package gastos

import (
	"context"
	"fmt"

	"github.com/angelitadias/ETL-Pipeline-API/internal/config"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/bronze"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/fetch"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/gold"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/raw"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/silver"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
	"github.com/angelitadias/ETL-Pipeline-API/internal/retry"
)

const component = "Pipeline"

// Stage identifies a pipeline step, mostly for error and exit code mapping.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageBronze Stage = "bronze"
	StageSilver Stage = "silver"
	StageGold   Stage = "gold"
)

// StageError wraps a stage failure so callers can map it to a distinct
// exit code.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline runs the medallion stages in order: fetch, bronze, silver, gold.
// Each stage only starts after the previous one succeeded.
type Pipeline struct {
	fetcher   *fetch.Client
	bronze    *bronze.Builder
	silver    *silver.Builder
	gold      *gold.Builder
	appLogger *logger.Logger

	// SkipFetch reuses the raw pages already on disk instead of hitting
	// the API.
	SkipFetch bool
}

func New(cfg *config.Config, appLogger *logger.Logger) *Pipeline {
	pageStore := raw.NewStore(cfg.RawDir, cfg.DatasetSlug, cfg.TableName)
	policy := &retry.Policy{
		MaxAttempts: cfg.RateLimitMaxRetries,
		BaseDelay:   cfg.RateLimitBackoff,
		Logger:      appLogger,
	}
	fetcher := fetch.New(pageStore, policy, fetch.Options{
		BaseURL:      cfg.BaseURL,
		Token:        cfg.APIToken,
		RequestDelay: cfg.RequestDelay,
	}, appLogger)

	return &Pipeline{
		fetcher:   fetcher,
		bronze:    bronze.NewBuilder(pageStore, cfg.BronzeDir, appLogger),
		silver:    silver.NewBuilder(cfg.BronzeDir, cfg.SilverDir, appLogger),
		gold:      gold.NewBuilder(cfg.SilverDir, cfg.GoldDir, appLogger),
		appLogger: appLogger,
	}
}

func (p *Pipeline) Run(ctx context.Context) error {
	if p.SkipFetch {
		p.appLogger.Info(component, "Skipping fetch stage, reusing raw pages on disk")
	} else {
		if err := p.fetcher.Run(ctx); err != nil {
			return &StageError{Stage: StageFetch, Err: err}
		}
	}

	if err := p.bronze.Build(); err != nil {
		return &StageError{Stage: StageBronze, Err: err}
	}
	if err := p.silver.Build(); err != nil {
		return &StageError{Stage: StageSilver, Err: err}
	}
	if err := p.gold.Build(); err != nil {
		return &StageError{Stage: StageGold, Err: err}
	}

	p.appLogger.Info(component, "Pipeline completed successfully")
	return nil
}
