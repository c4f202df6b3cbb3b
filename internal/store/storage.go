package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Storage struct {
	Aggregates interface {
		Upsert(ctx context.Context, agg *SpendingAggregate) error
		GetByPeriod(ctx context.Context, filter AggregateFilter) ([]SpendingAggregate, error)
		GetTopOrgaos(ctx context.Context, filter AggregateFilter, limit int) ([]OrgaoTotal, error)
	}

	IngestionHistory interface {
		Insert(ctx context.Context, history *IngestionHistory) error
		GetLatest(ctx context.Context, limit int) ([]IngestionHistory, error)
	}
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Aggregates:       &AggregatesStore{db: db},
		IngestionHistory: &IngestionHistoryStore{db: db},
	}
}
