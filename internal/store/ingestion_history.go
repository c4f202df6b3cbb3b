package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type IngestionHistoryStore struct {
	db *sqlx.DB
}

var (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

func (ih *IngestionHistoryStore) Insert(ctx context.Context, history *IngestionHistory) error {
	query := `INSERT INTO ingestion_history (
		run_id,
		dataset,
		table_name,
		status,
		records_loaded,
		message
	) VALUES (
		:run_id,
		:dataset,
		:table_name,
		:status,
		:records_loaded,
		:message
	) RETURNING id, processed_at`

	// NamedQueryContext instead of NamedExecContext so the generated id and
	// timestamp come back into the struct.
	rows, err := ih.db.NamedQueryContext(ctx, query, history)
	if err != nil {
		return fmt.Errorf("failed to insert ingestion history: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&history.ID, &history.ProcessedAt); err != nil {
			return err
		}
	}
	return nil
}

func (ih *IngestionHistoryStore) GetLatest(ctx context.Context, limit int) ([]IngestionHistory, error) {
	query := `
	SELECT
		id,
		run_id,
		dataset,
		table_name,
		status,
		records_loaded,
		message,
		processed_at
	FROM
		ingestion_history
	ORDER BY
		processed_at DESC
	LIMIT $1;
	`

	history := []IngestionHistory{}
	err := ih.db.SelectContext(ctx, &history, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingestion history: %w", err)
	}
	return history, nil
}
