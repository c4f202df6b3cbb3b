package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type AggregatesStore struct {
	db *sqlx.DB
}

// Upsert inserts or replaces the aggregate row for its grain tuple. Reloads
// of the same period overwrite the previous total instead of duplicating it.
func (as *AggregatesStore) Upsert(ctx context.Context, agg *SpendingAggregate) error {
	query := `INSERT INTO spending_aggregates (
		ano,
		mes,
		nome_orgao,
		total_gasto,
		run_id
	) VALUES (
		:ano,
		:mes,
		:nome_orgao,
		:total_gasto,
		:run_id
	) ON CONFLICT (ano, mes, nome_orgao) DO UPDATE SET
		total_gasto = EXCLUDED.total_gasto,
		run_id = EXCLUDED.run_id,
		updated_at = NOW()`

	_, err := as.db.NamedExecContext(ctx, query, agg)
	if err != nil {
		return fmt.Errorf("failed to upsert spending aggregate: %w", err)
	}
	return nil
}

func (as *AggregatesStore) GetByPeriod(ctx context.Context, filter AggregateFilter) ([]SpendingAggregate, error) {
	query := `
	SELECT
		id,
		ano,
		mes,
		nome_orgao,
		total_gasto,
		run_id,
		inserted_at,
		updated_at
	FROM
		spending_aggregates
	WHERE
		($1 = 0 OR ano = $1)
		AND ($2 = 0 OR mes = $2)
		AND ($3 = '' OR nome_orgao = $3)
	ORDER BY
		ano, mes, nome_orgao;
	`

	aggregates := []SpendingAggregate{}
	err := as.db.SelectContext(ctx, &aggregates, query, filter.Ano, filter.Mes, filter.NomeOrgao)
	if err != nil {
		return nil, fmt.Errorf("failed to query spending aggregates: %w", err)
	}
	return aggregates, nil
}

func (as *AggregatesStore) GetTopOrgaos(ctx context.Context, filter AggregateFilter, limit int) ([]OrgaoTotal, error) {
	query := `
	SELECT
		nome_orgao,
		SUM(total_gasto) AS total_gasto,
		COUNT(*) AS periods
	FROM
		spending_aggregates
	WHERE
		($1 = 0 OR ano = $1)
		AND ($2 = 0 OR mes = $2)
	GROUP BY
		nome_orgao
	ORDER BY
		total_gasto DESC
	LIMIT $3;
	`

	rows, err := as.db.QueryxContext(ctx, query, filter.Ano, filter.Mes, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top orgaos: %w", err)
	}
	defer rows.Close()

	results := []OrgaoTotal{}
	for rows.Next() {
		row := OrgaoTotal{}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan top orgao row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
