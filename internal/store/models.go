package store

import (
	"time"
)

// SpendingAggregate represents the 'spending_aggregates' table, one row per
// (ano, mes, nome_orgao) grain tuple of the Gold layer.
type SpendingAggregate struct {
	ID         int64     `db:"id" json:"id"`
	Ano        int       `db:"ano" json:"ano"`
	Mes        int       `db:"mes" json:"mes"`
	NomeOrgao  string    `db:"nome_orgao" json:"nome_orgao"`
	TotalGasto float64   `db:"total_gasto" json:"total_gasto"`
	RunID      string    `db:"run_id" json:"run_id"`
	InsertedAt time.Time `db:"inserted_at" json:"inserted_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// IngestionHistory represents the 'ingestion_history' table.
type IngestionHistory struct {
	ID            int64     `db:"id" json:"id"`
	RunID         string    `db:"run_id" json:"run_id"`
	Dataset       string    `db:"dataset" json:"dataset"`
	TableName     string    `db:"table_name" json:"table_name"`
	Status        string    `db:"status" json:"status"`
	RecordsLoaded int       `db:"records_loaded" json:"records_loaded"`
	Message       string    `db:"message" json:"message"`
	ProcessedAt   time.Time `db:"processed_at" json:"processed_at"`
}

// AggregateFilter narrows aggregate queries. Zero values mean "no filter"
// on that dimension.
type AggregateFilter struct {
	Ano       int
	Mes       int
	NomeOrgao string
}

// OrgaoTotal is a ranking row of total spending by organ across the
// selected period.
type OrgaoTotal struct {
	NomeOrgao  string  `db:"nome_orgao" json:"nome_orgao"`
	TotalGasto float64 `db:"total_gasto" json:"total_gasto"`
	Periods    int     `db:"periods" json:"periods"`
}
