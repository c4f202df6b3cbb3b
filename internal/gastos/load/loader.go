package load

import (
	"context"
	"fmt"

	"github.com/angelitadias/ETL-Pipeline-API/internal/dfutil"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/types"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
	"github.com/angelitadias/ETL-Pipeline-API/internal/store"
	"github.com/go-gota/gota/dataframe"
)

const component = "WarehouseLoader"

// LoadAggregates upserts every Gold row into the spending_aggregates table,
// tagged with the pipeline run that produced it. Returns the number of rows
// loaded.
func LoadAggregates(ctx context.Context, df dataframe.DataFrame, runID string, storage *store.Storage, appLogger *logger.Logger) (int, error) {
	required := []string{types.ColumnAno, types.ColumnMes, types.ColumnNomeOrgao, types.ColumnTotalGasto}
	for _, col := range required {
		if !dfutil.HasColumn(df, col) {
			return 0, fmt.Errorf("gold table missing required column %q (available: %v)", col, df.Names())
		}
	}

	appLogger.Info(component, "Loading gold aggregates into warehouse: rows=%d runID=%s", df.Nrow(), runID)

	anoCol := df.Col(types.ColumnAno)
	mesCol := df.Col(types.ColumnMes)
	orgaoCol := df.Col(types.ColumnNomeOrgao)
	totalCol := df.Col(types.ColumnTotalGasto)

	loaded := 0
	for i := 0; i < df.Nrow(); i++ {
		ano, err := anoCol.Elem(i).Int()
		if err != nil {
			return loaded, fmt.Errorf("row %d: invalid ano: %w", i, err)
		}
		mes, err := mesCol.Elem(i).Int()
		if err != nil {
			return loaded, fmt.Errorf("row %d: invalid mes: %w", i, err)
		}

		agg := &store.SpendingAggregate{
			Ano:        ano,
			Mes:        mes,
			NomeOrgao:  orgaoCol.Elem(i).String(),
			TotalGasto: totalCol.Elem(i).Float(),
			RunID:      runID,
		}
		if err := storage.Aggregates.Upsert(ctx, agg); err != nil {
			return loaded, fmt.Errorf("upserting aggregate (ano=%d mes=%d orgao=%s): %w", ano, mes, agg.NomeOrgao, err)
		}
		loaded++
	}

	appLogger.Info(component, "Warehouse load completed: loaded=%d", loaded)
	return loaded, nil
}
