package gold

import (
	"fmt"

	"github.com/angelitadias/ETL-Pipeline-API/internal/dfutil"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/types"
	"github.com/angelitadias/ETL-Pipeline-API/internal/lake"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
	"github.com/go-gota/gota/dataframe"
)

const component = "GoldBuilder"

// requiredColumns must exist in Silver for the aggregation to make sense.
var requiredColumns = []string{types.ColumnAno, types.ColumnMes, types.ColumnNomeOrgao, types.ColumnValor}

// Builder aggregates Silver to the business grain: total spending per
// (ano, mes, nome_orgao).
type Builder struct {
	silverDir string
	outDir    string
	appLogger *logger.Logger
}

func NewBuilder(silverDir, outDir string, appLogger *logger.Logger) *Builder {
	return &Builder{silverDir: silverDir, outDir: outDir, appLogger: appLogger}
}

// Build reads Silver as a logical partitioned dataset (ano/mes come from the
// directory layout, not from the row payloads), sums valor per grain tuple
// and writes the Gold table partitioned the same way, replacing the previous
// Gold output.
func (b *Builder) Build() error {
	b.appLogger.Info(component, "Starting Gold build: input=%s output=%s", b.silverDir, b.outDir)

	df, err := lake.ReadPartitioned(b.silverDir, types.PartitionColumns)
	if err != nil {
		return fmt.Errorf("reading silver table: %w", err)
	}
	b.appLogger.Info(component, "Silver records read: rows=%d", df.Nrow())

	for _, col := range requiredColumns {
		if !dfutil.HasColumn(df, col) {
			return fmt.Errorf("silver table missing required column %q (available: %v)", col, df.Names())
		}
	}

	grouped := df.GroupBy(types.ColumnAno, types.ColumnMes, types.ColumnNomeOrgao)
	if grouped.Err != nil {
		return fmt.Errorf("grouping silver records: %w", grouped.Err)
	}

	agg := grouped.Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_SUM},
		[]string{types.ColumnValor},
	)
	if agg.Error() != nil {
		return fmt.Errorf("aggregating valor: %w", agg.Error())
	}

	agg = agg.Rename(types.ColumnTotalGasto, types.ColumnValor+"_SUM")
	if agg.Error() != nil {
		return fmt.Errorf("renaming aggregate column: %w", agg.Error())
	}

	if err := lake.WritePartitioned(agg, b.outDir, types.PartitionColumns, b.appLogger); err != nil {
		return fmt.Errorf("writing gold table: %w", err)
	}

	b.appLogger.Info(component, "Gold build completed: aggregatedRows=%d", agg.Nrow())
	return nil
}
