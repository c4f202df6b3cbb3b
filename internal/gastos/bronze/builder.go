package bronze

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelitadias/ETL-Pipeline-API/internal/dfutil"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/raw"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/types"
	"github.com/angelitadias/ETL-Pipeline-API/internal/lake"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const component = "BronzeBuilder"

// Builder consolidates all raw pages into a single partitioned table.
type Builder struct {
	store     *raw.Store
	outDir    string
	appLogger *logger.Logger
}

func NewBuilder(store *raw.Store, outDir string, appLogger *logger.Logger) *Builder {
	return &Builder{store: store, outDir: outDir, appLogger: appLogger}
}

// Build decodes every persisted page, concatenates the records and writes
// the Bronze table partitioned by ano/mes, replacing the previous Bronze
// output. Corrupt pages are skipped with a logged error; a missing partition
// column aborts the build before anything is written.
func (b *Builder) Build() error {
	b.appLogger.Info(component, "Starting Bronze build: output=%s", b.outDir)

	pages, err := b.store.List()
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return errors.New("no raw pages found")
	}

	var records []map[string]any
	decodeFailures := 0
	for _, page := range pages {
		payload, readErr := b.store.Read(page)
		if readErr != nil {
			b.appLogger.Error(component, "Failed to read page, skipping: page=%d error=%v", page, readErr)
			decodeFailures++
			continue
		}

		var p types.Page
		if decErr := json.Unmarshal(payload, &p); decErr != nil {
			b.appLogger.Error(component, "Failed to decode page, skipping: page=%d error=%v", page, decErr)
			decodeFailures++
			continue
		}
		records = append(records, p.Results...)
	}

	if len(records) == 0 {
		return errors.New("no records to process")
	}

	df := dataframe.LoadMaps(records)
	if df.Error() != nil {
		return fmt.Errorf("consolidating raw records: %w", df.Error())
	}
	b.appLogger.Info(component, "Raw pages consolidated: pages=%d skippedPages=%d records=%d", len(pages), decodeFailures, df.Nrow())

	for _, col := range types.PartitionColumns {
		if !dfutil.HasColumn(df, col) {
			return fmt.Errorf("missing required partition column %q (available: %v)", col, df.Names())
		}
	}

	df = b.coercePartitionColumns(df)

	if err := lake.WritePartitioned(df, b.outDir, types.PartitionColumns, b.appLogger); err != nil {
		return fmt.Errorf("writing bronze table: %w", err)
	}

	partitions, err := lake.PartitionDirs(b.outDir)
	if err != nil {
		return err
	}
	b.appLogger.Info(component, "Bronze build completed: records=%d partitions=%d", df.Nrow(), len(partitions))
	return nil
}

// coercePartitionColumns converts ano/mes to integers. Values that cannot be
// converted become nulls; the failure is logged but does not abort the build.
func (b *Builder) coercePartitionColumns(df dataframe.DataFrame) dataframe.DataFrame {
	for _, col := range types.PartitionColumns {
		before := dfutil.CountNA(df.Col(col))
		coerced := series.New(df.Col(col), series.Int, col)
		failures := dfutil.CountNA(coerced) - before
		if failures > 0 {
			b.appLogger.Warn(component, "Could not convert all values to integer: column=%s failures=%d", col, failures)
		}
		df = df.Mutate(coerced)
	}
	return df
}
