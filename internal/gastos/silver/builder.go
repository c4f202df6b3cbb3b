package silver

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelitadias/ETL-Pipeline-API/internal/dfutil"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/quality"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/types"
	"github.com/angelitadias/ETL-Pipeline-API/internal/lake"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const component = "SilverBuilder"

// Builder reads Bronze, normalizes it and publishes Silver only when the
// quality gate passes.
type Builder struct {
	bronzeDir string
	outDir    string
	appLogger *logger.Logger
}

func NewBuilder(bronzeDir, outDir string, appLogger *logger.Logger) *Builder {
	return &Builder{bronzeDir: bronzeDir, outDir: outDir, appLogger: appLogger}
}

// Rules is the gate a record set must pass before Silver is published.
func Rules() []quality.Rule {
	return []quality.Rule{
		quality.NotNull{Columns: types.CriticalColumns},
		quality.Range{Column: types.ColumnMes, Min: 1, Max: 12},
		quality.NonNegative{Column: types.ColumnValor},
	}
}

// NormalizeText trims surrounding whitespace and uppercases using Brazilian
// Portuguese casing rules. Applying it twice yields the same result as once.
func NormalizeText(s string) string {
	return cases.Upper(language.BrazilianPortuguese).String(strings.TrimSpace(s))
}

// Build applies the cleaning rules in order (valor numeric with nulls to 0,
// text standardization, nullable integer partition keys), runs the quality
// gate and writes the partitioned Silver table. A gate failure aborts the
// build and leaves any previously published Silver output untouched.
func (b *Builder) Build() error {
	b.appLogger.Info(component, "Starting Silver build: input=%s output=%s", b.bronzeDir, b.outDir)

	df, err := lake.ReadPartitioned(b.bronzeDir, types.PartitionColumns)
	if err != nil {
		return fmt.Errorf("reading bronze table: %w", err)
	}
	if df.Nrow() == 0 {
		return errors.New("bronze table is empty")
	}

	df = b.coerceValor(df)
	df = b.normalizeTextColumns(df)
	df = b.coercePartitionKeys(df)

	if err := quality.Evaluate(df, Rules()); err != nil {
		return fmt.Errorf("quality gate failed: %w", err)
	}
	b.appLogger.Info(component, "Quality gate passed: rows=%d", df.Nrow())

	b.logSummary(df)

	df = b.normalizePaymentDates(df)

	if err := lake.WritePartitioned(df, b.outDir, types.PartitionColumns, b.appLogger); err != nil {
		return fmt.Errorf("writing silver table: %w", err)
	}

	partitions, err := lake.PartitionDirs(b.outDir)
	if err != nil {
		return err
	}
	b.appLogger.Info(component, "Silver build completed: records=%d partitions=%d", df.Nrow(), len(partitions))
	return nil
}

// coerceValor forces valor to a numeric column with nulls replaced by 0.
func (b *Builder) coerceValor(df dataframe.DataFrame) dataframe.DataFrame {
	if !dfutil.HasColumn(df, types.ColumnValor) {
		return df
	}
	src := df.Col(types.ColumnValor)
	vals := make([]float64, src.Len())
	for i := 0; i < src.Len(); i++ {
		elem := src.Elem(i)
		if elem.IsNA() {
			continue
		}
		if v := elem.Float(); !math.IsNaN(v) {
			vals[i] = v
		}
	}
	return df.Mutate(series.New(vals, series.Float, types.ColumnValor))
}

// normalizeTextColumns standardizes the text columns. Null cells stay null so
// the gate can still see them; "NaN" is the marker gota reads back as null.
func (b *Builder) normalizeTextColumns(df dataframe.DataFrame) dataframe.DataFrame {
	for _, col := range types.TextColumns {
		if !dfutil.HasColumn(df, col) {
			continue
		}
		src := df.Col(col)
		normalized := make([]string, src.Len())
		for i := 0; i < src.Len(); i++ {
			elem := src.Elem(i)
			if elem.IsNA() {
				normalized[i] = "NaN"
				continue
			}
			normalized[i] = NormalizeText(elem.String())
		}
		df = df.Mutate(series.New(normalized, series.String, col))
	}
	return df
}

// coercePartitionKeys retypes ano/mes as nullable integers. A value that
// cannot be converted becomes null rather than failing the build; the gate
// catches the null afterwards.
func (b *Builder) coercePartitionKeys(df dataframe.DataFrame) dataframe.DataFrame {
	for _, col := range types.PartitionColumns {
		if !dfutil.HasColumn(df, col) {
			continue
		}
		df = df.Mutate(series.New(df.Col(col), series.Int, col))
	}
	return df
}

// normalizePaymentDates rewrites data_pagamento as ISO dates. Best effort:
// unparseable values are left as they are.
func (b *Builder) normalizePaymentDates(df dataframe.DataFrame) dataframe.DataFrame {
	if !dfutil.HasColumn(df, types.ColumnDataPagamento) {
		return df
	}
	records := df.Col(types.ColumnDataPagamento).Records()
	failures := 0
	parsed := make([]string, len(records))
	for i, rec := range records {
		t, ok := parseDate(rec)
		if !ok {
			parsed[i] = rec
			failures++
			continue
		}
		parsed[i] = t.Format("2006-01-02")
	}
	if failures > 0 {
		b.appLogger.Warn(component, "Could not parse all payment dates: column=%s failures=%d", types.ColumnDataPagamento, failures)
	}
	return df.Mutate(series.New(parsed, series.String, types.ColumnDataPagamento))
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (b *Builder) logSummary(df dataframe.DataFrame) {
	orgaos := make(map[string]struct{})
	if dfutil.HasColumn(df, types.ColumnNomeOrgao) {
		for _, rec := range df.Col(types.ColumnNomeOrgao).Records() {
			orgaos[rec] = struct{}{}
		}
	}

	mean := 0.0
	if dfutil.HasColumn(df, types.ColumnValor) && df.Nrow() > 0 {
		total := 0.0
		for i := 0; i < df.Nrow(); i++ {
			total += df.Col(types.ColumnValor).Elem(i).Float()
		}
		mean = total / float64(df.Nrow())
	}

	b.appLogger.Info(component, "Silver summary: rows=%d distinctOrgaos=%d meanValor=%.2f", df.Nrow(), len(orgaos), mean)
}
