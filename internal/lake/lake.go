package lake

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/angelitadias/ETL-Pipeline-API/internal/dfutil"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/parquet-go/parquet-go"
)

const component = "Lake"

const dataFileName = "data.parquet"

// WritePartitioned writes df as a hive-partitioned Parquet table rooted at
// root. Partition columns are encoded in the directory layout
// (col=value/...) and dropped from the file payloads, so their values are
// recoverable from the path structure alone. Any table previously stored at
// root is replaced. Rows whose partition key is null cannot be placed in a
// partition and are dropped with a warning.
func WritePartitioned(df dataframe.DataFrame, root string, partitionCols []string, appLogger *logger.Logger) error {
	if df.Error() != nil {
		return fmt.Errorf("invalid dataframe: %w", df.Error())
	}
	for _, col := range partitionCols {
		if !dfutil.HasColumn(df, col) {
			return fmt.Errorf("partition column %q not found (available: %v)", col, df.Names())
		}
	}

	rows := dataframeToRows(df)
	schema := payloadSchema(filepath.Base(root), df, partitionCols)

	partitions := make(map[string][]map[string]any)
	dropped := 0
	for _, row := range rows {
		dir, ok := partitionDir(row, partitionCols)
		if !ok {
			dropped++
			continue
		}
		for _, col := range partitionCols {
			delete(row, col)
		}
		partitions[dir] = append(partitions[dir], row)
	}
	if dropped > 0 {
		appLogger.Warn(component, "Dropped rows with null partition keys: root=%s rows=%d", root, dropped)
	}

	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("clearing previous table at %s: %w", root, err)
	}

	dirs := make([]string, 0, len(partitions))
	for dir := range partitions {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		partDir := filepath.Join(root, dir)
		if err := os.MkdirAll(partDir, os.ModePerm); err != nil {
			return fmt.Errorf("creating partition directory %s: %w", partDir, err)
		}
		if err := writePartitionFile(filepath.Join(partDir, dataFileName), partitions[dir], schema); err != nil {
			return err
		}
	}

	appLogger.Debug(component, "Partitioned table written: root=%s partitions=%d rows=%d", root, len(dirs), len(rows)-dropped)
	return nil
}

// ReadPartitioned reads back a hive-partitioned table, reattaching the
// partition columns from the directory names. Cells that were null when the
// table was written are null again in the returned frame.
func ReadPartitioned(root string, partitionCols []string) (dataframe.DataFrame, error) {
	files, err := listDataFiles(root)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(files) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("no data files found under %s", root)
	}

	var all []map[string]any
	for _, path := range files {
		keys, err := partitionValues(root, path, partitionCols)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		rows, err := readPartitionFile(path)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		for _, row := range rows {
			for col, val := range keys {
				row[col] = val
			}
			all = append(all, row)
		}
	}

	df := dataframe.LoadMaps(all)
	if df.Error() != nil {
		return dataframe.DataFrame{}, fmt.Errorf("assembling dataframe from %s: %w", root, df.Error())
	}
	return df, nil
}

// PartitionDirs returns the partition paths (relative to root) holding data,
// sorted for deterministic output.
func PartitionDirs(root string) ([]string, error) {
	files, err := listDataFiles(root)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, filepath.Dir(f))
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, rel)
	}
	sort.Strings(dirs)
	return dirs, nil
}

func listDataFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".parquet") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("table root %s does not exist", root)
		}
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// partitionValues reads the partition column values encoded in the
// col=value path segments between root and the data file.
func partitionValues(root, path string, partitionCols []string) (map[string]any, error) {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	found := make(map[string]any, len(partitionCols))
	for _, segment := range strings.Split(rel, string(os.PathSeparator)) {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		if !dfutil.ContainsString(partitionCols, key) {
			continue
		}
		if n, convErr := strconv.Atoi(value); convErr == nil {
			found[key] = int64(n)
		} else {
			found[key] = value
		}
	}

	for _, col := range partitionCols {
		if _, ok := found[col]; !ok {
			return nil, fmt.Errorf("partition column %q not present in path %s", col, path)
		}
	}
	return found, nil
}

func partitionDir(row map[string]any, partitionCols []string) (string, bool) {
	segments := make([]string, 0, len(partitionCols))
	for _, col := range partitionCols {
		val, ok := row[col]
		if !ok || val == nil {
			return "", false
		}
		segments = append(segments, fmt.Sprintf("%s=%v", col, val))
	}
	return filepath.Join(segments...), true
}

func writePartitionFile(path string, rows []map[string]any, schema *parquet.Schema) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating partition file %s: %w", path, err)
	}
	defer f.Close()

	if err := parquet.Write[map[string]any](f, rows, schema, parquet.Compression(&parquet.Snappy)); err != nil {
		return fmt.Errorf("writing parquet file %s: %w", path, err)
	}
	return nil
}

// readPartitionFile decodes a payload file using the schema stored in the
// file itself. Null cells come back as the "NaN" marker so they survive as
// nulls when the rows are reassembled into a dataframe.
func readPartitionFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading partition file %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %s: %w", path, err)
	}

	names := leafNames(pf.Schema())

	var out []map[string]any
	for _, rowGroup := range pf.RowGroups() {
		rows := rowGroup.Rows()
		buf := make([]parquet.Row, 64)
		for {
			n, readErr := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				out = append(out, rowToMap(row, names))
			}
			if readErr != nil && readErr != io.EOF {
				rows.Close()
				return nil, fmt.Errorf("decoding parquet file %s: %w", path, readErr)
			}
			if readErr == io.EOF || n == 0 {
				break
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("closing parquet reader for %s: %w", path, err)
		}
	}
	return out, nil
}

// leafNames maps leaf column indexes to field names. Layer schemas are flat,
// one leaf per field.
func leafNames(schema *parquet.Schema) []string {
	fields := schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name()
	}
	return names
}

// rowToMap converts one parquet row to the map form ReadPartitioned merges
// into the dataframe. Null leaves become "NaN", the null marker gota
// recognizes for every column type.
func rowToMap(row parquet.Row, names []string) map[string]any {
	m := make(map[string]any, len(names))
	for _, v := range row {
		name := names[v.Column()]
		if v.IsNull() {
			m[name] = "NaN"
			continue
		}
		switch v.Kind() {
		case parquet.Boolean:
			m[name] = v.Boolean()
		case parquet.Int32:
			m[name] = int64(v.Int32())
		case parquet.Int64:
			m[name] = v.Int64()
		case parquet.Float:
			m[name] = float64(v.Float())
		case parquet.Double:
			m[name] = v.Double()
		default:
			m[name] = string(v.ByteArray())
		}
	}
	return m
}

// payloadSchema maps dataframe column types to parquet nodes, excluding the
// partition columns. Every field is optional since any cell may be null.
func payloadSchema(name string, df dataframe.DataFrame, exclude []string) *parquet.Schema {
	group := parquet.Group{}
	names := df.Names()
	colTypes := df.Types()
	for i, col := range names {
		if dfutil.ContainsString(exclude, col) {
			continue
		}
		switch colTypes[i] {
		case series.Int:
			group[col] = parquet.Optional(parquet.Int(64))
		case series.Float:
			group[col] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		case series.Bool:
			group[col] = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		default:
			group[col] = parquet.Optional(parquet.String())
		}
	}
	return parquet.NewSchema(name, group)
}

// dataframeToRows converts df to one map per row. Null cells are left out of
// the map so they surface as parquet nulls.
func dataframeToRows(df dataframe.DataFrame) []map[string]any {
	names := df.Names()
	colTypes := df.Types()
	cols := make([]series.Series, len(names))
	for i, name := range names {
		cols[i] = df.Col(name)
	}

	rows := make([]map[string]any, df.Nrow())
	for r := 0; r < df.Nrow(); r++ {
		row := make(map[string]any, len(names))
		for c, name := range names {
			elem := cols[c].Elem(r)
			if elem.IsNA() {
				continue
			}
			switch colTypes[c] {
			case series.Int:
				v, err := elem.Int()
				if err != nil {
					continue
				}
				row[name] = int64(v)
			case series.Float:
				row[name] = elem.Float()
			case series.Bool:
				v, err := elem.Bool()
				if err != nil {
					continue
				}
				row[name] = v
			default:
				row[name] = elem.String()
			}
		}
		rows[r] = row
	}
	return rows
}
