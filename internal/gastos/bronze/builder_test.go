package bronze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/raw"
	"github.com/angelitadias/ETL-Pipeline-API/internal/lake"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelError)
}

func writePages(t *testing.T, store *raw.Store, pages map[int]string) {
	t.Helper()
	for page, payload := range pages {
		if err := store.Write(page, []byte(payload)); err != nil {
			t.Fatalf("writing page %d: %v", page, err)
		}
	}
}

func TestBuildConsolidatesPages(t *testing.T) {
	store := raw.NewStore(t.TempDir(), "gastos-diretos", "gastos")
	outDir := filepath.Join(t.TempDir(), "bronze")

	writePages(t, store, map[int]string{
		1: `{"results":[
			{"ano":"2023","mes":"1","nome_orgao":"Saude","valor":"100.0"},
			{"ano":"2023","mes":"1","nome_orgao":"Educacao","valor":"50.0"}
		],"next":"more"}`,
		2: `{"results":[
			{"ano":"2023","mes":"2","nome_orgao":"Saude","valor":"30.0"}
		],"next":null}`,
	})

	builder := NewBuilder(store, outDir, testLogger())
	if err := builder.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	df, err := lake.ReadPartitioned(outDir, []string{"ano", "mes"})
	if err != nil {
		t.Fatalf("reading bronze output: %v", err)
	}
	if df.Nrow() != 3 {
		t.Errorf("bronze has %d rows, want 3", df.Nrow())
	}

	dirs, err := lake.PartitionDirs(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 2 {
		t.Errorf("bronze has %d partitions, want 2 (got %v)", len(dirs), dirs)
	}
}

func TestBuildSkipsCorruptPages(t *testing.T) {
	store := raw.NewStore(t.TempDir(), "gastos-diretos", "gastos")
	outDir := filepath.Join(t.TempDir(), "bronze")

	writePages(t, store, map[int]string{
		1: `{"results":[{"ano":"2023","mes":"1","nome_orgao":"Saude"}],"next":null}`,
		2: `this is not json`,
	})

	builder := NewBuilder(store, outDir, testLogger())
	if err := builder.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	df, err := lake.ReadPartitioned(outDir, []string{"ano", "mes"})
	if err != nil {
		t.Fatal(err)
	}
	if df.Nrow() != 1 {
		t.Errorf("bronze has %d rows, want 1 (corrupt page skipped)", df.Nrow())
	}
}

func TestBuildFailsWithoutPages(t *testing.T) {
	store := raw.NewStore(t.TempDir(), "gastos-diretos", "gastos")
	builder := NewBuilder(store, filepath.Join(t.TempDir(), "bronze"), testLogger())
	if err := builder.Build(); err == nil {
		t.Fatal("Build succeeded with no raw pages")
	}
}

func TestBuildFailsOnMissingPartitionColumn(t *testing.T) {
	store := raw.NewStore(t.TempDir(), "gastos-diretos", "gastos")
	outDir := filepath.Join(t.TempDir(), "bronze")

	// Records without the ano column cannot be partitioned.
	writePages(t, store, map[int]string{
		1: `{"results":[{"mes":"1","nome_orgao":"Saude"}],"next":null}`,
	})

	builder := NewBuilder(store, outDir, testLogger())
	if err := builder.Build(); err == nil {
		t.Fatal("Build succeeded despite missing partition column")
	}

	// Nothing may be written on failure.
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Errorf("bronze output created despite failed build: %v", err)
	}
}
