package gastos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelitadias/ETL-Pipeline-API/internal/config"
	"github.com/angelitadias/ETL-Pipeline-API/internal/gastos/types"
	"github.com/angelitadias/ETL-Pipeline-API/internal/lake"
	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		DatasetSlug:         "gastos-diretos",
		TableName:           "gastos",
		APIToken:            "test-token",
		BaseURL:             baseURL,
		RawDir:              filepath.Join(base, "raw"),
		BronzeDir:           filepath.Join(base, "bronze"),
		SilverDir:           filepath.Join(base, "silver"),
		GoldDir:             filepath.Join(base, "gold"),
		RequestDelay:        0,
		RateLimitBackoff:    time.Millisecond,
		RateLimitMaxRetries: 2,
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

// TestPipelineEndToEnd runs every stage against a two-page API covering two
// periods and checks the gold output down to the aggregated totals.
func TestPipelineEndToEnd(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprintf(w, `{"results":[
				{"ano":"2023","mes":"1","nome_orgao":" saude ","nome_favorecido":"Fulano","valor":"100.0"},
				{"ano":"2023","mes":"1","nome_orgao":"SAUDE","nome_favorecido":"Beltrano","valor":"50.0"}
			],"next":"%s?page=2"}`, srv.URL)
		default:
			fmt.Fprint(w, `{"results":[
				{"ano":"2023","mes":"2","nome_orgao":"educacao","nome_favorecido":"Sicrano","valor":"30.0"}
			],"next":null}`)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	appLogger := logger.New(logger.LevelError)

	pipeline := New(cfg, appLogger)
	if err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	for _, layer := range []struct {
		name string
		dir  string
	}{
		{"bronze", cfg.BronzeDir},
		{"silver", cfg.SilverDir},
		{"gold", cfg.GoldDir},
	} {
		dirs, err := lake.PartitionDirs(layer.dir)
		if err != nil {
			t.Fatalf("listing %s partitions: %v", layer.name, err)
		}
		if len(dirs) != 2 {
			t.Fatalf("%s has %d partitions, want 2 (got %v)", layer.name, len(dirs), dirs)
		}
	}

	df, err := lake.ReadPartitioned(cfg.GoldDir, types.PartitionColumns)
	if err != nil {
		t.Fatal(err)
	}
	if df.Nrow() != 2 {
		t.Fatalf("gold has %d rows, want 2", df.Nrow())
	}

	totals := map[string]float64{}
	orgaos := df.Col(types.ColumnNomeOrgao)
	values := df.Col(types.ColumnTotalGasto)
	for i := 0; i < df.Nrow(); i++ {
		totals[orgaos.Elem(i).String()] = values.Elem(i).Float()
	}

	// The two saude spellings normalize to the same organ and sum up.
	if totals["SAUDE"] != 150 {
		t.Errorf("total for SAUDE = %v, want 150", totals["SAUDE"])
	}
	if totals["EDUCACAO"] != 30 {
		t.Errorf("total for EDUCACAO = %v, want 30", totals["EDUCACAO"])
	}
}

func TestPipelineSkipFetchUsesRawOnDisk(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"results":[],"next":null}`)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	appLogger := logger.New(logger.LevelError)

	// Seed the raw layer directly; the fetch stage must not run.
	pagePath := filepath.Join(cfg.RawDir, "gastos-diretos_gastos_page_1.json")
	payload := `{"results":[{"ano":"2023","mes":"1","nome_orgao":"A","nome_favorecido":"X","valor":"10.0"}],"next":null}`
	if err := os.WriteFile(pagePath, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	pipeline := New(cfg, appLogger)
	pipeline.SkipFetch = true
	if err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if requests != 0 {
		t.Errorf("server received %d requests with SkipFetch set", requests)
	}
	if _, err := lake.ReadPartitioned(cfg.GoldDir, types.PartitionColumns); err != nil {
		t.Errorf("gold output missing: %v", err)
	}
}

func TestPipelineStageErrorsCarryTheStage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	pipeline := New(cfg, logger.New(logger.LevelError))

	err := pipeline.Run(context.Background())
	if err == nil {
		t.Fatal("pipeline succeeded against a broken API")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("error is %T, want *StageError", err)
	}
	if stageErr.Stage != StageFetch {
		t.Errorf("failed stage = %q, want %q", stageErr.Stage, StageFetch)
	}
}
