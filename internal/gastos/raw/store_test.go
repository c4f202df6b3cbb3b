package raw

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStoreWriteReadRoundtrip(t *testing.T) {
	store := NewStore(t.TempDir(), "gastos-diretos", "gastos")

	payload := []byte(`{"results":[{"ano":"2023"}],"next":null}`)
	if err := store.Write(3, payload); err != nil {
		t.Fatalf("Write(3) failed: %v", err)
	}

	if !store.Has(3) {
		t.Error("Has(3) = false after Write(3)")
	}
	if store.Has(4) {
		t.Error("Has(4) = true for a page never written")
	}

	got, err := store.Read(3)
	if err != nil {
		t.Fatalf("Read(3) failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Read(3) = %q, want %q", got, payload)
	}
}

func TestStoreWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "gastos-diretos", "gastos")

	if err := store.Write(1, []byte(`{}`)); err != nil {
		t.Fatalf("Write(1) failed: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestStoreListSortsNumerically(t *testing.T) {
	store := NewStore(t.TempDir(), "gastos-diretos", "gastos")

	// Written out of order on purpose; page 10 must sort after page 2.
	for _, page := range []int{10, 2, 1} {
		if err := store.Write(page, []byte(`{}`)); err != nil {
			t.Fatalf("Write(%d) failed: %v", page, err)
		}
	}

	pages, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []int{1, 2, 10}
	if !reflect.DeepEqual(pages, want) {
		t.Errorf("List() = %v, want %v", pages, want)
	}
}

func TestStoreListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "gastos-diretos", "gastos")

	if err := store.Write(1, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gastos-diretos_gastos_page_notanumber.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !reflect.DeepEqual(pages, []int{1}) {
		t.Errorf("List() = %v, want [1]", pages)
	}
}

func TestStorePathEncodesDatasetAndTable(t *testing.T) {
	store := NewStore("/data/raw", "gastos-diretos", "gastos")
	want := filepath.Join("/data/raw", "gastos-diretos_gastos_page_7.json")
	if got := store.Path(7); got != want {
		t.Errorf("Path(7) = %q, want %q", got, want)
	}
}
