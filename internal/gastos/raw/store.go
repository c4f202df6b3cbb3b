package raw

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Store persists raw API pages as immutable JSON files, one per page number.
// Pages act as durable checkpoints: a partially fetched run can resume by
// skipping the pages already present.
type Store struct {
	dir     string
	dataset string
	table   string
}

func NewStore(dir, dataset, table string) *Store {
	return &Store{dir: dir, dataset: dataset, table: table}
}

func (s *Store) prefix() string {
	return fmt.Sprintf("%s_%s_page_", s.dataset, s.table)
}

// Path returns the file path for the given page number.
func (s *Store) Path(page int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%d.json", s.prefix(), page))
}

// Has reports whether the page is already persisted.
func (s *Store) Has(page int) bool {
	_, err := os.Stat(s.Path(page))
	return err == nil
}

// Write persists a page atomically: the payload lands in a temporary file
// first and is renamed into place, so a page is either fully visible or
// absent.
func (s *Store) Write(page int, payload []byte) error {
	path := s.Path(page)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("writing page %d: %w", page, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing page %d: %w", page, err)
	}
	return nil
}

// Read returns the raw payload of a persisted page.
func (s *Store) Read(page int) ([]byte, error) {
	payload, err := os.ReadFile(s.Path(page))
	if err != nil {
		return nil, fmt.Errorf("reading page %d: %w", page, err)
	}
	return payload, nil
}

// List returns the numbers of all persisted pages in ascending order.
func (s *Store) List() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, s.prefix()+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}

	pages := make([]int, 0, len(matches))
	for _, match := range matches {
		name := strings.TrimSuffix(filepath.Base(match), ".json")
		number := strings.TrimPrefix(name, s.prefix())
		page, convErr := strconv.Atoi(number)
		if convErr != nil {
			continue
		}
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages, nil
}
