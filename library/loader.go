package library

import (
	"fmt"
	"os"
	"path/filepath"
)

// CatalogEntry is one row of a JSON catalog file. Copies distinguishes an
// absent count from an explicit zero.
type CatalogEntry struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Copies *int   `json:"copies"`
}

// LoadCatalogFile reads a JSON array of catalog entries and adds each one to
// the ledger. An entry with no copy count gets a single copy, matching the
// AddBook default used everywhere else. Returns how many entries were loaded.
func (m *LibraryManager) LoadCatalogFile(path string) (int, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}

	var entries []CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	for _, e := range entries {
		copies := 1
		if e.Copies != nil {
			copies = *e.Copies
		}
		m.AddBook(e.ISBN, e.Title, e.Author, e.Year, copies)
	}
	return len(entries), nil
}
