package library

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the plain key-value view of the whole ledger, shaped for
// display and export. Dates render as RFC 3339 text; a loan's return date is
// absent until the loan closes.
type Snapshot struct {
	Books   []*Book   `json:"books"`
	Members []*Member `json:"members"`
	Loans   []*Loan   `json:"loans"`
	Stats   Stats     `json:"stats"`
}

// Snapshot assembles a consistent view of the ledger under a single lock.
func (m *LibraryManager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	loans := make([]*Loan, 0, len(m.loans))
	for _, loan := range m.loans {
		cp := *loan
		loans = append(loans, &cp)
	}
	return Snapshot{
		Books:   m.booksLocked(),
		Members: m.membersLocked(),
		Loans:   loans,
		Stats:   m.statsLocked(m.clock()),
	}
}

// ExportJSON writes an indented snapshot of the ledger to w.
func (m *LibraryManager) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m.Snapshot())
}
