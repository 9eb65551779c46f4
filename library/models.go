package library

import (
	"fmt"
	"time"
)

// Book represents one catalog entry, keyed by ISBN. TotalCopies counts every
// copy the library has ever acquired; AvailableCopies is what sits on the
// shelf right now, so 0 <= AvailableCopies <= TotalCopies at all times.
type Book struct {
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Year            int    `json:"year"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

func (b *Book) String() string {
	return fmt.Sprintf("%s by %s (%d) - ISBN: %s", b.Title, b.Author, b.Year, b.ISBN)
}

// Member represents a registered borrower. BorrowedTitles holds the ISBNs
// currently on loan, in borrow order; a title appears at most once.
type Member struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	BorrowedTitles []string  `json:"borrowed_titles"`
	RegisteredAt   time.Time `json:"registration_date"`
}

func (m *Member) String() string {
	return fmt.Sprintf("%s (%s) - ID: %s", m.Name, m.Email, m.ID)
}

// Loan is one lending transaction. Records are append-only: a loan closes
// exactly once via return and is never reactivated.
type Loan struct {
	ID         string     `json:"loan_id"`
	MemberID   string     `json:"member_id"`
	ISBN       string     `json:"isbn"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Active     bool       `json:"is_active"`
}

// IsOverdue reports whether the loan is past due at the given instant.
// Overdue state is recomputed on every read, never stored.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Active && now.After(l.DueDate)
}

// DaysOverdue returns the whole days past the due date, or 0 for loans that
// are on time or already closed.
func (l *Loan) DaysOverdue(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(l.DueDate).Hours() / 24)
}

// Stats is the aggregate view over the whole ledger.
type Stats struct {
	TotalTitles       int `json:"total_titles"`
	TotalBooks        int `json:"total_books"`
	AvailableBooks    int `json:"available_books"`
	RegisteredMembers int `json:"registered_members"`
	ActiveLoans       int `json:"active_loans"`
	OverdueLoans      int `json:"overdue_loans"`
}
