package library

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Clock supplies the current time. Tests swap it for a manual source.
type Clock func() time.Time

const (
	// DefaultLoanPeriodDays is the loan period used when none is configured.
	DefaultLoanPeriodDays = 14

	// DefaultMaxActiveLoans caps how many titles a member may hold at once.
	DefaultMaxActiveLoans = 5
)

// LibraryManager is the single mutable root of the ledger: the catalog, the
// member registry and the chronological loan log. Every operation validates
// against current state before mutating, so a failed call leaves no trace.
//
// One mutex guards the whole ledger. Operations read-then-write across
// several collections, so callers sharing a manager between goroutines (the
// HTTP service does) get one critical section rather than per-field locking.
type LibraryManager struct {
	mu sync.Mutex

	books   map[string]*Book
	shelf   []string // ISBNs in insertion order; map iteration would scramble it
	members map[string]*Member
	loans   []*Loan

	clock          Clock
	loanPeriodDays int
	maxActiveLoans int
	log            zerolog.Logger
}

// Option configures optional behavior of a LibraryManager.
type Option func(*LibraryManager)

// WithClock sets the time source used for registration, loan and overdue
// bookkeeping.
func WithClock(c Clock) Option {
	return func(m *LibraryManager) { m.clock = c }
}

// WithLoanPeriod sets the default loan period in days.
func WithLoanPeriod(days int) Option {
	return func(m *LibraryManager) { m.loanPeriodDays = days }
}

// WithMaxActiveLoans sets the per-member active loan cap.
func WithMaxActiveLoans(n int) Option {
	return func(m *LibraryManager) { m.maxActiveLoans = n }
}

// WithLogger sets a structured logger for ledger mutations.
// If not provided, logging is disabled.
func WithLogger(l zerolog.Logger) Option {
	return func(m *LibraryManager) { m.log = l }
}

// NewLibraryManager creates an empty ledger.
func NewLibraryManager(opts ...Option) *LibraryManager {
	m := &LibraryManager{
		books:          make(map[string]*Book),
		members:        make(map[string]*Member),
		clock:          time.Now,
		loanPeriodDays: DefaultLoanPeriodDays,
		maxActiveLoans: DefaultMaxActiveLoans,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoanPeriodDays returns the configured default loan period.
func (m *LibraryManager) LoanPeriodDays() int { return m.loanPeriodDays }

// ------------------ Catalog ------------------

// AddBook creates a catalog entry for a new ISBN, or restocks an existing
// one. Restocking adds copies to both counters and never touches the stored
// title, author or year. The copy count is taken as given, even when zero or
// negative - the original system performs no validation here either.
func (m *LibraryManager) AddBook(isbn, title, author string, year, copies int) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if book, ok := m.books[isbn]; ok {
		book.TotalCopies += copies
		book.AvailableCopies += copies
		m.log.Debug().Str("isbn", isbn).Int("copies", copies).Msg("restocked title")
		return fmt.Sprintf("Added %d copies of existing title", copies)
	}

	m.books[isbn] = &Book{
		ISBN:            isbn,
		Title:           title,
		Author:          author,
		Year:            year,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	m.shelf = append(m.shelf, isbn)
	m.log.Debug().Str("isbn", isbn).Str("title", title).Int("copies", copies).Msg("added title")
	return fmt.Sprintf("Book '%s' added successfully", title)
}

// GetBook returns a copy of the catalog entry for isbn.
func (m *LibraryManager) GetBook(isbn string) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[isbn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTitleNotFound, isbn)
	}
	cp := *book
	return &cp, nil
}

// Books returns the whole catalog in insertion order.
func (m *LibraryManager) Books() []*Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.booksLocked()
}

func (m *LibraryManager) booksLocked() []*Book {
	books := make([]*Book, 0, len(m.shelf))
	for _, isbn := range m.shelf {
		cp := *m.books[isbn]
		books = append(books, &cp)
	}
	return books
}

// SearchBooks matches the query case-insensitively against title or author,
// returning hits in catalog insertion order. An empty query matches every
// entry. Search never fails.
func (m *LibraryManager) SearchBooks(query string) []*Book {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := strings.ToLower(query)
	results := []*Book{}
	for _, isbn := range m.shelf {
		book := m.books[isbn]
		if strings.Contains(strings.ToLower(book.Title), q) ||
			strings.Contains(strings.ToLower(book.Author), q) {
			cp := *book
			results = append(results, &cp)
		}
	}
	return results
}

// ------------------ Members ------------------

// RegisterMember adds a borrower to the registry. The member id must be new
// and the email must not be in use by any existing member (exact,
// case-sensitive match).
func (m *LibraryManager) RegisterMember(id, name, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.members[id]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateMember, id)
	}
	for _, member := range m.members {
		if member.Email == email {
			return "", fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
		}
	}

	m.members[id] = &Member{
		ID:             id,
		Name:           name,
		Email:          email,
		BorrowedTitles: []string{},
		RegisteredAt:   m.clock(),
	}
	m.log.Debug().Str("member", id).Msg("registered member")
	return fmt.Sprintf("Member '%s' registered successfully", name), nil
}

// GetMember returns a copy of the member record for id.
func (m *LibraryManager) GetMember(id string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	return copyMember(member), nil
}

// Members returns all registered members ordered by id.
func (m *LibraryManager) Members() []*Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.membersLocked()
}

func (m *LibraryManager) membersLocked() []*Member {
	members := make([]*Member, 0, len(m.members))
	for _, member := range m.members {
		members = append(members, copyMember(member))
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members
}

func copyMember(member *Member) *Member {
	cp := *member
	cp.BorrowedTitles = append([]string{}, member.BorrowedTitles...)
	return &cp
}

// ------------------ Circulation ------------------

// BorrowBook lends one copy of isbn to the member for the configured default
// loan period.
func (m *LibraryManager) BorrowBook(memberID, isbn string) (string, error) {
	return m.BorrowBookFor(memberID, isbn, m.loanPeriodDays)
}

// BorrowBookFor lends one copy of isbn to the member, due loanDays from now.
// Checks run in a fixed order - member, title, availability, duplicate loan,
// loan cap - and all of them pass before anything mutates. loanDays is
// accepted as given, zero or negative included.
func (m *LibraryManager) BorrowBookFor(memberID, isbn string, loanDays int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[memberID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	book, ok := m.books[isbn]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTitleNotFound, isbn)
	}
	if book.AvailableCopies <= 0 {
		return "", fmt.Errorf("%w: %s", ErrNoCopiesAvailable, isbn)
	}
	for _, loan := range m.loans {
		if loan.MemberID == memberID && loan.ISBN == isbn && loan.Active {
			return "", fmt.Errorf("%w: %s", ErrDuplicateActiveLoan, isbn)
		}
	}
	active := 0
	for _, loan := range m.loans {
		if loan.MemberID == memberID && loan.Active {
			active++
		}
	}
	if active >= m.maxActiveLoans {
		return "", fmt.Errorf("%w: member %s holds %d", ErrLoanLimitExceeded, memberID, active)
	}

	now := m.clock()
	loan := &Loan{
		ID:       uuid.New().String(),
		MemberID: memberID,
		ISBN:     isbn,
		LoanDate: now,
		DueDate:  now.Add(time.Duration(loanDays) * 24 * time.Hour),
		Active:   true,
	}
	m.loans = append(m.loans, loan)
	book.AvailableCopies--
	member.BorrowedTitles = append(member.BorrowedTitles, isbn)

	m.log.Debug().Str("member", memberID).Str("isbn", isbn).
		Time("due", loan.DueDate).Msg("loan issued")
	return fmt.Sprintf("Loan issued: '%s' to %s", book.Title, member.Name), nil
}

// ReturnBook closes the earliest active loan matching the member and isbn,
// puts the copy back on the shelf and drops the title from the member's
// borrowed list.
func (m *LibraryManager) ReturnBook(memberID, isbn string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[memberID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	book, ok := m.books[isbn]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTitleNotFound, isbn)
	}

	var loan *Loan
	for _, l := range m.loans {
		if l.MemberID == memberID && l.ISBN == isbn && l.Active {
			loan = l
			break
		}
	}
	if loan == nil {
		return "", fmt.Errorf("%w: member %s, isbn %s", ErrActiveLoanNotFound, memberID, isbn)
	}

	now := m.clock()
	loan.ReturnDate = &now
	loan.Active = false
	// Lateness is read off the already-closed record, which reports 0, so
	// the annotation below never fires.
	lateDays := loan.DaysOverdue(now)
	book.AvailableCopies++
	for i, held := range member.BorrowedTitles {
		if held == isbn {
			member.BorrowedTitles = append(member.BorrowedTitles[:i], member.BorrowedTitles[i+1:]...)
			break
		}
	}

	m.log.Debug().Str("member", memberID).Str("isbn", isbn).
		Int("days_overdue", lateDays).Msg("loan closed")

	msg := fmt.Sprintf("Book '%s' returned by %s", book.Title, member.Name)
	if lateDays > 0 {
		msg += fmt.Sprintf(" (returned %d days overdue)", lateDays)
	}
	return msg, nil
}

// ------------------ Loan views ------------------

// OverdueLoans returns every loan past due right now, in loan-log order.
func (m *LibraryManager) OverdueLoans() []*Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overdueLocked(m.clock())
}

func (m *LibraryManager) overdueLocked(now time.Time) []*Loan {
	var overdue []*Loan
	for _, loan := range m.loans {
		if loan.IsOverdue(now) {
			cp := *loan
			overdue = append(overdue, &cp)
		}
	}
	return overdue
}

// MemberLoans returns the member's active loans in loan-log order.
func (m *LibraryManager) MemberLoans(memberID string) ([]*Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.members[memberID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	var active []*Loan
	for _, loan := range m.loans {
		if loan.MemberID == memberID && loan.Active {
			cp := *loan
			active = append(active, &cp)
		}
	}
	return active, nil
}

// ------------------ Statistics ------------------

// Stats computes the aggregate view of the ledger. Pure read.
func (m *LibraryManager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked(m.clock())
}

func (m *LibraryManager) statsLocked(now time.Time) Stats {
	s := Stats{
		TotalTitles:       len(m.books),
		RegisteredMembers: len(m.members),
	}
	for _, book := range m.books {
		s.TotalBooks += book.TotalCopies
		s.AvailableBooks += book.AvailableCopies
	}
	for _, loan := range m.loans {
		if loan.Active {
			s.ActiveLoans++
		}
		if loan.IsOverdue(now) {
			s.OverdueLoans++
		}
	}
	return s
}
