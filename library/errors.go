package library

import "errors"

// Ledger errors are sentinel values. Operations wrap them with the offending
// identifier, so callers can match with errors.Is and still print a useful
// message.
var (
	// ErrDuplicateMember is returned when registering an already-known member id.
	ErrDuplicateMember = errors.New("library: member id already registered")

	// ErrDuplicateEmail is returned when another member already uses the email.
	ErrDuplicateEmail = errors.New("library: email already in use")

	// ErrMemberNotFound is returned for operations on an unknown member id.
	ErrMemberNotFound = errors.New("library: member not found")

	// ErrTitleNotFound is returned for operations on an unknown ISBN.
	ErrTitleNotFound = errors.New("library: title not found")

	// ErrNoCopiesAvailable is returned when every copy of a title is out.
	ErrNoCopiesAvailable = errors.New("library: no copies available")

	// ErrDuplicateActiveLoan is returned when a member already holds the title.
	ErrDuplicateActiveLoan = errors.New("library: member already holds this title")

	// ErrLoanLimitExceeded is returned when a member is at the active-loan cap.
	ErrLoanLimitExceeded = errors.New("library: active loan limit reached")

	// ErrActiveLoanNotFound is returned when returning a title with no active loan.
	ErrActiveLoanNotFound = errors.New("library: no active loan found")
)
