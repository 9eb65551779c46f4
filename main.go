package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"library-ledger/library"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	var (
		loanDays    int
		maxLoans    int
		catalogPath string
	)

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	newManager := func() (*library.LibraryManager, error) {
		mgr := library.NewLibraryManager(
			library.WithLoanPeriod(loanDays),
			library.WithMaxActiveLoans(maxLoans),
			library.WithLogger(logger.Level(zerolog.WarnLevel)),
		)
		if catalogPath != "" {
			n, err := mgr.LoadCatalogFile(catalogPath)
			if err != nil {
				return nil, err
			}
			logger.Info().Int("titles", n).Str("file", catalogPath).Msg("catalog preloaded")
		}
		return mgr, nil
	}

	root := &cobra.Command{
		Use:     "library-ledger",
		Short:   "Track a library's catalog, members and loans from your terminal",
		Example: "  library-ledger --catalog books.json\n  library-ledger demo",
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			runREPL(mgr)
			return nil
		},
	}

	root.PersistentFlags().IntVar(&loanDays, "loan-days", library.DefaultLoanPeriodDays, "default loan period in days")
	root.PersistentFlags().IntVar(&maxLoans, "max-loans", library.DefaultMaxActiveLoans, "active loans allowed per member")
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "JSON catalog file to preload")

	root.AddCommand(&cobra.Command{
		Use:   "demo",
		Short: "Run a scripted walkthrough of the lending workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			return runDemo(mgr)
		},
	})

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("library-ledger")
		os.Exit(1)
	}
}

func runREPL(mgr *library.LibraryManager) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Library Ledger!")
	fmt.Println("Available commands:")
	fmt.Println("  Catalog: add book, list books, search")
	fmt.Println("  Members: register member, list members")
	fmt.Println("  Circulation: borrow, return, loans, overdue")
	fmt.Println("  System: stats, export, exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "add book":
			handleAddBook(scanner, mgr)
		case "register member":
			handleRegisterMember(scanner, mgr)
		case "list books":
			handleListBooks(mgr)
		case "list members":
			handleListMembers(mgr)
		case "search":
			handleSearch(scanner, mgr)
		case "borrow":
			handleBorrow(scanner, mgr)
		case "return":
			handleReturn(scanner, mgr)
		case "loans":
			handleMemberLoans(scanner, mgr)
		case "overdue":
			handleOverdue(mgr)
		case "stats":
			handleStats(mgr)
		case "export":
			if err := mgr.ExportJSON(os.Stdout); err != nil {
				fmt.Printf("Error exporting ledger: %v\n", err)
			}
		case "exit":
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func handleAddBook(sc *bufio.Scanner, mgr *library.LibraryManager) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	title, ok := prompt(sc, "Title: ")
	if !ok {
		return
	}
	author, ok := prompt(sc, "Author: ")
	if !ok {
		return
	}
	yearStr, ok := prompt(sc, "Year: ")
	if !ok {
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		fmt.Printf("Invalid year: %s\n", yearStr)
		return
	}
	copiesStr, ok := prompt(sc, "Copies (default 1): ")
	if !ok {
		return
	}
	copies := 1
	if copiesStr != "" {
		copies, err = strconv.Atoi(copiesStr)
		if err != nil {
			fmt.Printf("Invalid copy count: %s\n", copiesStr)
			return
		}
	}

	fmt.Println(mgr.AddBook(isbn, title, author, year, copies))
}

func handleRegisterMember(sc *bufio.Scanner, mgr *library.LibraryManager) {
	id, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	email, ok := prompt(sc, "Email: ")
	if !ok {
		return
	}

	msg, err := mgr.RegisterMember(id, name, email)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(msg)
}

func handleListBooks(mgr *library.LibraryManager) {
	books := mgr.Books()
	if len(books) == 0 {
		fmt.Println("No books in the catalog.")
		return
	}

	fmt.Printf("%-20s %-35s %-25s %-6s %-10s\n", "ISBN", "Title", "Author", "Year", "Available")
	fmt.Println(strings.Repeat("-", 100))
	for _, b := range books {
		fmt.Printf("%-20s %-35s %-25s %-6d %d/%d\n",
			b.ISBN, truncateString(b.Title, 35), truncateString(b.Author, 25),
			b.Year, b.AvailableCopies, b.TotalCopies)
	}
}

func handleListMembers(mgr *library.LibraryManager) {
	members := mgr.Members()
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}

	fmt.Printf("%-10s %-25s %-25s %s\n", "ID", "Name", "Email", "Borrowed")
	fmt.Println(strings.Repeat("-", 80))
	for _, m := range members {
		borrowed := "none"
		if len(m.BorrowedTitles) > 0 {
			borrowed = strings.Join(m.BorrowedTitles, ", ")
		}
		fmt.Printf("%-10s %-25s %-25s %s\n",
			m.ID, truncateString(m.Name, 25), truncateString(m.Email, 25), borrowed)
	}
}

func handleSearch(sc *bufio.Scanner, mgr *library.LibraryManager) {
	query, ok := prompt(sc, "Query: ")
	if !ok {
		return
	}

	books := mgr.SearchBooks(query)
	if len(books) == 0 {
		fmt.Printf("No books found matching '%s'.\n", query)
		return
	}

	fmt.Printf("Found %d book(s) matching '%s':\n", len(books), query)
	for _, b := range books {
		fmt.Printf("  - %s\n", b)
	}
}

func handleBorrow(sc *bufio.Scanner, mgr *library.LibraryManager) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	daysStr, ok := prompt(sc, fmt.Sprintf("Loan days (default %d): ", mgr.LoanPeriodDays()))
	if !ok {
		return
	}

	var (
		msg string
		err error
	)
	if daysStr == "" {
		msg, err = mgr.BorrowBook(memberID, isbn)
	} else {
		days, convErr := strconv.Atoi(daysStr)
		if convErr != nil {
			fmt.Printf("Invalid loan days: %s\n", daysStr)
			return
		}
		msg, err = mgr.BorrowBookFor(memberID, isbn, days)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(msg)
}

func handleReturn(sc *bufio.Scanner, mgr *library.LibraryManager) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}

	msg, err := mgr.ReturnBook(memberID, isbn)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(msg)
}

func handleMemberLoans(sc *bufio.Scanner, mgr *library.LibraryManager) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}

	loans, err := mgr.MemberLoans(memberID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(loans) == 0 {
		fmt.Println("No active loans.")
		return
	}
	for _, l := range loans {
		fmt.Printf("  %s due %s\n", l.ISBN, l.DueDate.Format("2006-01-02"))
	}
}

func handleOverdue(mgr *library.LibraryManager) {
	overdue := mgr.OverdueLoans()
	if len(overdue) == 0 {
		fmt.Println("No overdue loans.")
		return
	}
	now := time.Now()
	for _, l := range overdue {
		fmt.Printf("  member %s holds %s, %d days overdue\n", l.MemberID, l.ISBN, l.DaysOverdue(now))
	}
}

func handleStats(mgr *library.LibraryManager) {
	s := mgr.Stats()
	fmt.Printf("  total_titles: %d\n", s.TotalTitles)
	fmt.Printf("  total_books: %d\n", s.TotalBooks)
	fmt.Printf("  available_books: %d\n", s.AvailableBooks)
	fmt.Printf("  registered_members: %d\n", s.RegisteredMembers)
	fmt.Printf("  active_loans: %d\n", s.ActiveLoans)
	fmt.Printf("  overdue_loans: %d\n", s.OverdueLoans)
}

// runDemo seeds a small catalog and walks through the whole lending cycle.
func runDemo(mgr *library.LibraryManager) error {
	fmt.Println("=== Library Ledger Demo ===")

	fmt.Println("\nAdding books to the catalog...")
	fmt.Println(mgr.AddBook("978-0-7475-3269-9", "Harry Potter and the Philosopher's Stone", "J.K. Rowling", 1997, 3))
	fmt.Println(mgr.AddBook("978-85-250-4277-1", "Dom Casmurro", "Machado de Assis", 1899, 2))
	fmt.Println(mgr.AddBook("978-0-06-112008-4", "1984", "George Orwell", 1949, 2))

	fmt.Println("\nRegistering members...")
	for _, reg := range [][3]string{
		{"001", "Joao Silva", "joao@email.com"},
		{"002", "Maria Santos", "maria@email.com"},
	} {
		msg, err := mgr.RegisterMember(reg[0], reg[1], reg[2])
		if err != nil {
			return err
		}
		fmt.Println(msg)
	}

	fmt.Println("\nIssuing loans...")
	for _, loan := range [][2]string{
		{"001", "978-0-7475-3269-9"},
		{"002", "978-85-250-4277-1"},
	} {
		msg, err := mgr.BorrowBook(loan[0], loan[1])
		if err != nil {
			return err
		}
		fmt.Println(msg)
	}

	fmt.Println("\nSearching for 'Harry'...")
	for _, b := range mgr.SearchBooks("Harry") {
		fmt.Printf("  - %s\n", b)
	}

	fmt.Println("\nLibrary statistics:")
	handleStats(mgr)

	fmt.Println("\nReturning a book...")
	msg, err := mgr.ReturnBook("001", "978-0-7475-3269-9")
	if err != nil {
		return err
	}
	fmt.Println(msg)

	fmt.Println("\nDemo complete!")
	return nil
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
