package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"library-ledger/library"
)

var (
	ledger *library.LibraryManager
	logger zerolog.Logger
)

func main() {
	logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "libraryd").Logger()

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		logger.Info().Msg("no .env file, using environment and defaults")
	}
	viper.SetDefault("LIBRARYD_PORT", "8060")
	viper.SetDefault("LOAN_PERIOD_DAYS", library.DefaultLoanPeriodDays)
	viper.SetDefault("MAX_ACTIVE_LOANS", library.DefaultMaxActiveLoans)
	viper.SetDefault("SEED_DEMO_DATA", true)

	ledger = library.NewLibraryManager(
		library.WithLoanPeriod(viper.GetInt("LOAN_PERIOD_DAYS")),
		library.WithMaxActiveLoans(viper.GetInt("MAX_ACTIVE_LOANS")),
		library.WithLogger(logger),
	)

	if path := viper.GetString("CATALOG_FILE"); path != "" {
		n, err := ledger.LoadCatalogFile(path)
		if err != nil {
			logger.Fatal().Err(err).Str("file", path).Msg("failed to load catalog")
		}
		logger.Info().Int("titles", n).Str("file", path).Msg("catalog loaded")
	} else if viper.GetBool("SEED_DEMO_DATA") {
		seedDemoData()
	}

	server := &http.Server{
		Addr:         ":" + viper.GetString("LIBRARYD_PORT"),
		Handler:      setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("libraryd starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("libraryd shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("libraryd stopped")
}

func setupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/api/v1/books", addBook)
	r.GET("/api/v1/books", listBooks)
	r.GET("/api/v1/books/:isbn", getBook)
	r.POST("/api/v1/books/:isbn/borrow", borrowBook)
	r.POST("/api/v1/books/:isbn/return", returnBook)
	r.POST("/api/v1/members", registerMember)
	r.GET("/api/v1/members/:memberId", getMember)
	r.GET("/api/v1/members/:memberId/loans", memberLoans)
	r.GET("/api/v1/loans/overdue", overdueLoans)
	r.GET("/api/v1/stats", libraryStats)
	r.GET("/manage/health", healthCheck)

	return r
}

type addBookRequest struct {
	ISBN   string `json:"isbn" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Author string `json:"author" binding:"required"`
	Year   int    `json:"year"`
	Copies *int   `json:"copies"`
}

type registerMemberRequest struct {
	ID    string `json:"id" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type borrowRequest struct {
	MemberID string `json:"memberId" binding:"required"`
	LoanDays *int   `json:"loanDays"`
}

type returnRequest struct {
	MemberID string `json:"memberId" binding:"required"`
}

// errorStatus maps ledger errors onto HTTP statuses: unknown references are
// 404, registration and loan conflicts are 409, failed borrow preconditions
// are 400.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, library.ErrMemberNotFound),
		errors.Is(err, library.ErrTitleNotFound),
		errors.Is(err, library.ErrActiveLoanNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrDuplicateMember),
		errors.Is(err, library.ErrDuplicateEmail),
		errors.Is(err, library.ErrDuplicateActiveLoan):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func addBook(c *gin.Context) {
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	copies := 1
	if req.Copies != nil {
		copies = *req.Copies
	}
	message := ledger.AddBook(req.ISBN, req.Title, req.Author, req.Year, copies)

	book, err := ledger.GetBook(req.ISBN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": message, "book": book})
}

func listBooks(c *gin.Context) {
	query := c.Query("query")
	c.JSON(http.StatusOK, gin.H{"items": ledger.SearchBooks(query)})
}

func getBook(c *gin.Context) {
	book, err := ledger.GetBook(c.Param("isbn"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, book)
}

func registerMember(c *gin.Context) {
	var req registerMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := ledger.RegisterMember(req.ID, req.Name, req.Email)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	member, err := ledger.GetMember(req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": message, "member": member})
}

func getMember(c *gin.Context) {
	member, err := ledger.GetMember(c.Param("memberId"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, member)
}

func borrowBook(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isbn := c.Param("isbn")
	var (
		message string
		err     error
	)
	if req.LoanDays != nil {
		message, err = ledger.BorrowBookFor(req.MemberID, isbn, *req.LoanDays)
	} else {
		message, err = ledger.BorrowBook(req.MemberID, isbn)
	}
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	book, err := ledger.GetBook(isbn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        message,
		"isbn":           isbn,
		"availableCount": book.AvailableCopies,
	})
}

func returnBook(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isbn := c.Param("isbn")
	message, err := ledger.ReturnBook(req.MemberID, isbn)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	book, err := ledger.GetBook(isbn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        message,
		"isbn":           isbn,
		"availableCount": book.AvailableCopies,
	})
}

func memberLoans(c *gin.Context) {
	loans, err := ledger.MemberLoans(c.Param("memberId"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	if loans == nil {
		loans = []*library.Loan{}
	}
	c.JSON(http.StatusOK, gin.H{"items": loans})
}

func overdueLoans(c *gin.Context) {
	loans := ledger.OverdueLoans()
	if loans == nil {
		loans = []*library.Loan{}
	}
	c.JSON(http.StatusOK, gin.H{"items": loans})
}

func libraryStats(c *gin.Context) {
	c.JSON(http.StatusOK, ledger.Stats())
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func seedDemoData() {
	ledger.AddBook("978-0-7475-3269-9", "Harry Potter and the Philosopher's Stone", "J.K. Rowling", 1997, 3)
	ledger.AddBook("978-85-250-4277-1", "Dom Casmurro", "Machado de Assis", 1899, 2)
	ledger.AddBook("978-0-06-112008-4", "1984", "George Orwell", 1949, 2)

	if _, err := ledger.RegisterMember("001", "Joao Silva", "joao@email.com"); err != nil {
		logger.Warn().Err(err).Msg("failed to seed member")
	}
	if _, err := ledger.RegisterMember("002", "Maria Santos", "maria@email.com"); err != nil {
		logger.Warn().Err(err).Msg("failed to seed member")
	}
	logger.Info().Msg("demo data seeded")
}
