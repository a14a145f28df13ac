package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLedgerStore implements LedgerStore using SQLite
type SQLiteLedgerStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// SQLiteLedgerConfig holds configuration for the SQLite ledger
type SQLiteLedgerConfig struct {
	Path string
}

// DefaultLedgerConfig returns default configuration
func DefaultLedgerConfig() SQLiteLedgerConfig {
	return SQLiteLedgerConfig{
		Path: "./data/ledger.db",
	}
}

// NewSQLiteLedgerStore creates a new SQLite-based ledger store
func NewSQLiteLedgerStore(cfg SQLiteLedgerConfig) (*SQLiteLedgerStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteLedgerStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables
func (s *SQLiteLedgerStore) initSchema() error {
	schema := `
	-- Users table
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Loans table
	CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lender_id INTEGER NOT NULL,
		borrower_id INTEGER NOT NULL,
		principal_cents INTEGER NOT NULL,
		repaid_cents INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		memo TEXT NOT NULL DEFAULT '',
		thread_id TEXT NOT NULL DEFAULT '',
		unpaid INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (lender_id) REFERENCES users(id),
		FOREIGN KEY (borrower_id) REFERENCES users(id),
		CHECK (repaid_cents <= principal_cents)
	);

	-- Repayments table
	CREATE TABLE IF NOT EXISTS repayments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		loan_id INTEGER NOT NULL,
		amount_cents INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (loan_id) REFERENCES loans(id) ON DELETE CASCADE
	);

	-- Confirmations table
	CREATE TABLE IF NOT EXISTS confirmations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL,
		counterparty_id INTEGER NOT NULL,
		amount_cents INTEGER NOT NULL,
		currency TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (author_id) REFERENCES users(id),
		FOREIGN KEY (counterparty_id) REFERENCES users(id)
	);

	-- Processed messages
	CREATE TABLE IF NOT EXISTS processed (
		message_id TEXT PRIMARY KEY,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Indices
	CREATE INDEX IF NOT EXISTS idx_loans_lender ON loans(lender_id);
	CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans(borrower_id);
	CREATE INDEX IF NOT EXISTS idx_repayments_loan ON repayments(loan_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func ensureUser(ctx context.Context, q querier, username string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	if _, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (username, created_at) VALUES (?, ?)
	`, username, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	var u User
	err := q.QueryRowContext(ctx, `
		SELECT id, username, created_at FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// EnsureUser returns the user with the given name, creating it if needed.
// Names compare case-insensitively; the first spelling seen is kept.
func (s *SQLiteLedgerStore) EnsureUser(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ensureUser(ctx, s.db, username)
}

// GetUser retrieves a user by name
func (s *SQLiteLedgerStore) GetUser(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, created_at FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// CreateLoan records a new loan and sets its ID
func (s *SQLiteLedgerStore) CreateLoan(ctx context.Context, loan *Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loan.PrincipalCents <= 0 {
		return fmt.Errorf("loan principal must be positive")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lender, err := ensureUser(ctx, tx, loan.Lender)
	if err != nil {
		return err
	}
	borrower, err := ensureUser(ctx, tx, loan.Borrower)
	if err != nil {
		return err
	}

	now := time.Now()
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = now
	}
	loan.UpdatedAt = now

	res, err := tx.ExecContext(ctx, `
		INSERT INTO loans (lender_id, borrower_id, principal_cents, repaid_cents, currency, memo, thread_id, unpaid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, lender.ID, borrower.ID, loan.PrincipalCents, loan.RepaidCents, loan.Currency,
		loan.Memo, loan.ThreadID, loan.Unpaid, loan.CreatedAt, loan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read loan id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit loan: %w", err)
	}

	loan.ID = id
	loan.Lender = lender.Username
	loan.Borrower = borrower.Username
	return nil
}

const loanColumns = `
	l.id, lu.username, bu.username, l.principal_cents, l.repaid_cents,
	l.currency, l.memo, l.thread_id, l.unpaid, l.created_at, l.updated_at
	FROM loans l
	JOIN users lu ON lu.id = l.lender_id
	JOIN users bu ON bu.id = l.borrower_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (*Loan, error) {
	var l Loan
	err := row.Scan(&l.ID, &l.Lender, &l.Borrower, &l.PrincipalCents, &l.RepaidCents,
		&l.Currency, &l.Memo, &l.ThreadID, &l.Unpaid, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLoan retrieves a loan by ID
func (s *SQLiteLedgerStore) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, err := scanLoan(s.db.QueryRowContext(ctx, `SELECT `+loanColumns+` WHERE l.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// ListLoans returns loans matching the filter, oldest first
func (s *SQLiteLedgerStore) ListLoans(ctx context.Context, filter LoanFilter) ([]*Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conds []string
	var args []interface{}

	if filter.Lender != "" {
		conds = append(conds, "lu.username = ? COLLATE NOCASE")
		args = append(args, filter.Lender)
	}
	if filter.Borrower != "" {
		conds = append(conds, "bu.username = ? COLLATE NOCASE")
		args = append(args, filter.Borrower)
	}
	if filter.Currency != "" {
		conds = append(conds, "l.currency = ?")
		args = append(args, filter.Currency)
	}
	if filter.OutstandingOnly {
		conds = append(conds, "l.repaid_cents < l.principal_cents")
	}

	query := `SELECT ` + loanColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY l.created_at ASC, l.id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	return loans, rows.Err()
}

// AddRepayment applies one repayment to a loan
func (s *SQLiteLedgerStore) AddRepayment(ctx context.Context, r *Repayment) error {
	return s.AddRepayments(ctx, []*Repayment{r})
}

// AddRepayments applies several repayments atomically. Either every
// repayment is recorded or none is.
func (s *SQLiteLedgerStore) AddRepayments(ctx context.Context, repayments []*Repayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, r := range repayments {
		if r.AmountCents <= 0 {
			return fmt.Errorf("repayment amount must be positive")
		}

		var principal, repaid int64
		err := tx.QueryRowContext(ctx, `
			SELECT principal_cents, repaid_cents FROM loans WHERE id = ?
		`, r.LoanID).Scan(&principal, &repaid)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("loan %d: %w", r.LoanID, ErrLoanNotFound)
			}
			return fmt.Errorf("failed to get loan: %w", err)
		}
		if repaid+r.AmountCents > principal {
			return fmt.Errorf("loan %d: %w", r.LoanID, ErrOverpayment)
		}

		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO repayments (loan_id, amount_cents, created_at) VALUES (?, ?, ?)
		`, r.LoanID, r.AmountCents, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to add repayment: %w", err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read repayment id: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE loans SET repaid_cents = repaid_cents + ?, updated_at = ? WHERE id = ?
		`, r.AmountCents, now, r.LoanID); err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit repayments: %w", err)
	}
	return nil
}

// GetRepayments returns the repayments of a loan, oldest first
func (s *SQLiteLedgerStore) GetRepayments(ctx context.Context, loanID int64) ([]*Repayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, amount_cents, created_at
		FROM repayments WHERE loan_id = ?
		ORDER BY created_at ASC, id ASC
	`, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get repayments: %w", err)
	}
	defer rows.Close()

	var repayments []*Repayment
	for rows.Next() {
		var r Repayment
		if err := rows.Scan(&r.ID, &r.LoanID, &r.AmountCents, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan repayment: %w", err)
		}
		repayments = append(repayments, &r)
	}

	return repayments, rows.Err()
}

// MarkUnpaid flags every outstanding loan from lender to borrower and
// returns how many loans were flagged
func (s *SQLiteLedgerStore) MarkUnpaid(ctx context.Context, lender, borrower string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE loans SET unpaid = 1, updated_at = ?
		WHERE repaid_cents < principal_cents
		  AND unpaid = 0
		  AND lender_id = (SELECT id FROM users WHERE username = ?)
		  AND borrower_id = (SELECT id FROM users WHERE username = ?)
	`, time.Now(), lender, borrower)
	if err != nil {
		return 0, fmt.Errorf("failed to mark loans unpaid: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count unpaid loans: %w", err)
	}
	return n, nil
}

// AddConfirmation records a confirmation and sets its ID
func (s *SQLiteLedgerStore) AddConfirmation(ctx context.Context, c *Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	author, err := ensureUser(ctx, tx, c.Author)
	if err != nil {
		return err
	}
	counterparty, err := ensureUser(ctx, tx, c.Counterparty)
	if err != nil {
		return err
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO confirmations (author_id, counterparty_id, amount_cents, currency, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, author.ID, counterparty.ID, c.AmountCents, c.Currency, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add confirmation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read confirmation id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit confirmation: %w", err)
	}

	c.ID = id
	return nil
}

// CountConfirmations returns how many confirmations a user has written
func (s *SQLiteLedgerStore) CountConfirmations(ctx context.Context, username string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM confirmations c
		JOIN users u ON u.id = c.author_id
		WHERE u.username = ?
	`, username).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmations: %w", err)
	}
	return n, nil
}

// MarkProcessed records that a message has been handled. Marking the same
// message twice is not an error.
func (s *SQLiteLedgerStore) MarkProcessed(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if messageID == "" {
		return fmt.Errorf("message ID is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO processed (message_id, processed_at) VALUES (?, ?)
	`, messageID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}

// IsProcessed reports whether a message has been handled before
func (s *SQLiteLedgerStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM processed WHERE message_id = ?
	`, messageID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check processed message: %w", err)
	}
	return true, nil
}

// Ping verifies the database is reachable
func (s *SQLiteLedgerStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}

// Statistics returns store statistics
func (s *SQLiteLedgerStore) Statistics(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	// Totals per table
	for key, table := range map[string]string{
		"total_users":         "users",
		"total_loans":         "loans",
		"total_repayments":    "repayments",
		"total_confirmations": "confirmations",
		"processed_messages":  "processed",
	} {
		var n int64
		s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
		stats[key] = n
	}

	// Open loans
	var open int64
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loans WHERE repaid_cents < principal_cents`).Scan(&open)
	stats["outstanding_loans"] = open

	// Unpaid loans
	var unpaid int64
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loans WHERE unpaid = 1`).Scan(&unpaid)
	stats["unpaid_loans"] = unpaid

	// Outstanding amount per currency
	rows, err := s.db.QueryContext(ctx, `
		SELECT currency, SUM(principal_cents - repaid_cents)
		FROM loans WHERE repaid_cents < principal_cents
		GROUP BY currency
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to sum outstanding loans: %w", err)
	}
	defer rows.Close()

	outstanding := make(map[string]int64)
	for rows.Next() {
		var currency string
		var cents int64
		if err := rows.Scan(&currency, &cents); err != nil {
			return nil, fmt.Errorf("failed to scan outstanding sum: %w", err)
		}
		outstanding[currency] = cents
	}
	stats["outstanding_cents"] = outstanding

	return stats, rows.Err()
}

var _ LedgerStore = (*SQLiteLedgerStore)(nil)
