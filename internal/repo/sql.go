package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"numium/config"
	"numium/internal/model"
)

// Dialect captures the differences between the SQL backends the store runs on.
type Dialect struct {
	Name        string
	Driver      string
	BalanceType string
	Placeholder func(n int) string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "postgres",
		BalanceType: "NUMERIC",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
	// SQLite keeps balances as TEXT so decimal values round-trip exactly.
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		BalanceType: "TEXT",
		Placeholder: func(int) string { return "?" },
	}
)

type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewPostgresDB(config *config.Config) (*sql.DB, error) {
	db, err := sql.Open(Postgres.Driver, config.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewSQLiteDB(config *config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(SQLite.Driver, config.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", config.SQLite.Path, err)
	}
	// sqlite allows a single writer; one connection keeps transactions from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the accounts table when it does not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS accounts (
			id      TEXT PRIMARY KEY,
			balance %s NOT NULL
		)`, s.dialect.BalanceType,
	))
	if err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

func (s *SQLStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE id = `+s.dialect.Placeholder(1),
		id,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check account %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (model.Account, error) {
	a := model.Account{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = `+s.dialect.Placeholder(1),
		id,
	).Scan(&a.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLStore) upsert() string {
	var b strings.Builder
	b.WriteString(`INSERT INTO accounts (id, balance) VALUES (`)
	b.WriteString(s.dialect.Placeholder(1))
	b.WriteString(`, `)
	b.WriteString(s.dialect.Placeholder(2))
	b.WriteString(`) ON CONFLICT (id) DO UPDATE SET balance = excluded.balance`)
	return b.String()
}

func (s *SQLStore) Put(ctx context.Context, account model.Account) error {
	if _, err := s.db.ExecContext(ctx, s.upsert(), account.ID, account.Balance.String()); err != nil {
		return fmt.Errorf("%w: put account %s: %v", ErrWriteFailed, account.ID, err)
	}
	return nil
}

func (s *SQLStore) conditionalUpdate() string {
	return `UPDATE accounts SET balance = ` + s.dialect.Placeholder(1) +
		` WHERE id = ` + s.dialect.Placeholder(2) +
		` AND balance = ` + s.dialect.Placeholder(3)
}

// PutAll applies every change inside one database transaction. A row whose balance no longer
// matches its Before value aborts the whole transaction with ErrConflict.
func (s *SQLStore) PutAll(ctx context.Context, changes ...Change) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrWriteFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt := s.conditionalUpdate()
	for _, c := range changes {
		res, execErr := tx.ExecContext(ctx, stmt, c.After.Balance.String(), c.After.ID, c.Before.Balance.String())
		if execErr != nil {
			return fmt.Errorf("%w: update account %s: %v", ErrWriteFailed, c.After.ID, execErr)
		}
		n, rowsErr := res.RowsAffected()
		if rowsErr != nil {
			return fmt.Errorf("%w: update account %s: %v", ErrWriteFailed, c.After.ID, rowsErr)
		}
		if n != 1 {
			return fmt.Errorf("%w: %s", ErrConflict, c.After.ID)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrWriteFailed, err)
	}
	return nil
}
