package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/trainlog/internal/monitoring"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTxNotStarted marks a multi-statement operation that failed before
	// anything was applied.
	ErrTxNotStarted = errors.New("transaction not started")

	// ErrTxAborted marks a multi-statement operation that failed part way
	// through and was rolled back.
	ErrTxAborted = errors.New("transaction aborted")
)

// TxError reports the failing step of a multi-statement operation.
// errors.Is matches ErrTxNotStarted or ErrTxAborted as well as the cause.
type TxError struct {
	Op   string
	Step string
	Err  error

	started bool
}

func (e *TxError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Step, e.Err)
}

func (e *TxError) Unwrap() []error {
	if e.started {
		return []error{ErrTxAborted, e.Err}
	}
	return []error{ErrTxNotStarted, e.Err}
}

type DB struct {
	*sql.DB
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	// Write transactions take the lock up front so they wait on busy_timeout
	// instead of failing on upgrade.
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// OpenDB opens the database without touching the schema.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{db}, nil
}

// NewDB opens the database and brings the schema up to date, dropping any
// table whose shape is obsolete.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// stepError tags an error with the statement that produced it.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func failed(step string, err error) error {
	return &stepError{step: step, err: err}
}

// inTx runs fn in a single transaction. Any error rolls everything back.
func (db *DB) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &TxError{Op: op, Step: "begin", Err: err}
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			monitoring.Logf("[db] %s: rollback failed: %v", op, rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		txErr := &TxError{Op: op, Err: err, started: true}
		var se *stepError
		if errors.As(err, &se) {
			txErr.Step = se.step
			txErr.Err = se.err
		}
		return txErr
	}
	if err := tx.Commit(); err != nil {
		return &TxError{Op: op, Step: "commit", Err: err, started: true}
	}
	return nil
}

// Reset deletes every row of every table.
func (db *DB) Reset(ctx context.Context) error {
	return db.inTx(ctx, "reset", func(tx *sql.Tx) error {
		for _, table := range allTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return failed(table, err)
			}
		}
		return nil
	})
}
