package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"zlibsearch/internal/parser"
	"zlibsearch/internal/search"
)

var (
	// ErrNotFound is returned when a read-only index does not exist yet.
	ErrNotFound = errors.New("index not found")
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("index closed")
	// ErrOutOfRange is returned for numbers an SQLite INTEGER cannot hold.
	ErrOutOfRange = errors.New("value out of range")
)

// Options control how an index is opened.
type Options struct {
	// ReadOnly opens an existing index for serving; the file must exist.
	ReadOnly bool
	// MaxOpenConns bounds the connection pool; zero keeps the driver default.
	MaxOpenConns int
}

// Index is a SQLite FTS5 catalogue of books. It implements search.Engine
// and is safe for concurrent use.
type Index struct {
	db     *sql.DB
	path   string
	log    *logrus.Logger
	closed atomic.Bool
}

var _ search.Engine = (*Index)(nil)

// Open opens (and for writable indexes, creates) the index at path.
func Open(ctx context.Context, path string, opts Options, log *logrus.Logger) (*Index, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)"
	if opts.ReadOnly {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		dsn += "&mode=ro"
	} else {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if !opts.ReadOnly {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}

	if !opts.ReadOnly {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Index{db: db, path: path, log: log}, nil
}

// Path returns the file the index lives in.
func (ix *Index) Path() string { return ix.path }

// Search returns at most limit books matching query, best match first.
// A query without searchable text, or limit 0, yields no books.
func (ix *Index) Search(ctx context.Context, query string, limit uint) ([]search.Book, error) {
	if ix.closed.Load() {
		return nil, ErrClosed
	}

	expr := parser.Compile(query)
	if ix.log.IsLevelEnabled(logrus.DebugLevel) {
		ix.log.WithFields(logrus.Fields{
			"query": query,
			"fts":   expr,
			"limit": limit,
		}).Debug("index.search")
	}
	if expr == "" || limit == 0 {
		return []search.Book{}, nil
	}

	rows, err := ix.db.QueryContext(ctx, searchBooks, expr, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	books := make([]search.Book, 0, min(limit, 64))
	for rows.Next() {
		var b search.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Publisher, &b.Extension, &b.Filesize,
			&b.Language, &b.Year, &b.Pages, &b.ISBN, &b.IPFSCID); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return books, nil
}

// Count returns the number of books in the catalogue.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	if ix.closed.Load() {
		return 0, ErrClosed
	}
	var n int64
	if err := ix.db.QueryRowContext(ctx, "SELECT count(*) FROM books").Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

// Upsert writes books in a single transaction, replacing rows with the
// same id.
func (ix *Index) Upsert(ctx context.Context, books []search.Book) error {
	if ix.closed.Load() {
		return ErrClosed
	}
	if len(books) == 0 {
		return nil
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsertBook)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range books {
		if !storable(b) {
			return fmt.Errorf("upsert book %d: %w", b.ID, ErrOutOfRange)
		}
		if _, err := stmt.ExecContext(ctx, int64(b.ID), b.Title, b.Author, b.Publisher, b.Extension,
			int64(b.Filesize), b.Language, int64(b.Year), int64(b.Pages), b.ISBN, b.IPFSCID); err != nil {
			return fmt.Errorf("upsert book %d: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Optimize merges the FTS b-trees; worth running after a bulk import.
func (ix *Index) Optimize(ctx context.Context) error {
	if ix.closed.Load() {
		return ErrClosed
	}
	if _, err := ix.db.ExecContext(ctx, "INSERT INTO books_fts(books_fts) VALUES('optimize')"); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}

// Close releases the database. Further calls fail with ErrClosed.
func (ix *Index) Close() error {
	if !ix.closed.CompareAndSwap(false, true) {
		return nil
	}
	return ix.db.Close()
}

func storable(b search.Book) bool {
	for _, n := range []uint64{b.ID, b.Filesize, b.Year, b.Pages} {
		if n > math.MaxInt64 {
			return false
		}
	}
	return true
}

func sqlLimit(limit uint) int64 {
	if uint64(limit) > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(limit)
}
