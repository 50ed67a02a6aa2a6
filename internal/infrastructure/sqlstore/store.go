// Package sqlstore implements domain.Repository on database/sql.
//
// One SQL dialect ($N placeholders, portable functions) runs on both
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite). The only
// dialect-specific statement is the parent row lock.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/dmehra2102/notely/internal/infrastructure/config"
	"github.com/dmehra2102/notely/internal/ordering"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const defaultQueryTimeout = 5 * time.Second

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver: %s", s)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type Store struct {
	db      *sql.DB
	q       querier
	inTx    bool
	dialect Dialect
	tracer  trace.Tracer
	timeout time.Duration
}

var _ domain.Repository = (*Store)(nil)

func New(db *sql.DB, dialect Dialect, queryTimeout time.Duration) *Store {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Store{
		db:      db,
		q:       db,
		dialect: dialect,
		tracer:  otel.Tracer("sqlstore"),
		timeout: queryTimeout,
	}
}

// Open connects to the configured database and applies the pool settings.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	db, err := openDB(dialect, cfg.URL)
	if err != nil {
		return nil, "", err
	}

	if dialect == SQLite {
		// a single connection serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	return db, dialect, nil
}

func openDB(dialect Dialect, dsn string) (*sql.DB, error) {
	driver := "postgres"
	if dialect == SQLite {
		driver = "sqlite"
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repository) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}

	ctx, span := s.tracer.Start(ctx, "sqlstore.RunInTx")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txStore := &Store{
		db:      s.db,
		q:       tx,
		inTx:    true,
		dialect: s.dialect,
		tracer:  s.tracer,
		timeout: s.timeout,
	}

	if err := fn(ctx, txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			span.RecordError(rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Slots(c ordering.Collection) ordering.Slots {
	switch c {
	case ordering.Pages:
		return &slots{s: s, c: c, table: "pages", parentColumn: "user_id", parentTable: "users"}
	default:
		return &slots{s: s, c: c, table: "blocks", parentColumn: "page_id", parentTable: "pages"}
	}
}

func (s *Store) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	ctx, span := s.tracer.Start(ctx, "sqlstore."+name)
	span.SetAttributes(attrs...)
	return ctx, span, cancel
}

// fail records err on the span and wraps it, mapping unique violations to
// domain.ErrConflict.
func fail(span trace.Span, action string, err error) error {
	span.RecordError(err)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to %s: %w", action, domain.ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

// mustAffect turns a zero-row write into notFound.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}

// placeholders returns "$from, $from+1, ..." for n arguments.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}
