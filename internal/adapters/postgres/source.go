// Package postgres serves keyword sets from a PostgreSQL table, for
// deployments where the dictionary is curated in a shared database rather
// than a file. Only reads are performed.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/corey/keyspot/internal/ports"
)

// Defaults for the keyword table.
const (
	DefaultTable  = "keywords"
	DefaultColumn = "keyword"
)

var _ ports.PatternSource = (*Source)(nil)

// Source loads keywords from one text column of a table. NULL rows are skipped.
type Source struct {
	db     *sql.DB
	table  string
	column string
	query  string
}

// NewSource creates a source reading column from table. table may be
// schema-qualified ("dict.keywords"); both parts are quoted as identifiers.
func NewSource(db *sql.DB, table, column string) *Source {
	if table == "" {
		table = DefaultTable
	}
	if column == "" {
		column = DefaultColumn
	}
	return &Source{
		db:     db,
		table:  table,
		column: column,
		query:  fmt.Sprintf("SELECT %s FROM %s", pq.QuoteIdentifier(column), quoteTable(table)),
	}
}

// Name implements ports.PatternSource.
func (s *Source) Name() string {
	return fmt.Sprintf("postgres:%s.%s", s.table, s.column)
}

// Load implements ports.PatternSource.
func (s *Source) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var kw sql.NullString
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		if kw.Valid {
			out = append(out, kw.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read keywords: %w", err)
	}
	return out, nil
}

func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// RetryConfig bounds the connection retry in Open.
type RetryConfig struct {
	InitialInterval time.Duration // default 250ms
	MaxInterval     time.Duration // default 5s
	MaxElapsedTime  time.Duration // default 30s
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	if c.MaxElapsedTime > 0 {
		b.MaxElapsedTime = c.MaxElapsedTime
	}
	return backoff.WithContext(b, ctx)
}

// Open connects to dsn and waits for the server to answer a ping.
// The daemon may start before its database, so the ping is retried with
// exponential backoff until retry.MaxElapsedTime.
func Open(ctx context.Context, dsn string, retry RetryConfig, log logrus.FieldLogger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := Ping(ctx, db, retry, log); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Ping pings db until it answers or the retry budget is spent.
func Ping(ctx context.Context, db *sql.DB, retry RetryConfig, log logrus.FieldLogger) error {
	attempt := 0
	op := func() error {
		attempt++
		return db.PingContext(ctx)
	}
	notify := func(err error, wait time.Duration) {
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"wait":    wait,
		}).Warnf("postgres not ready: %v", err)
	}
	if err := backoff.RetryNotify(op, retry.backOff(ctx), notify); err != nil {
		return fmt.Errorf("postgres ping after %d attempts: %w", attempt, err)
	}
	return nil
}
