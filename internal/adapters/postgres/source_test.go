package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSource_Defaults(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSource(db, "", "")
	assert.Equal(t, "postgres:keywords.keyword", s.Name())
	assert.Equal(t, `SELECT "keyword" FROM "keywords"`, s.query)
}

func TestNewSource_QuotesIdentifiers(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSource(db, "dict.brake_terms", `te"rm`)
	assert.Equal(t, `SELECT "te""rm" FROM "dict"."brake_terms"`, s.query)
}

func TestSource_Load(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"keyword"}).
		AddRow("bosch").
		AddRow(nil).
		AddRow("DOT4").
		AddRow("制动液")
	mock.ExpectQuery(`SELECT "keyword" FROM "keywords"`).WillReturnRows(rows)

	got, err := NewSource(db, "", "").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bosch", "DOT4", "制动液"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_LoadEmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT "keyword" FROM "keywords"`).
		WillReturnRows(sqlmock.NewRows([]string{"keyword"}))

	got, err := NewSource(db, "", "").Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSource_LoadQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("relation does not exist")
	mock.ExpectQuery(`SELECT`).WillReturnError(boom)

	_, err = NewSource(db, "", "").Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "query keywords")
}

func TestSource_LoadRowError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	rows := sqlmock.NewRows([]string{"keyword"}).
		AddRow("bosch").
		AddRow("dot4").
		RowError(1, boom)
	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	_, err = NewSource(db, "", "").Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

// =============================================================================
// Ping retry
// =============================================================================

var fastRetry = RetryConfig{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsedTime:  2 * time.Second,
}

func TestPing_RetriesUntilReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	down := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(down)
	mock.ExpectPing().WillReturnError(down)
	mock.ExpectPing()

	logger, hook := logtest.NewNullLogger()
	require.NoError(t, Ping(context.Background(), db, fastRetry, logger))
	assert.NoError(t, mock.ExpectationsWereMet())

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestPing_GivesUpOnCanceledContext(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger, _ := logtest.NewNullLogger()
	err = Ping(ctx, db, fastRetry, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping after")
}
