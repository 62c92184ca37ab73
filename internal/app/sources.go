package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/corey/keyspot/internal/adapters/ahocorasick"
	"github.com/corey/keyspot/internal/adapters/bbolt"
	"github.com/corey/keyspot/internal/adapters/postgres"
	"github.com/corey/keyspot/internal/domain/keywords"
	"github.com/corey/keyspot/internal/domain/recognizer"
	"github.com/corey/keyspot/internal/ports"
)

// Keyword source kinds.
const (
	SourceFile     = "file"
	SourceEmbedded = "embedded"
	SourceBbolt    = "bbolt"
	SourcePostgres = "postgres"
)

var (
	ErrUnknownSource = errors.New("unknown keyword source")
	ErrUnknownEngine = errors.New("unknown engine")
)

// EngineFactory returns the matcher factory for an engine name.
func EngineFactory(name string) (recognizer.MatcherFactory, error) {
	switch name {
	case "", recognizer.NativeEngine:
		return recognizer.NativeFactory, nil
	case ahocorasick.EngineName:
		return func(kws []string) ports.PatternMatcher {
			return ahocorasick.NewMatcher(kws)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownEngine, name, recognizer.NativeEngine, ahocorasick.EngineName)
	}
}

// storeSource serves a bbolt keyword set, opening the database only for the
// duration of each Load. Holding the file lock for the daemon's lifetime would
// block `keywords import` from updating the set the daemon is serving.
type storeSource struct {
	path string
	set  string
}

func (s storeSource) Name() string {
	return "bbolt:" + s.set
}

func (s storeSource) Load(ctx context.Context) ([]string, error) {
	store, err := bbolt.NewStore(s.path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return bbolt.SetSource{Store: store, Set: s.set}.Load(ctx)
}

// openSource resolves the configured keyword source. The returned closer
// releases any connection the source holds; it is never nil.
func openSource(ctx context.Context, cfg Config, log logrus.FieldLogger) (ports.PatternSource, func() error, error) {
	noop := func() error { return nil }

	kind := cfg.Source
	if kind == "" {
		kind = SourceEmbedded
		if cfg.KeywordFile != "" {
			kind = SourceFile
		}
	}

	switch kind {
	case SourceFile:
		if cfg.KeywordFile == "" {
			return nil, noop, fmt.Errorf("keyword source %q needs keywords.file", kind)
		}
		return keywords.FileSource{Path: cfg.KeywordFile}, noop, nil

	case SourceEmbedded:
		return keywords.EmbeddedSource{}, noop, nil

	case SourceBbolt:
		if cfg.KeywordSet == "" {
			return nil, noop, fmt.Errorf("keyword source %q needs keywords.set", kind)
		}
		return storeSource{path: cfg.DBPath, set: cfg.KeywordSet}, noop, nil

	case SourcePostgres:
		if cfg.PostgresDSN == "" {
			return nil, noop, fmt.Errorf("keyword source %q needs postgres.dsn", kind)
		}
		db, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.RetryConfig{}, log)
		if err != nil {
			return nil, noop, err
		}
		return postgres.NewSource(db, cfg.PostgresTable, cfg.PostgresColumn), db.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
	}
}
