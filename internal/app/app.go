// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the keyspot daemon: create, start, stop.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corey/keyspot/internal/adapters/socket"
	"github.com/corey/keyspot/internal/adapters/web"
	"github.com/corey/keyspot/internal/domain/fragment"
	"github.com/corey/keyspot/internal/domain/keywords"
	"github.com/corey/keyspot/internal/domain/recognizer"
	"github.com/corey/keyspot/internal/ports"
)

// Config holds initialization parameters for the App.
type Config struct {
	Source      string // file, embedded, bbolt, postgres (default: file if KeywordFile set, else embedded)
	KeywordFile string
	KeywordSet  string // bbolt set name
	FoldCase    bool
	Engine      string // native or library (default native)

	DBPath         string // bbolt file (default: <Home>/keyspot.db)
	PostgresDSN    string
	PostgresTable  string
	PostgresColumn string

	FragmentJoiner    string
	FragmentMinLength int

	SocketPath string // default: computed from Home
	HTTPPort   int    // 0 = computed from Home, negative disables HTTP
	Watch      bool   // reload when KeywordFile changes

	Home   string // default DefaultHome()
	Logger logrus.FieldLogger
}

// App is the top-level container wiring all components together.
type App struct {
	Paths      *Paths
	Recognizer *recognizer.Recognizer
	Server     *socket.Server
	WebServer  *web.Server   // nil when HTTP is disabled
	Watcher    ports.Watcher // nil unless watching a keyword file

	cfg         Config
	log         logrus.FieldLogger
	source      ports.PatternSource
	closeSource func() error
	reloadMu    sync.Mutex // keeps matcher and fragment dictionary in step
	fragments   atomic.Pointer[fragment.Recognizer]
	scans       atomic.Uint64
	reloads     atomic.Uint64
	started     time.Time
	serving     bool
	stopOnce    sync.Once
}

// New creates an App, resolves the keyword source and loads the initial
// keyword set. Does not start services.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Home == "" {
		cfg.Home = DefaultHome()
	}
	paths := NewPaths(cfg.Home)
	if cfg.DBPath == "" {
		cfg.DBPath = paths.DB
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = socket.SocketPath(cfg.Home)
	}
	if cfg.Engine == "" {
		cfg.Engine = recognizer.NativeEngine
	}

	factory, err := EngineFactory(cfg.Engine)
	if err != nil {
		return nil, err
	}

	// Fail fast on a bad fragment joiner rather than on the first reload.
	if _, err := fragment.New(fragment.Config{Joiner: cfg.FragmentJoiner, MinLength: cfg.FragmentMinLength}, nil); err != nil {
		return nil, err
	}

	src, closer, err := openSource(ctx, cfg, cfg.Logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Paths: paths,
		Recognizer: recognizer.New(recognizer.Config{
			Engine:   cfg.Engine,
			Factory:  factory,
			FoldCase: cfg.FoldCase,
			Logger:   cfg.Logger,
		}),
		cfg:         cfg,
		log:         cfg.Logger.WithField("component", "app"),
		source:      src,
		closeSource: closer,
		started:     time.Now(),
	}

	if _, err := a.Reload(ctx); err != nil {
		closer()
		return nil, err
	}

	a.Server = socket.NewServer(a, cfg.SocketPath, cfg.Logger)
	if cfg.HTTPPort >= 0 {
		a.WebServer = web.NewServer(a, paths.PortFile, cfg.Logger)
	}
	return a, nil
}

// Source returns the name of the configured keyword source.
func (a *App) Source() string {
	return a.source.Name()
}

// Start begins the daemon (socket server, HTTP server, keyword file watcher).
func (a *App) Start() error {
	if err := a.Paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create home: %w", err)
	}
	a.started = time.Now()
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	a.serving = true

	// HTTP is non-fatal if the port is unavailable.
	if a.WebServer != nil {
		port := a.cfg.HTTPPort
		if port == 0 {
			port = web.DefaultPort(a.cfg.Home)
		}
		if err := a.WebServer.Start(port); err != nil {
			a.log.WithError(err).Warn("HTTP API unavailable")
		} else {
			a.log.WithField("url", a.WebServer.URL()).Info("HTTP API listening")
		}
	}

	if a.cfg.Watch {
		if err := a.startWatcher(); err != nil {
			a.log.WithError(err).Warn("keyword file watcher unavailable")
		}
	}
	return nil
}

// Stop shuts down all services and releases the keyword source. Idempotent.
// An App that was never started only releases its source, leaving any
// daemon socket at the same path alone.
func (a *App) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		if a.Watcher != nil {
			a.Watcher.Stop()
		}
		if a.serving {
			if a.WebServer != nil {
				a.WebServer.Stop()
			}
			a.Server.Stop()
		}
		err = a.closeSource()
	})
	return err
}

// Scan recognizes keywords in text with the active matcher.
func (a *App) Scan(text string) (socket.ScanResult, error) {
	res, err := a.Recognizer.Recognize(text)
	if err != nil {
		return socket.ScanResult{}, err
	}
	a.scans.Add(1)
	return socket.ScanResult{
		Matches:  res.Matches,
		Keywords: res.Keywords,
		Count:    len(res.Matches),
		Elapsed:  res.Elapsed.String(),
	}, nil
}

// Fragments extracts alphanumeric fragments from text and reports which of
// them are exact entries of the active keyword set.
func (a *App) Fragments(text string) (socket.FragmentsResult, error) {
	fr := a.fragments.Load()
	if fr == nil {
		return socket.FragmentsResult{}, recognizer.ErrNoMatcher
	}
	frags := fr.Fragments(text)
	return socket.FragmentsResult{
		Fragments: frags,
		Keywords:  fr.Match(text),
		Count:     len(frags),
	}, nil
}

// Stats reports on the active keyword set and daemon counters.
func (a *App) Stats() socket.StatsResult {
	st := a.Recognizer.Stats()
	out := socket.StatsResult{
		Engine:      st.Engine,
		Source:      st.Source,
		Patterns:    st.Patterns,
		Fingerprint: st.Fingerprint,
		FoldCase:    st.FoldCase,
		BuildTimeMs: st.BuildTimeMs,
		Scans:       a.scans.Load(),
		Reloads:     a.reloads.Load(),
		Uptime:      time.Since(a.started).Truncate(time.Second).String(),
	}
	if !st.LoadedAt.IsZero() {
		out.LoadedAt = st.LoadedAt.Format(time.RFC3339)
	}
	return out
}

// Reload re-reads the keyword source. When the set changed, the fragment
// dictionary is rebuilt alongside the matcher.
func (a *App) Reload(ctx context.Context) (socket.ReloadResult, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	res, err := a.Recognizer.Reload(ctx, a.source)
	if err != nil {
		return socket.ReloadResult{}, err
	}
	a.reloads.Add(1)

	if res.Changed || a.fragments.Load() == nil {
		fr, err := fragment.New(fragment.Config{
			Joiner:    a.cfg.FragmentJoiner,
			MinLength: a.cfg.FragmentMinLength,
		}, keywords.Normalize(a.Recognizer.Keywords(), true))
		if err != nil {
			return socket.ReloadResult{}, err
		}
		a.fragments.Store(fr)
	}

	return socket.ReloadResult{
		Source:   res.Source,
		Changed:  res.Changed,
		Patterns: res.Patterns,
		Elapsed:  res.Elapsed.String(),
	}, nil
}
