// Package recognizer owns the active keyword matcher and turns scans into
// results. A built matcher is never mutated: Reload builds a fresh one from
// the source and swaps it in atomically, so scans in flight keep using the
// matcher they started with.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/corey/keyspot/internal/domain/automaton"
	"github.com/corey/keyspot/internal/domain/keywords"
	"github.com/corey/keyspot/internal/ports"
)

// ErrNoMatcher is returned by Recognize before the first successful Reload.
var ErrNoMatcher = errors.New("no keyword set loaded")

// NativeEngine is the engine name of the built-in automaton.
const NativeEngine = "native"

// MatcherFactory builds a matcher from a normalized keyword list.
type MatcherFactory func(keywords []string) ports.PatternMatcher

// NativeFactory builds the in-package Aho-Corasick automaton.
func NativeFactory(kws []string) ports.PatternMatcher {
	return automaton.Build(kws)
}

// Config holds recognizer settings.
type Config struct {
	Engine   string             // engine name for stats (default NativeEngine)
	Factory  MatcherFactory     // default NativeFactory
	FoldCase bool               // lower-case keywords and text
	Logger   logrus.FieldLogger // default logrus.StandardLogger()
}

// snapshot is one immutable generation of the keyword set.
type snapshot struct {
	matcher     ports.PatternMatcher
	keywords    []string
	fingerprint uint64
	source      string
	loadedAt    time.Time
	buildTime   time.Duration
}

// Recognizer scans text against the current keyword set.
// Recognize is safe for concurrent use; Reload calls are serialized.
type Recognizer struct {
	cfg     Config
	log     logrus.FieldLogger
	mu      sync.Mutex // serializes Reload
	current atomic.Pointer[snapshot]
}

// Result is the outcome of one Recognize call.
type Result struct {
	Matches  []ports.Match // every occurrence, ordered by End
	Keywords []string      // distinct matched keywords, first-seen order
	Elapsed  time.Duration
}

// ReloadResult describes what a Reload did.
type ReloadResult struct {
	Source      string
	Changed     bool // false when the keyword set was identical to the active one
	Patterns    int
	Fingerprint uint64
	Elapsed     time.Duration
}

// Stats is a point-in-time view of the active keyword set.
type Stats struct {
	Engine      string    `json:"engine"`
	Source      string    `json:"source"`
	Patterns    int       `json:"patterns"`
	Fingerprint string    `json:"fingerprint"`
	FoldCase    bool      `json:"fold_case"`
	LoadedAt    time.Time `json:"loaded_at"`
	BuildTimeMs float64   `json:"build_time_ms"`
}

// New creates a recognizer with no keyword set loaded.
func New(cfg Config) *Recognizer {
	if cfg.Engine == "" {
		cfg.Engine = NativeEngine
	}
	if cfg.Factory == nil {
		cfg.Factory = NativeFactory
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Recognizer{
		cfg: cfg,
		log: cfg.Logger.WithField("engine", cfg.Engine),
	}
}

// Reload loads keywords from src and, if the set differs from the active
// one, builds and swaps in a new matcher. On error the active matcher is kept.
func (r *Recognizer) Reload(ctx context.Context, src ports.PatternSource) (ReloadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	raw, err := src.Load(ctx)
	if err != nil {
		return ReloadResult{Source: src.Name()}, fmt.Errorf("load %s: %w", src.Name(), err)
	}

	kws := keywords.Normalize(raw, r.cfg.FoldCase)
	fp := keywords.Fingerprint(kws)

	if cur := r.current.Load(); cur != nil && cur.fingerprint == fp {
		r.log.WithFields(logrus.Fields{
			"source":   src.Name(),
			"patterns": len(kws),
		}).Debug("keyword set unchanged, keeping matcher")
		return ReloadResult{
			Source:      src.Name(),
			Patterns:    cur.matcher.PatternCount(),
			Fingerprint: fp,
			Elapsed:     time.Since(start),
		}, nil
	}

	buildStart := time.Now()
	m := r.cfg.Factory(kws)
	buildTime := time.Since(buildStart)

	r.current.Store(&snapshot{
		matcher:     m,
		keywords:    kws,
		fingerprint: fp,
		source:      src.Name(),
		loadedAt:    time.Now(),
		buildTime:   buildTime,
	})

	r.log.WithFields(logrus.Fields{
		"source":   src.Name(),
		"patterns": m.PatternCount(),
		"build":    buildTime,
	}).Info("keyword matcher built")

	return ReloadResult{
		Source:      src.Name(),
		Changed:     true,
		Patterns:    m.PatternCount(),
		Fingerprint: fp,
		Elapsed:     time.Since(start),
	}, nil
}

// Recognize scans text with the active matcher. When case folding is on the
// text is lower-cased first, and match offsets refer to the lower-cased text.
func (r *Recognizer) Recognize(text string) (Result, error) {
	snap := r.current.Load()
	if snap == nil {
		return Result{}, ErrNoMatcher
	}

	if r.cfg.FoldCase {
		text = strings.ToLower(text)
	}

	start := time.Now()
	matches := snap.matcher.Scan(text)
	elapsed := time.Since(start)

	r.log.WithFields(logrus.Fields{
		"runes":   utf8.RuneCountInString(text),
		"matches": len(matches),
		"scan":    elapsed,
	}).Debug("scan complete")

	return Result{
		Matches:  matches,
		Keywords: Distinct(matches),
		Elapsed:  elapsed,
	}, nil
}

// Keywords returns a copy of the active normalized keyword set, or nil
// before the first Reload.
func (r *Recognizer) Keywords() []string {
	snap := r.current.Load()
	if snap == nil {
		return nil
	}
	out := make([]string, len(snap.keywords))
	copy(out, snap.keywords)
	return out
}

// Stats reports on the active keyword set. Zero values before the first Reload.
func (r *Recognizer) Stats() Stats {
	st := Stats{Engine: r.cfg.Engine, FoldCase: r.cfg.FoldCase}
	snap := r.current.Load()
	if snap == nil {
		return st
	}
	st.Source = snap.source
	st.Patterns = snap.matcher.PatternCount()
	st.Fingerprint = fmt.Sprintf("%016x", snap.fingerprint)
	st.LoadedAt = snap.loadedAt
	st.BuildTimeMs = float64(snap.buildTime.Microseconds()) / 1000
	return st
}

// Distinct reduces matches to the distinct matched patterns in first-seen order.
func Distinct(matches []ports.Match) []string {
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if seen[m.Pattern] {
			continue
		}
		seen[m.Pattern] = true
		out = append(out, m.Pattern)
	}
	return out
}
