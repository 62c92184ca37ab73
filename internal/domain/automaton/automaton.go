// Package automaton implements a multi-pattern string matching automaton
// (Aho-Corasick). Patterns are inserted into a trie; Finalize computes failure
// links breadth-first and folds output sets along failure chains, so that Scan
// reports every occurrence of every pattern in a single pass over the text.
//
// The automaton treats characters opaquely: case normalization is the
// caller's policy and must be applied to both patterns and text. Text and
// patterns are read as UTF-8; an invalid byte counts as one character that
// matches only itself.
package automaton

import (
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/corey/keyspot/internal/ports"
)

// ErrFinalized is returned by Insert once the failure links have been built.
// A finalized automaton is immutable; build a new one for a new pattern set.
var ErrFinalized = errors.New("automaton already finalized")

// Automaton is an Aho-Corasick automaton over runes.
//
// Lifecycle: Insert patterns (single writer), Finalize once (explicitly or
// lazily on the first Scan), then Scan from any number of goroutines.
type Automaton struct {
	mu       sync.Mutex // serializes Insert and the one-time Finalize
	states   []state    // state arena; index 0 is the root
	patterns int

	once      sync.Once
	finalized atomic.Bool
}

var _ ports.PatternMatcher = (*Automaton)(nil)

// New creates an empty automaton holding only the root state.
func New() *Automaton {
	r := newState(0)
	r.isRoot = true
	return &Automaton{states: []state{r}}
}

// Build creates a finalized automaton from patterns. Empty patterns are skipped.
func Build(patterns []string) *Automaton {
	a := New()
	for _, p := range patterns {
		// Insert only fails after Finalize.
		_ = a.Insert(p)
	}
	a.Finalize()
	return a
}

// Insert adds pattern to the trie, creating a state for each character not
// yet present on the path. Empty patterns and duplicates are no-ops.
// Returns ErrFinalized if the automaton has already been finalized.
func (a *Automaton) Insert(pattern string) error {
	if pattern == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized.Load() {
		return ErrFinalized
	}

	cur := root
	length := 0
	for c := range symbols(pattern) {
		next, ok := a.states[cur].transitions[c]
		if !ok {
			next = len(a.states)
			a.states = append(a.states, newState(a.states[cur].depth+1))
			a.states[cur].addChild(c, next)
		}
		cur = next
		length++
	}

	s := &a.states[cur]
	if s.hasOutput(pattern) {
		return nil
	}
	s.outputs = append(s.outputs, output{pattern: pattern, runes: length})
	s.own++
	a.patterns++
	return nil
}

// Finalize computes failure links and merged output sets. It runs exactly
// once; later calls return immediately. Concurrent first callers block until
// the single construction completes.
func (a *Automaton) Finalize() {
	a.once.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.buildFailureLinks()
		a.finalized.Store(true)
	})
}

// Finalized reports whether failure links have been built.
func (a *Automaton) Finalized() bool {
	return a.finalized.Load()
}

// buildFailureLinks walks the trie breadth-first. Every state at depth d has
// its failure link resolved before any state at depth d+1 is processed, which
// the child computation depends on.
func (a *Automaton) buildFailureLinks() {
	queue := make([]int, 0, len(a.states))

	// Depth 1: the only proper suffix is the empty string.
	for _, child := range a.states[root].transitions {
		a.states[child].failure = root
		queue = append(queue, child)
	}

	for head := 0; head < len(queue); head++ {
		parent := queue[head]
		for c, child := range a.states[parent].transitions {
			queue = append(queue, child)

			fail := a.next(a.states[parent].failure, c)
			a.states[child].failure = fail

			// Anything reported at the failure state is a suffix of this
			// state's path, so it is reported here too.
			if inherited := a.states[fail].outputs; len(inherited) > 0 {
				a.states[child].outputs = append(a.states[child].outputs, inherited...)
			}
		}
	}
}

// next is the fallback transition: follow failure links from s until a state
// with a transition on c is found. The root absorbs characters it has no
// transition for, so the loop always terminates.
func (a *Automaton) next(s int, c rune) int {
	for {
		if t, ok := a.states[s].transitions[c]; ok {
			return t
		}
		if a.states[s].isRoot {
			return root
		}
		s = a.states[s].failure
	}
}

// Scan returns every occurrence of every pattern in text, ordered by
// increasing End. Within one End, patterns are ordered longest first.
// Finalizes the automaton if needed. Returns nil if nothing matches.
func (a *Automaton) Scan(text string) []ports.Match {
	var matches []ports.Match
	for m := range a.Matches(text) {
		matches = append(matches, m)
	}
	return matches
}

// Matches returns a single-pass sequence over the matches in text, in the
// same order as Scan. Stopping the iteration early stops the scan.
func (a *Automaton) Matches(text string) iter.Seq[ports.Match] {
	return func(yield func(ports.Match) bool) {
		a.Finalize()

		cur := root
		pos := 0
		for c := range symbols(text) {
			cur = a.next(cur, c)
			for _, o := range a.states[cur].outputs {
				m := ports.Match{Start: pos - o.runes + 1, End: pos, Pattern: o.pattern}
				if !yield(m) {
					return
				}
			}
			pos++
		}
	}
}

// PatternCount returns the number of distinct patterns inserted.
func (a *Automaton) PatternCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.patterns
}

// StateCount returns the number of states, root included.
func (a *Automaton) StateCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.states)
}
