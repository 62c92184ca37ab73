// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import (
	"context"
	"fmt"
)

// PatternMatcher finds keywords in text using multi-pattern matching (Aho-Corasick).
// A single pass over the text finds every occurrence of every keyword, overlapping
// occurrences included. This is O(n + z) after construction, where n=text length
// and z=number of matches.
//
// A matcher is immutable once built. When the keyword set changes a new matcher
// is built and swapped in by the owner. Scan is safe for concurrent use.
type PatternMatcher interface {
	// Scan returns every match in text ordered by increasing End. Text is
	// matched as-is (caller normalizes case). Returns nil if nothing matches.
	Scan(text string) []Match

	// PatternCount returns the number of distinct patterns in the matcher.
	PatternCount() int
}

// Match is one occurrence of a pattern in a scanned text.
// Start and End are inclusive rune offsets into the text.
type Match struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Pattern string `json:"pattern"`
}

// String renders the match as pattern@start-end.
func (m Match) String() string {
	return fmt.Sprintf("%s@%d-%d", m.Pattern, m.Start, m.End)
}

// PatternSource supplies the keyword set a matcher is built from.
// Implementations return keywords as stored; normalization (trimming,
// case folding, dedup) is applied by the consumer.
type PatternSource interface {
	// Name identifies the source in logs and stats (e.g., "file:/etc/kw.txt").
	Name() string

	// Load returns the current keyword list. An empty list is valid.
	Load(ctx context.Context) ([]string, error)
}
