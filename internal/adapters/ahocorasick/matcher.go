// Package ahocorasick provides an alternate ports.PatternMatcher backed by the
// petar-dambovaliev/aho-corasick library. It is selected with engine "library"
// and is kept result-compatible with the native automaton: same matches, same
// inclusive rune offsets, same order.
package ahocorasick

import (
	"sort"
	"unicode/utf8"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/keyspot/internal/ports"
)

// EngineName identifies this matcher in stats and config.
const EngineName = "library"

var _ ports.PatternMatcher = (*Matcher)(nil)

// Matcher wraps a library automaton built for overlapping search.
type Matcher struct {
	automaton aho.AhoCorasick
	keywords  []string
	built     bool
}

// NewMatcher compiles a matcher from keywords. Empty keywords are skipped
// (the library would report them at every position).
func NewMatcher(keywords []string) *Matcher {
	m := &Matcher{}
	m.Build(keywords)
	return m
}

// Build compiles the Aho-Corasick automaton from the given keywords,
// replacing any previous automaton.
func (m *Matcher) Build(keywords []string) {
	m.keywords = make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		m.keywords = append(m.keywords, kw)
	}
	m.built = false
	if len(m.keywords) == 0 {
		return
	}

	// Overlapping iteration requires the standard match kind (the zero value).
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	m.automaton = builder.Build(m.keywords)
	m.built = true
}

// Scan implements ports.PatternMatcher.
func (m *Matcher) Scan(text string) []ports.Match {
	if !m.built || len(text) == 0 {
		return nil
	}

	runeAt := runeOffsets(text)
	iter := m.automaton.IterOverlappingByte([]byte(text))

	var matches []ports.Match
	for next := iter.Next(); next != nil; next = iter.Next() {
		hit := *next
		matches = append(matches, ports.Match{
			Start:   runeAt[hit.Start()],
			End:     runeAt[hit.End()] - 1,
			Pattern: m.keywords[hit.Pattern()],
		})
	}

	// The library reports per-state matches in its own order; the port
	// contract is End ascending, longest (smallest Start) first.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].End != matches[j].End {
			return matches[i].End < matches[j].End
		}
		return matches[i].Start < matches[j].Start
	})
	return matches
}

// PatternCount implements ports.PatternMatcher.
func (m *Matcher) PatternCount() int {
	return len(m.keywords)
}

// runeOffsets maps each byte offset that starts a rune (plus len(text)) to
// the rune index at that offset. Library matches always start and end on
// rune boundaries because the patterns are valid UTF-8.
func runeOffsets(text string) []int {
	offsets := make([]int, len(text)+1)
	idx := 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		for j := 0; j < size; j++ {
			offsets[i+j] = idx
		}
		i += size
		idx++
	}
	offsets[len(text)] = idx
	return offsets
}
