package automaton

import (
	"iter"
	"unicode/utf8"
)

// root is the arena index of the root state.
const root = 0

// output is a pattern reported when the automaton reaches a state.
type output struct {
	pattern string
	runes   int // pattern length in runes, for start offset calculation
}

// state is a node in the trie. After Finalize it is also a node in the
// automaton's transition graph. States reference each other by arena index,
// never by pointer.
type state struct {
	// transitions maps the next character to a child state index.
	// Nil until the first child is added.
	transitions map[rune]int

	// failure is the state for the longest proper suffix of this state's
	// path that is also a path in the trie. Valid only after Finalize.
	failure int

	// outputs lists the patterns reported at this state. The first own
	// entries end exactly here; Finalize appends the outputs of the failure
	// state after them.
	outputs []output
	own     int

	depth  int
	isRoot bool
}

func newState(depth int) state {
	return state{depth: depth}
}

// addChild links c to the child at index next, allocating the transition
// table on first use.
func (s *state) addChild(c rune, next int) {
	if s.transitions == nil {
		s.transitions = make(map[rune]int)
	}
	s.transitions[c] = next
}

// hasOutput reports whether pattern already ends exactly at this state.
func (s *state) hasOutput(pattern string) bool {
	for _, o := range s.outputs[:s.own] {
		if o.pattern == pattern {
			return true
		}
	}
	return false
}

// symbols yields the characters of s. An invalid UTF-8 byte b is yielded as
// -1-b, a value no decoded rune takes, so it only ever matches that same byte
// and never U+FFFD or a different invalid byte.
func symbols(s string) iter.Seq[rune] {
	return func(yield func(rune) bool) {
		for i := 0; i < len(s); {
			c, size := utf8.DecodeRuneInString(s[i:])
			if c == utf8.RuneError && size == 1 {
				c = -1 - rune(s[i])
			}
			if !yield(c) {
				return
			}
			i += size
		}
	}
}
