package automaton

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/corey/keyspot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Aho-Corasick automaton: trie insertion, failure links, single-pass scan
// Expectation: every occurrence of every pattern is reported exactly once,
// overlapping and suffix occurrences included, in increasing end order.
// =============================================================================

func m(pattern string, start, end int) ports.Match {
	return ports.Match{Start: start, End: end, Pattern: pattern}
}

// chars splits s into its UTF-8 characters as raw byte strings. An invalid
// byte is a character of its own.
func chars(s string) []string {
	var out []string
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		out = append(out, s[i:i+size])
		i += size
	}
	return out
}

// bruteForce finds every occurrence of every pattern by comparing bytes at
// each character position, ordered by End then Start.
func bruteForce(patterns []string, text string) []ports.Match {
	tc := chars(text)
	seen := make(map[string]bool)
	var out []ports.Match
	for _, p := range patterns {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		n := len(chars(p))
		for i := 0; i+n <= len(tc); i++ {
			if strings.Join(tc[i:i+n], "") == p {
				out = append(out, m(p, i, i+n-1))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].End != out[j].End {
			return out[i].End < out[j].End
		}
		return out[i].Start < out[j].Start
	})
	return out
}

func TestAutomaton_Ushers(t *testing.T) {
	a := Build([]string{"he", "she", "his", "hers"})

	got := a.Scan("ushers")
	assert.Equal(t, []ports.Match{
		m("she", 1, 3),
		m("he", 2, 3),
		m("hers", 2, 5),
	}, got)
}

func TestAutomaton_OverlapHeShe(t *testing.T) {
	a := Build([]string{"he", "she"})

	got := a.Scan("ushers")
	assert.Equal(t, []ports.Match{m("she", 1, 3), m("he", 2, 3)}, got)
	for _, match := range got {
		assert.NotEqual(t, "hers", match.Pattern, "hers is not a pattern")
	}
}

func TestAutomaton_SuffixChain(t *testing.T) {
	a := Build([]string{"a", "ab", "abc"})

	got := a.Scan("xabcx")
	assert.Equal(t, []ports.Match{
		m("a", 1, 1),
		m("ab", 1, 2),
		m("abc", 1, 3),
	}, got)
}

func TestAutomaton_SharedEndOrder(t *testing.T) {
	// Within one end offset the longest pattern comes first, then its
	// failure-chain suffixes.
	a := Build([]string{"c", "bc", "abc"})

	got := a.Scan("abc")
	assert.Equal(t, []ports.Match{
		m("abc", 0, 2),
		m("bc", 1, 2),
		m("c", 2, 2),
	}, got)
}

func TestAutomaton_RepeatedAndOverlapping(t *testing.T) {
	a := Build([]string{"aa"})

	got := a.Scan("aaaa")
	assert.Equal(t, []ports.Match{m("aa", 0, 1), m("aa", 1, 2), m("aa", 2, 3)}, got)
}

func TestAutomaton_FailureRecovery(t *testing.T) {
	// "abd" fails at 'c' after "ab"; the failure link into "b" lets "bc"
	// match without re-reading text.
	a := Build([]string{"abd", "bc"})

	got := a.Scan("abc")
	assert.Equal(t, []ports.Match{m("bc", 1, 2)}, got)
}

func TestAutomaton_UnicodeOffsets(t *testing.T) {
	a := Build([]string{"世界", "制动液"})

	got := a.Scan("你好世界，机动车制动液")
	assert.Equal(t, []ports.Match{m("世界", 2, 3), m("制动液", 8, 10)}, got)
}

func TestAutomaton_InvalidUTF8MatchesOnlyItself(t *testing.T) {
	a := Build([]string{"\xff", "a\xffb"})

	assert.Empty(t, a.Scan("\xfe"))
	assert.Empty(t, a.Scan("a\x80b"))
	assert.Empty(t, a.Scan("\uFFFD"), "U+FFFD is not an invalid byte")
	assert.Equal(t, []ports.Match{
		m("\xff", 1, 1),
		m("a\xffb", 0, 2),
	}, a.Scan("a\xffb"))

	// A literal U+FFFD pattern does not match invalid bytes either.
	r := Build([]string{"\uFFFD"})
	assert.Empty(t, r.Scan("x\xffy"))
	assert.Equal(t, []ports.Match{m("\uFFFD", 1, 1)}, r.Scan("x\uFFFDy"))
}

func TestAutomaton_CaseIsOpaque(t *testing.T) {
	// Case folding is the caller's policy.
	a := Build([]string{"login"})

	assert.Empty(t, a.Scan("LOGIN"))
	assert.Equal(t, []ports.Match{m("login", 0, 4)}, a.Scan(strings.ToLower("LOGIN")))
}

func TestAutomaton_EmptyInput(t *testing.T) {
	a := New()
	require.NoError(t, a.Insert(""))
	require.NoError(t, a.Insert("he"))

	assert.Empty(t, a.Scan(""))
	assert.Equal(t, 1, a.PatternCount())

	for _, match := range a.Scan("the hero") {
		assert.NotEmpty(t, match.Pattern)
	}
}

func TestAutomaton_EmptyPatternLeavesBehaviorUnchanged(t *testing.T) {
	with := New()
	require.NoError(t, with.Insert("he"))
	require.NoError(t, with.Insert(""))
	require.NoError(t, with.Insert("she"))

	without := Build([]string{"he", "she"})

	assert.Equal(t, without.Scan("ushers"), with.Scan("ushers"))
	assert.Equal(t, without.StateCount(), with.StateCount())
}

func TestAutomaton_NoPatterns(t *testing.T) {
	a := New()

	assert.Empty(t, a.Scan("any text at all"))
	assert.Equal(t, 0, a.PatternCount())
	assert.Equal(t, 1, a.StateCount())
}

func TestAutomaton_DuplicateInsert(t *testing.T) {
	a := New()
	require.NoError(t, a.Insert("he"))
	require.NoError(t, a.Insert("he"))

	assert.Equal(t, 1, a.PatternCount())
	assert.Equal(t, []ports.Match{m("he", 1, 2)}, a.Scan("the"))
}

func TestAutomaton_StateCount(t *testing.T) {
	// root, h, he, her, hers, hi, his, s, sh, she
	a := Build([]string{"he", "she", "his", "hers"})
	assert.Equal(t, 10, a.StateCount())
	assert.Equal(t, 4, a.PatternCount())
}

func TestAutomaton_IdempotentFinalize(t *testing.T) {
	once := Build([]string{"he", "she", "his", "hers"})

	twice := Build([]string{"he", "she", "his", "hers"})
	twice.Finalize()
	twice.Finalize()

	assert.True(t, twice.Finalized())
	assert.Equal(t, once.Scan("ushers his shelf"), twice.Scan("ushers his shelf"))
}

func TestAutomaton_InsertAfterFinalize(t *testing.T) {
	t.Run("explicit finalize", func(t *testing.T) {
		a := Build([]string{"he"})
		assert.ErrorIs(t, a.Insert("she"), ErrFinalized)
		assert.Equal(t, []ports.Match{m("he", 2, 3)}, a.Scan("ushe"))
	})

	t.Run("lazy finalize on first scan", func(t *testing.T) {
		a := New()
		require.NoError(t, a.Insert("he"))
		assert.False(t, a.Finalized())

		a.Scan("he")
		assert.True(t, a.Finalized())
		assert.ErrorIs(t, a.Insert("she"), ErrFinalized)
		assert.Equal(t, 1, a.PatternCount())
	})

	t.Run("empty pattern is still a no-op", func(t *testing.T) {
		a := Build([]string{"he"})
		assert.NoError(t, a.Insert(""))
	})
}

func TestAutomaton_Determinism(t *testing.T) {
	a := Build([]string{"he", "she", "his", "hers", "e", "rs"})
	text := "she sells sea shells; ushers hiss"

	first := a.Scan(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, a.Scan(text))
	}
}

func TestAutomaton_MatchesStopsEarly(t *testing.T) {
	a := Build([]string{"a"})

	var got []ports.Match
	for match := range a.Matches("aaaaa") {
		got = append(got, match)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []ports.Match{m("a", 0, 0), m("a", 1, 1)}, got)
}

func TestAutomaton_ExhaustiveAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	// Invalid bytes and U+FFFD must stay distinct from each other.
	alphabet := []string{"a", "b", "c", "\xff", "\xfe", "\uFFFD"}

	randomString := func(maxLen int) string {
		n := rng.IntN(maxLen + 1)
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteString(alphabet[rng.IntN(len(alphabet))])
		}
		return sb.String()
	}

	for round := 0; round < 500; round++ {
		patterns := make([]string, rng.IntN(6))
		for i := range patterns {
			patterns[i] = randomString(4)
		}
		text := randomString(30)

		a := Build(patterns)
		require.Equal(t, bruteForce(patterns, text), a.Scan(text),
			"patterns=%q text=%q", patterns, text)
	}
}

func TestAutomaton_ConcurrentScans(t *testing.T) {
	patterns := []string{"he", "she", "his", "hers"}
	text := strings.Repeat("ushers and his shelf ", 50)
	want := bruteForce(patterns, text)

	// Not finalized up front: concurrent first callers race the lazy finalize.
	a := New()
	for _, p := range patterns {
		require.NoError(t, a.Insert(p))
	}

	var wg sync.WaitGroup
	results := make([][]ports.Match, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Scan(text)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestMatch_String(t *testing.T) {
	assert.Equal(t, "she@1-3", m("she", 1, 3).String())
}

func BenchmarkScan(b *testing.B) {
	// 500 keywords against 1KB of text.
	rng := rand.New(rand.NewPCG(1, 2))
	patterns := make([]string, 500)
	for i := range patterns {
		var sb strings.Builder
		for j := 0; j < 3+rng.IntN(6); j++ {
			sb.WriteByte(byte('a' + rng.IntN(26)))
		}
		patterns[i] = sb.String()
	}
	var sb strings.Builder
	for sb.Len() < 1024 {
		sb.WriteByte(byte('a' + rng.IntN(26)))
	}
	text := sb.String()

	a := Build(patterns)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Scan(text)
	}
}
