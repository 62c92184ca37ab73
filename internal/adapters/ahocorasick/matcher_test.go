package ahocorasick

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/corey/keyspot/internal/domain/automaton"
	"github.com/corey/keyspot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Library-backed matcher: must agree with the native automaton match for match
// =============================================================================

func TestMatcher_Ushers(t *testing.T) {
	m := NewMatcher([]string{"he", "she", "his", "hers"})

	assert.Equal(t, []ports.Match{
		{Start: 1, End: 3, Pattern: "she"},
		{Start: 2, End: 3, Pattern: "he"},
		{Start: 2, End: 5, Pattern: "hers"},
	}, m.Scan("ushers"))
	assert.Equal(t, 4, m.PatternCount())
}

func TestMatcher_RuneOffsets(t *testing.T) {
	m := NewMatcher([]string{"制动液", "dot4"})

	assert.Equal(t, []ports.Match{
		{Start: 3, End: 5, Pattern: "制动液"},
		{Start: 6, End: 9, Pattern: "dot4"},
	}, m.Scan("机动车制动液dot4"))
}

func TestMatcher_NoKeywords(t *testing.T) {
	m := NewMatcher(nil)
	assert.Nil(t, m.Scan("anything"))
	assert.Equal(t, 0, m.PatternCount())

	m = NewMatcher([]string{"", ""})
	assert.Nil(t, m.Scan("anything"))
}

func TestMatcher_DuplicatesCollapsed(t *testing.T) {
	m := NewMatcher([]string{"he", "he"})
	assert.Equal(t, 1, m.PatternCount())
	assert.Len(t, m.Scan("he"), 1)
}

func TestMatcher_Rebuild(t *testing.T) {
	// After Build with a new keyword list, old keywords no longer match.
	m := NewMatcher([]string{"login"})
	require.Len(t, m.Scan("user login"), 1)

	m.Build([]string{"auth"})
	assert.Empty(t, m.Scan("user login"))
	assert.Len(t, m.Scan("auth flow"), 1)
}

func TestMatcher_AgreesWithNative(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	// Includes invalid bytes that can never be part of a valid sequence, and
	// U+FFFD, which must not match them.
	alphabet := []string{"a", "b", "界", "\xff", "\xfe", "\uFFFD"}

	randomString := func(maxLen int) string {
		n := rng.IntN(maxLen + 1)
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteString(alphabet[rng.IntN(len(alphabet))])
		}
		return sb.String()
	}

	for round := 0; round < 300; round++ {
		patterns := make([]string, 1+rng.IntN(5))
		for i := range patterns {
			patterns[i] = randomString(3)
		}
		text := randomString(25)

		want := automaton.Build(patterns).Scan(text)
		got := NewMatcher(patterns).Scan(text)
		require.Equal(t, want, got, "patterns=%q text=%q", patterns, text)
	}
}

func TestRuneOffsets(t *testing.T) {
	// "a界b": a=1 byte, 界=3 bytes, b=1 byte
	assert.Equal(t, []int{0, 1, 1, 1, 2, 3}, runeOffsets("a界b"))
}

func BenchmarkMatcherScan(b *testing.B) {
	patterns := []string{"he", "she", "his", "hers", "bosch", "dot4"}
	text := strings.Repeat("ushers bosch dot4 ", 60)

	m := NewMatcher(patterns)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Scan(text)
	}
}
