package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fragment recognizer: split on non-code characters, strip joiners,
// intersect with the dictionary
// =============================================================================

func newRecognizer(t *testing.T, cfg Config, dict ...string) *Recognizer {
	t.Helper()
	r, err := New(cfg, dict)
	require.NoError(t, err)
	return r
}

func TestFragments(t *testing.T) {
	r := newRecognizer(t, Config{})

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "codes between CJK text and punctuation",
			input: "机动车制动液DOT4/HZY4,GB12981-2012《机动车辆制动液》标准",
			want:  []string{"dot4", "hzy4", "gb129812012"},
		},
		{
			name:  "trailing joiner stripped",
			input: "SAEJ1704标准和ISO4925.第4级",
			want:  []string{"saej1704", "iso4925"},
		},
		{
			name:  "joined host name is one fragment",
			input: "www.bosch-automotive.com",
			want:  []string{"wwwboschautomotivecom"},
		},
		{
			name:  "short fragments dropped",
			input: "ab cd efg",
			want:  []string{"efg"},
		},
		{
			name:  "duplicates kept",
			input: "BOSCH,bosch",
			want:  []string{"bosch", "bosch"},
		},
		{
			name:  "text shorter than three runes",
			input: "ab",
			want:  nil,
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Fragments(tt.input))
		})
	}
}

func TestMatch_IntersectsDictionary(t *testing.T) {
	r := newRecognizer(t, Config{}, "dot4", "hzy4", "bosch", "saej1704")

	got := r.Match("DOT4/HZY4 标准 BOSCH, Robert BoschGmbH, bosch, SAEJ1704")
	assert.Equal(t, []string{"dot4", "hzy4", "bosch", "saej1704"}, got)
	assert.Equal(t, 4, r.DictionarySize())
}

func TestMatch_NoDictionaryHits(t *testing.T) {
	r := newRecognizer(t, Config{}, "bosch")
	assert.Empty(t, r.Match("www.bosch-automotive.com"))
}

func TestCustomJoiner(t *testing.T) {
	r := newRecognizer(t, Config{Joiner: "/"}, "dot4hzy4")

	assert.Equal(t, []string{"dot4hzy4"}, r.Fragments("DOT4/HZY4"))
	assert.Equal(t, []string{"dot4hzy4"}, r.Match("DOT4/HZY4"))
}

func TestCustomMinLength(t *testing.T) {
	r := newRecognizer(t, Config{MinLength: 5})
	assert.Equal(t, []string{"bf8999", "yh2954"}, r.Fragments("BF8999,yh2954,dot4"))
}

func TestQuoteClass(t *testing.T) {
	assert.Equal(t, `.\-_\]`, quoteClass(".-_]"))
}
