package keywords

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Keyword lists: parse text/YAML, normalize case, fingerprint
// =============================================================================

func TestParse_Text(t *testing.T) {
	input := "bosch\r\nDOT4\n\n# comment\n  saej1704  \n"

	list, err := Parse(strings.NewReader(input), FormatText)
	require.NoError(t, err)
	assert.Equal(t, []string{"bosch", "DOT4", "  saej1704  "}, list)
}

func TestParse_YAML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "sequence",
			input: "- bosch\n- dot4\n",
			want:  []string{"bosch", "dot4"},
		},
		{
			name:  "mapping",
			input: "keywords:\n  - hzy4\n  - gb12981\n",
			want:  []string{"hzy4", "gb12981"},
		},
		{
			name:  "empty document",
			input: "\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := Parse(strings.NewReader(tt.input), FormatYAML)
			require.NoError(t, err)
			assert.Equal(t, tt.want, list)
		})
	}
}

func TestParse_YAMLScalarRejected(t *testing.T) {
	_, err := Parse(strings.NewReader("just a string\n"), FormatYAML)
	assert.Error(t, err)
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse(strings.NewReader("x"), Format("csv"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"keyword.txt":  FormatText,
		"keywords":     FormatText,
		"codes.list":   FormatText,
		"sets/kw.yaml": FormatYAML,
		"sets/kw.YML":  FormatYAML,
	}
	for path, want := range tests {
		got, err := FormatFor(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatFor("keywords.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestNormalize(t *testing.T) {
	in := []string{" Bosch ", "bosch", "DOT4", "", "   ", "dot4", "ISO4925"}

	assert.Equal(t, []string{"bosch", "dot4", "iso4925"}, Normalize(in, true))
	assert.Equal(t, []string{"Bosch", "bosch", "DOT4", "dot4", "ISO4925"}, Normalize(in, false))
	assert.Empty(t, Normalize(nil, true))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"he", "she", "his"})
	b := Fingerprint([]string{"his", "he", "she"})
	c := Fingerprint([]string{"he", "she", "hers"})

	assert.Equal(t, a, b, "order must not matter")
	assert.NotEqual(t, a, c)
	// Separator keeps ["ab","c"] and ["a","bc"] apart.
	assert.NotEqual(t, Fingerprint([]string{"ab", "c"}), Fingerprint([]string{"a", "bc"}))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "keyword.txt")
	require.NoError(t, os.WriteFile(txt, []byte("bosch\ndot4\n"), 0644))
	yml := filepath.Join(dir, "keyword.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("keywords: [hzy4]\n"), 0644))

	list, err := FileSource{Path: txt}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bosch", "dot4"}, list)

	list, err = FileSource{Path: yml}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hzy4"}, list)

	_, err = FileSource{Path: filepath.Join(dir, "missing.txt")}.Load(context.Background())
	assert.Error(t, err)

	assert.Equal(t, "file:"+txt, FileSource{Path: txt}.Name())
}

func TestFileSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FileSource{Path: "keyword.txt"}.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbeddedSource(t *testing.T) {
	list, err := EmbeddedSource{}.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, list, "bosch")
	for _, kw := range list {
		assert.False(t, strings.HasPrefix(kw, "#"), "comments must be skipped")
	}
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{Label: "args", Keywords: []string{"he", "she"}}

	list, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"he", "she"}, list)

	list[0] = "mutated"
	again, _ := src.Load(context.Background())
	assert.Equal(t, "he", again[0], "Load must return a copy")
	assert.Equal(t, "static:args", src.Name())
}
