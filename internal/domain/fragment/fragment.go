// Package fragment extracts alphanumeric code fragments (supplier codes,
// part numbers, standard identifiers) from free text and intersects them with
// a dictionary. It is the exact-token counterpart to the automaton: a
// fragment only matches when the whole fragment is a dictionary entry.
package fragment

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultJoiner lists the characters allowed inside a fragment besides
// ASCII letters and digits. They are stripped from the extracted fragment.
const DefaultJoiner = ".—_-|"

// DefaultMinLength is the shortest fragment kept, after joiners are stripped.
const DefaultMinLength = 3

// nonAlnum strips everything but ASCII letters and digits from a fragment.
var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Config controls fragment extraction.
type Config struct {
	Joiner    string // characters that may join alphanumeric runs (default DefaultJoiner)
	MinLength int    // minimum fragment length (default DefaultMinLength)
}

// Recognizer splits text into fragments and matches them against a dictionary.
// It is immutable after construction and safe for concurrent use.
type Recognizer struct {
	pattern   *regexp.Regexp
	minLength int
	dict      map[string]struct{}
}

// New compiles the fragment pattern and loads the dictionary. Dictionary
// entries are expected to be normalized already (see keywords.Normalize).
func New(cfg Config, dictionary []string) (*Recognizer, error) {
	if cfg.Joiner == "" {
		cfg.Joiner = DefaultJoiner
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}

	class := "a-zA-Z0-9" + quoteClass(cfg.Joiner)
	expr := fmt.Sprintf(`(\b|[^%s])([%s]+)(\b|[^%s])`, class, class, class)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile fragment pattern: %w", err)
	}

	dict := make(map[string]struct{}, len(dictionary))
	for _, kw := range dictionary {
		dict[kw] = struct{}{}
	}

	return &Recognizer{
		pattern:   re,
		minLength: cfg.MinLength,
		dict:      dict,
	}, nil
}

// Fragments returns every candidate fragment in text, lower-cased, in text
// order. Duplicates are kept. Text shorter than three runes yields nothing.
func (r *Recognizer) Fragments(text string) []string {
	if utf8.RuneCountInString(text) < 3 {
		return nil
	}

	var out []string
	for _, groups := range r.pattern.FindAllStringSubmatch(text, -1) {
		frag := nonAlnum.ReplaceAllString(groups[2], "")
		if len(frag) < r.minLength {
			continue
		}
		out = append(out, strings.ToLower(frag))
	}
	return out
}

// Match returns the distinct fragments of text that are dictionary entries,
// in first-seen order.
func (r *Recognizer) Match(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, frag := range r.Fragments(text) {
		if seen[frag] {
			continue
		}
		seen[frag] = true
		if _, ok := r.dict[frag]; ok {
			out = append(out, frag)
		}
	}
	return out
}

// DictionarySize returns the number of dictionary entries.
func (r *Recognizer) DictionarySize() int {
	return len(r.dict)
}

// quoteClass escapes characters that are special inside a regexp
// character class.
func quoteClass(chars string) string {
	var sb strings.Builder
	for _, c := range chars {
		switch c {
		case '\\', ']', '[', '^', '-':
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
