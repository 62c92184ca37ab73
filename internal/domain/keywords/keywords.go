// Package keywords parses, normalizes, and fingerprints keyword lists.
// Case folding is a policy of the keyword set owner, not of the matcher:
// Normalize applies it to patterns and the recognizer applies the same
// policy to text before scanning.
package keywords

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for keyword files with an unrecognized extension.
var ErrUnknownFormat = errors.New("unknown keyword file format")

// Format is the on-disk encoding of a keyword list.
type Format string

const (
	// FormatText is one keyword per line. Blank lines and # comments are skipped.
	FormatText Format = "txt"
	// FormatYAML is a sequence of strings or a mapping with a "keywords" sequence.
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".txt", ".list", ".dic":
		return FormatText, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Parse reads a keyword list in the given format. Keywords are returned as
// written (apart from line-ending cleanup); call Normalize before building.
func Parse(r io.Reader, format Format) ([]string, error) {
	switch format {
	case FormatText:
		return parseText(r)
	case FormatYAML:
		return parseYAML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func parseText(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var list []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		list = append(list, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keywords: %w", err)
	}
	return list, nil
}

// yamlDoc is the mapping form of a YAML keyword file.
type yamlDoc struct {
	Keywords []string `yaml:"keywords"`
}

func parseYAML(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read keywords: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := doc.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode keyword sequence: %w", err)
		}
		return list, nil
	case yaml.MappingNode:
		var d yamlDoc
		if err := doc.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode keyword mapping: %w", err)
		}
		return d.Keywords, nil
	default:
		return nil, fmt.Errorf("parse yaml: expected a sequence or a mapping, got %s", doc.Tag)
	}
}

// Normalize trims whitespace, lower-cases when foldCase is set, drops empty
// entries, and removes duplicates keeping the first occurrence.
func Normalize(list []string, foldCase bool) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, kw := range list {
		kw = strings.TrimSpace(kw)
		if foldCase {
			kw = strings.ToLower(kw)
		}
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Fingerprint hashes a keyword list independently of its order.
// Two lists with the same members produce the same fingerprint.
func Fingerprint(list []string) uint64 {
	sorted := make([]string, len(list))
	copy(sorted, list)
	sort.Strings(sorted)

	d := xxhash.New()
	for _, kw := range sorted {
		_, _ = d.WriteString(kw)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
