package keywords

import (
	"context"
	"fmt"
	"os"

	"github.com/corey/keyspot/dict"
	"github.com/corey/keyspot/internal/ports"
)

var (
	_ ports.PatternSource = FileSource{}
	_ ports.PatternSource = EmbeddedSource{}
	_ ports.PatternSource = StaticSource{}
)

// FileSource loads keywords from a file on disk. The format follows the
// file extension (see FormatFor).
type FileSource struct {
	Path string
}

// Name implements ports.PatternSource.
func (s FileSource) Name() string {
	return "file:" + s.Path
}

// Load implements ports.PatternSource.
func (s FileSource) Load(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := FormatFor(s.Path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open keyword file: %w", err)
	}
	defer f.Close()
	return Parse(f, format)
}

// EmbeddedSource loads the keyword list packaged with the binary.
type EmbeddedSource struct{}

// Name implements ports.PatternSource.
func (EmbeddedSource) Name() string {
	return "embedded:" + dict.DefaultFile
}

// Load implements ports.PatternSource.
func (EmbeddedSource) Load(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := dict.FS.Open(dict.DefaultFile)
	if err != nil {
		return nil, fmt.Errorf("open embedded keywords: %w", err)
	}
	defer f.Close()
	return Parse(f, FormatText)
}

// StaticSource serves a fixed in-memory list, e.g. keywords given on the
// command line.
type StaticSource struct {
	Label    string
	Keywords []string
}

// Name implements ports.PatternSource.
func (s StaticSource) Name() string {
	if s.Label == "" {
		return "static"
	}
	return "static:" + s.Label
}

// Load implements ports.PatternSource.
func (s StaticSource) Load(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(s.Keywords))
	copy(out, s.Keywords)
	return out, nil
}
