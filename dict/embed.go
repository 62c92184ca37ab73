// Package dict embeds the default keyword list for compile-time inclusion.
// The list is newline-delimited, one supplier code or brand keyword per line,
// and is used when no keyword file, store set, or database is configured.
//
// Usage:
//
//	keywords.EmbeddedSource{}.Load(ctx)
package dict

import "embed"

// DefaultFile is the path of the default list inside FS.
const DefaultFile = "keyword.txt"

//go:embed keyword.txt
var FS embed.FS
