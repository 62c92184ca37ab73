// Package socket implements a JSON-over-Unix-socket protocol for the keyspot daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"github.com/corey/keyspot/internal/ports"
)

// SocketPath returns the Unix socket path for a daemon instance. The key is
// usually the config file or keyword database path, so two daemons serving
// different keyword sets get different sockets.
// Format: /tmp/keyspot-{first12hex}.sock
func SocketPath(instanceKey string) string {
	abs, err := filepath.Abs(instanceKey)
	if err != nil {
		abs = instanceKey
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/keyspot-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodScan      = "scan"
	MethodFragments = "fragments"
	MethodHealth    = "health"
	MethodStats     = "stats"
	MethodReload    = "reload"
	MethodShutdown  = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Service is what the daemon exposes over the socket and HTTP.
// Implementations must be safe for concurrent use.
type Service interface {
	Scan(text string) (ScanResult, error)
	Fragments(text string) (FragmentsResult, error)
	Stats() StatsResult
	Reload(ctx context.Context) (ReloadResult, error)
}

// ScanParams is the params for scan and fragments requests.
type ScanParams struct {
	Text string `json:"text"`
}

// ScanResult is the result of a scan request.
type ScanResult struct {
	Matches  []ports.Match `json:"matches"`
	Keywords []string      `json:"keywords"`
	Count    int           `json:"count"`
	Elapsed  string        `json:"elapsed"`
}

// FragmentsResult is the result of a fragments request.
type FragmentsResult struct {
	Fragments []string `json:"fragments"`
	Keywords  []string `json:"keywords"`
	Count     int      `json:"count"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status   string `json:"status"`
	Patterns int    `json:"patterns"`
	Uptime   string `json:"uptime"`
}

// StatsResult is the result of a stats request.
type StatsResult struct {
	Engine      string  `json:"engine"`
	Source      string  `json:"source"`
	Patterns    int     `json:"patterns"`
	Fingerprint string  `json:"fingerprint"`
	FoldCase    bool    `json:"fold_case"`
	LoadedAt    string  `json:"loaded_at,omitempty"`
	BuildTimeMs float64 `json:"build_time_ms"`
	Scans       uint64  `json:"scans"`
	Reloads     uint64  `json:"reloads"`
	Uptime      string  `json:"uptime"`
}

// ReloadResult is the result of a reload request.
type ReloadResult struct {
	Source   string `json:"source"`
	Changed  bool   `json:"changed"`
	Patterns int    `json:"patterns"`
	Elapsed  string `json:"elapsed"`
}
