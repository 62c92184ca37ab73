package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/corey/keyspot/internal/adapters/socket"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock checks the daemon state and returns actionable guidance
// when a bbolt open fails due to lock contention. The daemon only opens the
// store while reloading, so a long-held lock usually means another process.
func diagnoseDBLock(sockPath string) string {
	client := socket.NewClient(sockPath)

	if client.Ping() {
		return "keyword store is locked; the daemon may be reloading a set\n" +
			"  → retry in a moment\n" +
			"  → if it persists:  keyspot daemon stop"
	}

	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Sprintf("keyword store is locked; daemon socket exists but is not responding\n"+
			"  → a previous daemon may have crashed\n"+
			"  → find the process:  ps aux | grep 'keyspot daemon'\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", sockPath)
	}

	return "keyword store is locked by another process\n" +
		"  → find the process:  ps aux | grep keyspot\n" +
		"  → kill it:           kill <PID>\n" +
		"  → then retry your command"
}
