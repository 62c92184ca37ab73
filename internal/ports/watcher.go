package ports

// Watcher monitors a keyword file for changes and triggers a matcher rebuild.
// The adapter (fsnotify) watches the file's directory so that editors which
// save by rename are still observed. Only one Watch call should be active at a time.
type Watcher interface {
	// Watch starts monitoring filePath. onChange is called with the absolute
	// path after the file is written, created, or replaced. The callback may be
	// invoked from any goroutine. Returns an error if the parent directory
	// doesn't exist or permissions are insufficient.
	Watch(filePath string, onChange func(filePath string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
