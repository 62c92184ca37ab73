package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Paths holds the resolved filesystem layout of a keyspot home directory.
type Paths struct {
	Root string // ~/.keyspot/
	DB   string // ~/.keyspot/keyspot.db

	LogDir    string // ~/.keyspot/log/
	DaemonLog string // ~/.keyspot/log/daemon.log

	RunDir   string // ~/.keyspot/run/
	PIDFile  string // ~/.keyspot/run/daemon.pid
	PortFile string // ~/.keyspot/run/http.port
}

// DefaultHome returns ~/.keyspot, or .keyspot in the working directory when
// the home directory cannot be resolved.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keyspot"
	}
	return filepath.Join(home, ".keyspot")
}

// NewPaths constructs all resolved paths under root.
func NewPaths(root string) *Paths {
	return &Paths{
		Root: root,
		DB:   filepath.Join(root, "keyspot.db"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:   filepath.Join(root, "run"),
		PIDFile:  filepath.Join(root, "run", "daemon.pid"),
		PortFile: filepath.Join(root, "run", "http.port"),
	}
}

// EnsureDirs creates all subdirectories. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// WritePID records the current process ID.
func (p *Paths) WritePID() error {
	return os.WriteFile(p.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// ReadPID returns the recorded daemon PID, or 0 if none is recorded.
func (p *Paths) ReadPID() int {
	data, err := os.ReadFile(p.PIDFile)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// ReadPort returns the HTTP port written by a running daemon, or 0.
func (p *Paths) ReadPort() int {
	data, err := os.ReadFile(p.PortFile)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return port
}

// CleanEphemeral removes ephemeral runtime files (PID file and port file).
// Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
