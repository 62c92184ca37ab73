package ports

import "time"

// KeywordStore persists named keyword sets to durable storage.
// Only the keyword lists are stored, never a built automaton: matchers are
// rebuilt in memory from a set on every load.
//
// Crash safety: SaveSet must be transactional. A crash mid-write must not
// corrupt previously committed sets.
type KeywordStore interface {
	// SaveSet persists a keyword set under name, replacing any prior set.
	SaveSet(name string, keywords []string) error

	// LoadSet retrieves a keyword set.
	// Returns nil, nil if no set exists under name.
	LoadSet(name string) ([]string, error)

	// ListSets returns a summary of every stored set, sorted by name.
	ListSets() ([]SetInfo, error)

	// DeleteSet removes a set. Idempotent: deleting a missing set is not an error.
	DeleteSet(name string) error
}

// SetInfo summarizes one stored keyword set.
type SetInfo struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
