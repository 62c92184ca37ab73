// Package bbolt implements ports.KeywordStore using bbolt (embedded B+ tree).
// Keyword lists live in the "sets" bucket in a compact binary form (see
// encoding.go); a parallel "meta" bucket holds a small JSON summary per set
// so listing never decodes the lists themselves. Both are written in one
// transaction, so a crash mid-write cannot leave them out of step.
package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/keyspot/internal/ports"
)

// Bucket keys
var (
	bucketSets = []byte("sets")
	bucketMeta = []byte("meta")
)

// ErrSetNotFound is returned by SetSource when the named set does not exist.
var ErrSetNotFound = errors.New("keyword set not found")

var (
	_ ports.KeywordStore  = (*Store)(nil)
	_ ports.PatternSource = SetSource{}
)

// Store implements ports.KeywordStore backed by bbolt.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// setMeta is the JSON summary stored for each set.
type setMeta struct {
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStore opens (or creates) a bbolt database at the given path. The open
// gives up after one second if another process holds the file lock.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// SaveSet persists a keyword set under name, replacing any prior set.
func (s *Store) SaveSet(name string, keywords []string) error {
	if name == "" {
		return fmt.Errorf("empty set name")
	}

	data, err := encodeKeywords(keywords)
	if err != nil {
		return fmt.Errorf("encode set %q: %w", name, err)
	}
	meta, err := json.Marshal(setMeta{Count: len(keywords), UpdatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal set meta: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sb, err := tx.CreateBucketIfNotExists(bucketSets)
		if err != nil {
			return err
		}
		mb, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if err := sb.Put([]byte(name), data); err != nil {
			return err
		}
		return mb.Put([]byte(name), meta)
	})
}

// LoadSet retrieves a keyword set.
// Returns nil, nil if no set exists under name.
func (s *Store) LoadSet(name string) ([]string, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket(bucketSets)
		if sb == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := sb.Get([]byte(name)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, nil
	}

	keywords, err := decodeKeywords(data)
	if err != nil {
		return nil, fmt.Errorf("decode set %q: %w", name, err)
	}
	return keywords, nil
}

// ListSets returns a summary of every stored set, sorted by name.
func (s *Store) ListSets() ([]ports.SetInfo, error) {
	var out []ports.SetInfo

	err := s.db.View(func(tx *bolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		if mb == nil {
			return nil
		}
		// bbolt iterates keys in byte order.
		return mb.ForEach(func(k, v []byte) error {
			var m setMeta
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("unmarshal meta for %q: %w", k, err)
			}
			out = append(out, ports.SetInfo{
				Name:      string(k),
				Count:     m.Count,
				UpdatedAt: m.UpdatedAt,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSet removes a set.
// Idempotent: deleting a nonexistent set is not an error.
func (s *Store) DeleteSet(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSets, bucketMeta} {
			b := tx.Bucket(bucket)
			if b == nil {
				continue
			}
			if err := b.Delete([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetSource serves a stored keyword set as a ports.PatternSource.
type SetSource struct {
	Store ports.KeywordStore
	Set   string
}

// Name implements ports.PatternSource.
func (s SetSource) Name() string {
	return "bbolt:" + s.Set
}

// Load implements ports.PatternSource. A missing set is an error here,
// unlike LoadSet: a daemon configured for a set that isn't there should fail.
func (s SetSource) Load(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keywords, err := s.Store.LoadSet(s.Set)
	if err != nil {
		return nil, err
	}
	if keywords == nil {
		return nil, fmt.Errorf("%w: %q", ErrSetNotFound, s.Set)
	}
	return keywords, nil
}
