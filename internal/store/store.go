package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.etcd.io/bbolt"
)

const stateBucket = "states"

// savedAtKey is stamped into every stored document.
const savedAtKey = "savedAt"

// Errors returned by store operations.
var (
	// ErrNotFound indicates no state is stored under the given name.
	ErrNotFound = errors.New("state not found")
)

// Store archives serialized history states in a BoltDB file, keyed by
// name. Documents are stamped with the save time on the way in.
type Store struct {
	db *bbolt.DB
}

// Open opens the archive at path, creating the file when absent.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureBucket(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores state under name, replacing any previous document. The
// state must be a JSON object; a savedAt timestamp is stamped into the
// stored copy.
func (s *Store) Save(ctx context.Context, name string, state []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("state name is required")
	}
	if !gjson.ValidBytes(state) || !gjson.ParseBytes(state).IsObject() {
		return fmt.Errorf("state must be a JSON object")
	}

	stamped, err := sjson.SetBytes(state, savedAtKey, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("stamp state %s: %w", name, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket is missing")
		}
		return bucket.Put([]byte(name), stamped)
	})
}

// Load fetches the document stored under name, including its savedAt
// stamp. Extra top-level keys are ignored by the engine's Deserialize.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("state name is required")
	}

	var state []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket is missing")
		}
		stored := bucket.Get([]byte(name))
		if stored == nil {
			return ErrNotFound
		}
		state = append([]byte(nil), stored...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SavedAt returns when the named document was stored.
func (s *Store) SavedAt(ctx context.Context, name string) (time.Time, error) {
	state, err := s.Load(ctx, name)
	if err != nil {
		return time.Time{}, err
	}

	stamp := gjson.GetBytes(state, savedAtKey)
	if !stamp.Exists() {
		return time.Time{}, fmt.Errorf("state %s has no %s stamp", name, savedAtKey)
	}
	at, err := time.Parse(time.RFC3339, stamp.String())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s stamp for %s: %w", savedAtKey, name, err)
	}
	return at, nil
}

// List returns the stored state names in byte order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket is missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Delete removes the document stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("state name is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket is missing")
		}
		if bucket.Get([]byte(name)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(name))
	})
}

func (s *Store) ensureBucket() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		if err != nil {
			return fmt.Errorf("create state bucket: %w", err)
		}
		return nil
	})
}
