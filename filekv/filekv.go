// Package filekv provides a domain.KeyValueRepository backed by a single JSON document on disk.
//
// Every operation takes a cross-process lock on a sibling ".lock" file, so several processes
// can share one data file. Writes go to a temporary file that is renamed over the original.
package filekv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/tfkr-ae/darelteb/domain"
)

const (
	formatVersion = 1

	lockTimeout       = 3 * time.Second
	lockRetryInterval = 100 * time.Millisecond
)

var _ domain.KeyValueRepository = (*Store)(nil)

var (
	// ErrLockTimeout is returned when the file lock could not be acquired in time.
	ErrLockTimeout = errors.New("filekv: could not acquire file lock")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("filekv: store is closed")
)

// document is the on-disk layout. []byte values are base64 encoded by encoding/json.
type document struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Items     map[string][]byte `json:"items"`
}

// Store is a file-backed key-value store.
type Store struct {
	path     string
	fileLock *flock.Flock
	mu       sync.RWMutex
	closed   bool
}

// New returns a Store persisting to path. The parent directory is created if needed;
// the file itself is created on the first write.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data dir for %s: %w", path, err)
	}

	return &Store{
		path:     path,
		fileLock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the data file location.
func (s *Store) Path() string {
	return s.path
}

// withFileLock runs fn while holding the cross-process lock.
func (s *Store) withFileLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return fn()
}

// load reads the document. A missing or empty file is an empty document.
func (s *Store) load() (*document, error) {
	doc := &document{Version: formatVersion, Items: make(map[string][]byte)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	if len(data) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}

	if doc.Items == nil {
		doc.Items = make(map[string][]byte)
	}
	if doc.Version > formatVersion {
		return nil, fmt.Errorf("%s has unsupported format version %d", s.path, doc.Version)
	}
	return doc, nil
}

// save writes the document to a temporary file and renames it into place.
func (s *Store) save(doc *document) error {
	doc.Version = formatVersion
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// mutate runs a load-modify-save cycle under both locks.
func (s *Store) mutate(fn func(doc *document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	return s.withFileLock(func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		fn(doc)
		return s.save(doc)
	})
}

// read runs fn against the current document.
func (s *Store) read(fn func(doc *document)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	return s.withFileLock(func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		fn(doc)
		return nil
	})
}

// GetItem implements domain.KeyValueRepository.
func (s *Store) GetItem(key string) ([]byte, bool, error) {
	var value []byte
	var found bool

	err := s.read(func(doc *document) {
		value, found = doc.Items[key]
	})
	if err != nil {
		return nil, false, fmt.Errorf("getting item %s: %w", key, err)
	}

	if found && value == nil {
		value = []byte{}
	}
	return value, found, nil
}

// SetItem implements domain.KeyValueRepository.
func (s *Store) SetItem(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	err := s.mutate(func(doc *document) {
		doc.Items[key] = slices.Clone(value)
	})
	if err != nil {
		return fmt.Errorf("setting item %s: %w", key, err)
	}
	return nil
}

// RemoveItem implements domain.KeyValueRepository.
func (s *Store) RemoveItem(key string) error {
	err := s.mutate(func(doc *document) {
		delete(doc.Items, key)
	})
	if err != nil {
		return fmt.Errorf("removing item %s: %w", key, err)
	}
	return nil
}

// Keys implements domain.KeyValueRepository.
func (s *Store) Keys() ([]string, error) {
	keys := []string{}

	err := s.read(func(doc *document) {
		for key := range doc.Items {
			keys = append(keys, key)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}

	slices.Sort(keys)
	return keys, nil
}

// Close implements domain.KeyValueRepository.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.fileLock.Close()
}
