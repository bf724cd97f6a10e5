// Package memkv provides an in-memory domain.KeyValueRepository.
// It is used for ephemeral sessions and as a test double; faults can be injected per
// operation to exercise the failure paths of code built on top of it.
package memkv

import (
	"errors"
	"slices"
	"sync"

	"github.com/tfkr-ae/darelteb/domain"
)

var _ domain.KeyValueRepository = (*Store)(nil)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memkv: store is closed")

// Op names an operation for fault injection.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpRemove Op = "remove"
	OpKeys   Op = "keys"
)

// Store is a map guarded by a mutex. Values are copied on the way in and out.
type Store struct {
	mu     sync.Mutex
	items  map[string][]byte
	faults map[Op]error
	calls  map[Op]int
	closed bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		items:  make(map[string][]byte),
		faults: make(map[Op]error),
		calls:  make(map[Op]int),
	}
}

// FailOn makes every subsequent call of op return err. A nil err clears the fault.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Calls returns how many times op has been invoked, including failed calls.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) begin(op Op) error {
	s.calls[op]++
	if s.closed {
		return ErrClosed
	}
	return s.faults[op]
}

// GetItem implements domain.KeyValueRepository.
func (s *Store) GetItem(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpGet); err != nil {
		return nil, false, err
	}

	value, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

// SetItem implements domain.KeyValueRepository.
func (s *Store) SetItem(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpSet); err != nil {
		return err
	}

	if value == nil {
		value = []byte{}
	}
	s.items[key] = slices.Clone(value)
	return nil
}

// RemoveItem implements domain.KeyValueRepository.
func (s *Store) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpRemove); err != nil {
		return err
	}

	delete(s.items, key)
	return nil
}

// Keys implements domain.KeyValueRepository.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpKeys); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// Close implements domain.KeyValueRepository. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
