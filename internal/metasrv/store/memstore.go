package store

import (
	"context"
	"sync"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
)

// MemStore is an in-memory Store. It backs single-node development mode and
// the test suites; commits are atomic under one mutex.
type MemStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	closed bool

	// commitHook, when set, runs before a commit is applied. Returning an
	// error aborts the commit with no writes applied. Test seam for
	// exercising commit-failure abort paths.
	commitHook func(writes []Write) error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// SetCommitHook installs a hook invoked before each commit is applied.
func (s *MemStore) SetCommitHook(hook func(writes []Write) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = hook
}

func (s *MemStore) Commit(ctx context.Context, writes []Write) apperrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if s.commitHook != nil {
		if err := s.commitHook(writes); err != nil {
			return ErrStoreUnavailable.Err(err)
		}
	}
	for _, w := range writes {
		if w.Delete {
			delete(s.data, w.Key)
			continue
		}
		value := make([]byte, len(w.Value))
		copy(value, w.Value)
		s.data[w.Key] = value
	}
	return nil
}

func (s *MemStore) LoadAll(ctx context.Context) (map[string][]byte, apperrors.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		value := make([]byte, len(v))
		copy(value, v)
		out[k] = value
	}
	return out, nil
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemStore)(nil)
