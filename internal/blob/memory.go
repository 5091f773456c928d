package blob

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[Kind]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	blobs := make(map[Kind]map[string][]byte, len(Kinds))
	for _, k := range Kinds {
		blobs[k] = make(map[string][]byte)
	}
	return &MemoryStore{blobs: blobs}
}

func (s *MemoryStore) Put(_ context.Context, kind Kind, name string, r io.Reader) (int64, error) {
	if err := checkName(kind, name); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.blobs[kind][name] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *MemoryStore) Open(_ context.Context, kind Kind, name string) (io.ReadCloser, error) {
	if err := checkName(kind, name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.blobs[kind][name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Exists(_ context.Context, kind Kind, name string) (bool, error) {
	if err := checkName(kind, name); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.blobs[kind][name]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, kind Kind, name string) error {
	if err := checkName(kind, name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[kind][name]; !ok {
		return ErrNotFound
	}
	delete(s.blobs[kind], name)
	return nil
}

// Len returns the number of blobs of the given kind.
func (s *MemoryStore) Len(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs[kind])
}
