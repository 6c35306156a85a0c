package objstore

import (
	"context"
	"sync"

	"github.com/trezcool/mwalimu/core"
)

// MemoryStore keeps object keys in memory (debug and tests).
// Deleting a missing key succeeds, as it does on S3.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]bool
	err     error
}

var _ core.ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore(keys ...string) *MemoryStore {
	st := &MemoryStore{objects: make(map[string]bool, len(keys))}
	for _, k := range keys {
		st.objects[k] = true
	}
	return st
}

func (st *MemoryStore) Put(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.objects[key] = true
}

func (st *MemoryStore) Has(key string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.objects[key]
}

// FailWith makes every following DeleteObject return err (nil resets).
func (st *MemoryStore) FailWith(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.err = err
}

func (st *MemoryStore) DeleteObject(_ context.Context, key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.err != nil {
		return st.err
	}
	delete(st.objects, key)
	return nil
}
