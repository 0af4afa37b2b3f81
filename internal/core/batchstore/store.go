package batchstore

import (
	"sync"

	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/models"
)

var _ core.BatchStore = (*MemoryStore)(nil)

// MemoryStore is the in-memory batch store. Batches live until explicit
// cleanup or process restart; losing them on restart is accepted.
type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string]*models.Batch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{batches: make(map[string]*models.Batch)}
}

func (s *MemoryStore) Put(batch *models.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = batch
}

func (s *MemoryStore) Get(id string) (*models.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	return b, ok
}

// Delete removes the batch and returns it so the caller can release the
// temp files it references. Second delete of the same id reports false.
func (s *MemoryStore) Delete(id string) (*models.Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if ok {
		delete(s.batches, id)
	}
	return b, ok
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches)
}
