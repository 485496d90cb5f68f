package memstore

import (
	"sync"

	"github.com/jrsteele09/temoins-console/tokenstore"
)

var _ tokenstore.Store = (*MemStore)(nil)

// MemStore keeps session values in process memory.
type MemStore struct {
	values map[tokenstore.Key]string
	lock   sync.RWMutex
}

func New() *MemStore {
	return &MemStore{
		values: make(map[tokenstore.Key]string),
	}
}

func (s *MemStore) Get(key tokenstore.Key) string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.values[key]
}

func (s *MemStore) Set(key tokenstore.Key, value string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[key] = value
}

func (s *MemStore) Clear(key tokenstore.Key) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.values, key)
}

func (s *MemStore) ClearSession() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, k := range tokenstore.SessionKeys {
		delete(s.values, k)
	}
}

// Snapshot returns a copy of the stored values.
func (s *MemStore) Snapshot() map[tokenstore.Key]string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make(map[tokenstore.Key]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
