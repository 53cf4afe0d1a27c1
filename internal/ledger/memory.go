package ledger

import "sync"

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.Mutex
	sets map[string]Set
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: map[string]Set{}}
}

func (m *MemoryStore) Load(projectID string) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sets[projectID]; ok {
		return s.Clone(), nil
	}
	return NewSet(), nil
}

func (m *MemoryStore) Save(projectID string, ids Set) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[projectID]
	if !ok {
		s = NewSet()
		m.sets[projectID] = s
	}
	for id := range ids {
		s[id] = struct{}{}
	}
	return s.Clone(), nil
}
