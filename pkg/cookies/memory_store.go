package cookies

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a process-local Store, used for dry runs and tests
type MemoryStore struct {
	mu   sync.Mutex
	sets map[string]Set

	SaveErr error
	// Invalidated records identities passed to Invalidate, in call order
	Invalidated []string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]Set)}
}

func (m *MemoryStore) Load(ctx context.Context, identity string) (*Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[Key(identity)]
	if !ok {
		return nil, nil
	}
	return &set, nil
}

func (m *MemoryStore) Save(ctx context.Context, set *Set) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if _, err := encode(set); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[Key(set.Identity)] = *set
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets))
	for _, set := range m.sets {
		out = append(out, set.Identity)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Invalidate(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, Key(identity))
	m.Invalidated = append(m.Invalidated, identity)
	return nil
}
