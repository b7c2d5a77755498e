package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// DefaultMemoryCapacity is the capacity used when none is configured.
const DefaultMemoryCapacity = 10_000

// Memory is a bounded in-process cache. Builds are evicted in insertion
// order once the capacity is exceeded; saving a build again moves it to the
// back of the order.
type Memory struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = oldest insertion
}

// NewMemory creates a memory cache holding at most capacity builds.
func NewMemory(capacity int) (*Memory, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("memory cache capacity must be greater than 0, got %d", capacity)
	}
	return &Memory{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}, nil
}

func (m *Memory) Load(ctx context.Context, id string, required model.ModelSet) (*model.Build, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[id]
	if !ok {
		return nil, false, nil
	}
	b := elem.Value.(*model.Build)
	if !b.Satisfies(required) {
		return nil, false, nil
	}
	return b, true, nil
}

func (m *Memory) Save(ctx context.Context, b *model.Build) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[b.ID]; ok {
		elem.Value = b
		m.order.MoveToBack(elem)
		return nil
	}

	m.entries[b.ID] = m.order.PushBack(b)
	for m.order.Len() > m.capacity {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*model.Build).ID)
	}
	return nil
}

// Len returns the number of builds currently held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Contains reports whether a build with the given id is held, regardless of
// which models it carries.
func (m *Memory) Contains(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	return ok
}
