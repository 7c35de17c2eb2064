package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemStore keeps products in insertion order for the life of the process.
type MemStore struct {
	mu    sync.RWMutex
	items []Product
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := indexOf(s.items, id); i >= 0 {
		return clone(s.items[i]), true, nil
	}
	return Product{}, false, nil
}

func (s *MemStore) Create(ctx context.Context, p Product) (Product, error) {
	p = normalize(clone(p))
	p.ID = uuid.NewString()

	s.mu.Lock()
	s.items = append(s.items, p)
	s.mu.Unlock()

	return clone(p), nil
}

func (s *MemStore) Update(ctx context.Context, id string, patch Patch) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.items, id)
	if i < 0 {
		return Product{}, false, nil
	}
	s.items[i] = patch.Apply(s.items[i])
	return clone(s.items[i]), true, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = removeID(s.items, id)
	return nil
}

func indexOf(ps []Product, id string) int {
	for i := range ps {
		if ps[i].ID == id {
			return i
		}
	}
	return -1
}

func removeID(ps []Product, id string) []Product {
	if i := indexOf(ps, id); i >= 0 {
		return append(ps[:i], ps[i+1:]...)
	}
	return ps
}

func clone(p Product) Product {
	if p.ImagenesExtra != nil {
		p.ImagenesExtra = append([]string{}, p.ImagenesExtra...)
	}
	return p
}
