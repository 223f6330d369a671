package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/wastefleet/core/model"
	corestore "github.com/kilianp07/wastefleet/core/store"
)

// MemoryStore is an in-memory FeedStore used by tests and broker-less dev
// runs. Locations are fixed at construction; the fill feed starts at zero
// unless seeded.
type MemoryStore struct {
	mu        sync.Mutex
	fill      []int
	positions []model.Coord
}

var _ corestore.FeedStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store with one feed entry per location.
func NewMemoryStore(positions []model.Coord) *MemoryStore {
	return &MemoryStore{
		fill:      make([]int, len(positions)),
		positions: positions,
	}
}

// NewMemoryStoreFromConfig builds a MemoryStore from configured locations.
func NewMemoryStoreFromConfig(cfg Config) *MemoryStore {
	coords := make([]model.Coord, len(cfg.Locations))
	for i, p := range cfg.Locations {
		coords[i] = model.Coord{Lat: p[0], Lon: p[1]}
	}
	return NewMemoryStore(coords)
}

// SetFill seeds the fill level of one location.
func (s *MemoryStore) SetFill(location, level int) {
	s.mu.Lock()
	if location >= 0 && location < len(s.fill) {
		s.fill[location] = level
	}
	s.mu.Unlock()
}

func (s *MemoryStore) ReadFill(context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.fill))
	copy(out, s.fill)
	return out, nil
}

func (s *MemoryStore) ResetFill(_ context.Context, location int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if location < 0 || location >= len(s.fill) {
		return fmt.Errorf("store: location %d out of range [0,%d)", location, len(s.fill))
	}
	s.fill[location] = 0
	return nil
}

func (s *MemoryStore) ReadPositions(context.Context) ([]model.Coord, error) {
	out := make([]model.Coord, len(s.positions))
	copy(out, s.positions)
	return out, nil
}
