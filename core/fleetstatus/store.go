package fleetstatus

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/wastefleet/core/model"
)

// Status captures the current known state of a vehicle agent.
type Status struct {
	VehicleID      int         `json:"vehicle_id"`
	State          string      `json:"state"`
	QueueDepth     int         `json:"queue_depth"`
	RouteRemaining int         `json:"route_remaining"`
	RouteSource    string      `json:"route_source,omitempty"`
	LastWaypoint   model.Coord `json:"last_waypoint"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Store keeps the latest status per vehicle.
type Store interface {
	Set(Status)
	List() []Status
}

// MemoryStore is the in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[int]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[int]Status{}}
}

func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	s.data[st.VehicleID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
	return res
}
