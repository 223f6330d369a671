package mqtt

import (
	"fmt"
	"sync"

	"github.com/kilianp07/wastefleet/core/model"
)

// MockAssignmentPublisher records published assignments for tests.
type MockAssignmentPublisher struct {
	mu     sync.Mutex
	Events []model.AssignmentEvent
	Fail   bool
}

// PublishAssignment records the event or fails when configured to.
func (m *MockAssignmentPublisher) PublishAssignment(ev model.AssignmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Events = append(m.Events, ev)
	return nil
}

// Published returns a copy of the recorded events.
func (m *MockAssignmentPublisher) Published() []model.AssignmentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AssignmentEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// MockPositionPublisher records published position reports for tests.
type MockPositionPublisher struct {
	mu      sync.Mutex
	Reports []model.VehiclePosition
	Fail    bool
}

// PublishPosition records the report or fails when configured to.
func (m *MockPositionPublisher) PublishPosition(p model.VehiclePosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Reports = append(m.Reports, p)
	return nil
}

// Published returns a copy of the recorded reports.
func (m *MockPositionPublisher) Published() []model.VehiclePosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.VehiclePosition, len(m.Reports))
	copy(out, m.Reports)
	return out
}
