package fleet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/wastefleet/core/model"
	"github.com/kilianp07/wastefleet/core/routing"
	"github.com/kilianp07/wastefleet/infra/logger"
)

type fakePositionPublisher struct {
	mu        sync.Mutex
	fail      bool
	published []model.VehiclePosition
}

func (p *fakePositionPublisher) PublishPosition(pos model.VehiclePosition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, pos)
	return nil
}

func (p *fakePositionPublisher) reports() []model.VehiclePosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.VehiclePosition, len(p.published))
	copy(out, p.published)
	return out
}

type fakePlanner struct {
	mu     sync.Mutex
	path   routing.Path
	err    error
	calls  [][]model.Coord
	onPlan func()
}

func (f *fakePlanner) Plan(_ context.Context, stops []model.Coord) (routing.Path, error) {
	f.mu.Lock()
	cp := make([]model.Coord, len(stops))
	copy(cp, stops)
	f.calls = append(f.calls, cp)
	hook := f.onPlan
	path, err := f.path, f.err
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return path, err
}

func newTestAgent(t *testing.T, planner routing.Planner, pub PositionPublisher) *Agent {
	t.Helper()
	a, err := NewAgent(3, model.Coord{Lat: 0, Lon: 0}, planner, pub, nil, nil, nil, logger.NopLogger{}, time.Second)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return a
}

func TestIdleAgentReportsHome(t *testing.T) {
	pub := &fakePositionPublisher{}
	a := newTestAgent(t, nil, pub)

	a.Tick(context.Background())
	a.Tick(context.Background())

	got := pub.reports()
	if len(got) != 2 {
		t.Fatalf("%d reports, want one per tick", len(got))
	}
	for _, p := range got {
		if p.VehicleID != 3 || p.Latitude != 0 || p.Longitude != 0 {
			t.Fatalf("idle agent must report home, got %+v", p)
		}
	}
	if a.State() != StateIdle {
		t.Fatalf("state %v, want idle", a.State())
	}
}

func TestFallbackRouteIsQueueOrder(t *testing.T) {
	pub := &fakePositionPublisher{}
	a := newTestAgent(t, nil, pub)

	a.Assign(model.AssignmentEvent{ID: "e1", VehicleID: 3, Latitude: 1, Longitude: 1, Location: 0})
	a.Assign(model.AssignmentEvent{ID: "e2", VehicleID: 3, Latitude: 2, Longitude: 2, Location: 1})

	a.Tick(context.Background())
	a.Tick(context.Background())

	got := pub.reports()
	if len(got) != 2 {
		t.Fatalf("%d reports, want 2", len(got))
	}
	// Without a routing gateway the path is exactly the queued stops, the
	// current position is never prepended.
	if got[0].Latitude != 1 || got[0].Longitude != 1 {
		t.Fatalf("first waypoint %+v, want the first queued stop", got[0])
	}
	if got[1].Latitude != 2 || got[1].Longitude != 2 {
		t.Fatalf("second waypoint %+v, want the second queued stop", got[1])
	}
}

func TestRouteExhaustionDrainsQueueAndReturnsHome(t *testing.T) {
	pub := &fakePositionPublisher{}
	a := newTestAgent(t, nil, pub)

	a.Assign(model.AssignmentEvent{ID: "e1", VehicleID: 3, Latitude: 1, Longitude: 1})
	a.Tick(context.Background())

	if a.QueueDepth() != 0 {
		t.Fatalf("queue depth %d after route exhaustion, want 0", a.QueueDepth())
	}
	if a.State() != StateReturning {
		t.Fatalf("state %v after last waypoint away from home, want returning", a.State())
	}

	a.Tick(context.Background())
	got := pub.reports()
	if last := got[len(got)-1]; last.Latitude != 0 || last.Longitude != 0 {
		t.Fatalf("agent must head home after its route, got %+v", last)
	}
	if a.State() != StateIdle {
		t.Fatalf("state %v back at home, want idle", a.State())
	}
}

func TestGatewayRouteAdopted(t *testing.T) {
	pub := &fakePositionPublisher{}
	planner := &fakePlanner{path: routing.Path{
		Waypoints: []model.Coord{{Lat: 0.5, Lon: 0.5}, {Lat: 1, Lon: 1}},
		DistanceM: 1234,
	}}
	a := newTestAgent(t, planner, pub)

	a.Assign(model.AssignmentEvent{ID: "e1", VehicleID: 3, Latitude: 1, Longitude: 1})
	a.Tick(context.Background())

	got := pub.reports()
	if len(got) != 1 || got[0].Latitude != 0.5 || got[0].Longitude != 0.5 {
		t.Fatalf("first report %+v, want first gateway waypoint", got)
	}
	if a.State() != StateEnRoute {
		t.Fatalf("state %v with route remaining, want en_route", a.State())
	}
	// The planner receives the current position followed by the stops.
	if len(planner.calls) != 1 {
		t.Fatalf("planner called %d times, want 1", len(planner.calls))
	}
	call := planner.calls[0]
	if len(call) != 2 || call[0] != (model.Coord{Lat: 0, Lon: 0}) || call[1] != (model.Coord{Lat: 1, Lon: 1}) {
		t.Fatalf("planner stops %+v, want current position then queued stop", call)
	}
}

func TestPlannerErrorFallsBackWithoutDroppingStops(t *testing.T) {
	pub := &fakePositionPublisher{}
	planner := &fakePlanner{err: errors.New("gateway timeout")}
	a := newTestAgent(t, planner, pub)

	a.Assign(model.AssignmentEvent{ID: "e1", VehicleID: 3, Latitude: 1, Longitude: 1})
	a.Assign(model.AssignmentEvent{ID: "e2", VehicleID: 3, Latitude: 2, Longitude: 2})
	a.Tick(context.Background())
	a.Tick(context.Background())

	got := pub.reports()
	if len(got) != 2 {
		t.Fatalf("%d reports, want both stops served via the direct path", len(got))
	}
	if got[0].Latitude != 1 || got[1].Latitude != 2 {
		t.Fatalf("fallback must preserve queue order, got %+v", got)
	}
}

func TestAssignDuringRouteForcesRecompute(t *testing.T) {
	pub := &fakePositionPublisher{}
	a := newTestAgent(t, nil, pub)

	a.Assign(model.AssignmentEvent{ID: "e1", VehicleID: 3, Latitude: 1, Longitude: 1})
	a.Assign(model.AssignmentEvent{ID: "e2", VehicleID: 3, Latitude: 2, Longitude: 2})
	a.Tick(context.Background())
	// A new stop while en route triggers a full recomputation over the
	// whole queue on the next tick.
	a.Assign(model.AssignmentEvent{ID: "e3", VehicleID: 3, Latitude: 3, Longitude: 3})
	a.Tick(context.Background())

	got := pub.reports()
	if last := got[len(got)-1]; last.Latitude != 1 || last.Longitude != 1 {
		t.Fatalf("recomputed route must restart at the head of the queue, got %+v", last)
	}
	if a.QueueDepth() != 3 {
		t.Fatalf("queue depth %d, want all three stops pending", a.QueueDepth())
	}
	if a.State() != StateEnRoute {
		t.Fatalf("state %v, want en_route", a.State())
	}
}

func TestAssignDuringPlanIsNotDropped(t *testing.T) {
	pub := &fakePositionPublisher{}
	planner := &fakePlanner{err: errors.New("gateway timeout")}
	a := newTestAgent(t, planner, pub)

	// Stop B arrives while the planner call for stop A is in flight, after
	// the queue snapshot was taken.
	planner.onPlan = func() {
		planner.onPlan = nil
		a.Assign(model.AssignmentEvent{ID: "e2", VehicleID: 3, Latitude: 2, Longitude: 2})
	}
	a.Assign(model.AssignmentEvent{ID: "e1", VehicleID: 3, Latitude: 1, Longitude: 1})

	a.Tick(context.Background())
	if a.QueueDepth() != 1 {
		t.Fatalf("queue depth %d after serving stop A, the late stop must survive", a.QueueDepth())
	}

	a.Tick(context.Background())
	got := pub.reports()
	if len(got) != 2 {
		t.Fatalf("%d reports, want both stops served", len(got))
	}
	if got[0].Latitude != 1 || got[1].Latitude != 2 {
		t.Fatalf("stops served out of order or dropped: %+v", got)
	}
	if a.QueueDepth() != 0 {
		t.Fatalf("queue depth %d after serving both stops, want 0", a.QueueDepth())
	}
}

func TestInvalidAssignmentDiscarded(t *testing.T) {
	pub := &fakePositionPublisher{}
	a := newTestAgent(t, nil, pub)

	a.Assign(model.AssignmentEvent{ID: "bad", VehicleID: 3, Latitude: 200, Longitude: 0})
	if a.QueueDepth() != 0 {
		t.Fatalf("invalid assignment must not enter the queue")
	}

	a.Tick(context.Background())
	got := pub.reports()
	if len(got) != 1 || got[0].Latitude != 0 {
		t.Fatalf("agent must stay idle at home, got %+v", got)
	}
}

func TestPublishFailureDoesNotStallRoute(t *testing.T) {
	pub := &fakePositionPublisher{fail: true}
	a := newTestAgent(t, nil, pub)

	a.Assign(model.AssignmentEvent{ID: "e1", VehicleID: 3, Latitude: 1, Longitude: 1})
	a.Tick(context.Background())

	if a.QueueDepth() != 0 {
		t.Fatalf("route must advance even when the report is lost")
	}
	if a.State() != StateReturning {
		t.Fatalf("state %v, want returning", a.State())
	}
}

func TestNewAgentValidation(t *testing.T) {
	if _, err := NewAgent(0, model.Coord{}, nil, nil, nil, nil, nil, logger.NopLogger{}, time.Second); err == nil {
		t.Fatalf("expected error for nil publisher")
	}
	if _, err := NewAgent(0, model.Coord{Lat: 91}, nil, &fakePositionPublisher{}, nil, nil, nil, logger.NopLogger{}, time.Second); err == nil {
		t.Fatalf("expected error for invalid home")
	}
}
