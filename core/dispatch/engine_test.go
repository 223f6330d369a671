package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kilianp07/wastefleet/core/fairness"
	"github.com/kilianp07/wastefleet/core/model"
	"github.com/kilianp07/wastefleet/core/tracker"
	"github.com/kilianp07/wastefleet/infra/logger"
)

type fakeFeed struct {
	mu   sync.Mutex
	fill []int
	err  error
}

func (f *fakeFeed) ReadFill(context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]int, len(f.fill))
	copy(out, f.fill)
	return out, nil
}

func (f *fakeFeed) ResetFill(_ context.Context, location int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fill[location] = 0
	return nil
}

func (f *fakeFeed) ReadPositions(context.Context) ([]model.Coord, error) {
	return nil, nil
}

func (f *fakeFeed) levels() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.fill))
	copy(out, f.fill)
	return out
}

type fakePublisher struct {
	mu        sync.Mutex
	fail      bool
	published []model.AssignmentEvent
}

func (p *fakePublisher) PublishAssignment(ev model.AssignmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, ev)
	return nil
}

func (p *fakePublisher) events() []model.AssignmentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.AssignmentEvent, len(p.published))
	copy(out, p.published)
	return out
}

func testEngine(t *testing.T, feed *fakeFeed, pub *fakePublisher, fleetSize int) (*Engine, *tracker.Store, *fairness.Counter) {
	t.Helper()
	cfg := Config{}
	cfg.SetDefaults()
	trk := tracker.New(logger.NopLogger{})
	ctr, err := fairness.NewCounter(fleetSize, cfg.MaxAssignRatio)
	if err != nil {
		t.Fatalf("new counter: %v", err)
	}
	locations := []model.Coord{{Lat: 10, Lon: 10}, {Lat: 20, Lon: 20}, {Lat: 30, Lon: 30}}
	eng, err := NewEngine(cfg, feed, locations, trk, ctr, pub, nil, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng, trk, ctr
}

func TestScanAssignsOnlyOverflowing(t *testing.T) {
	feed := &fakeFeed{fill: []int{80, 50}}
	pub := &fakePublisher{}
	eng, trk, _ := testEngine(t, feed, pub, 2)
	trk.Update(model.VehiclePosition{VehicleID: 0, Latitude: 0, Longitude: 0})
	trk.Update(model.VehiclePosition{VehicleID: 1, Latitude: 0, Longitude: 0})

	if err := eng.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	got := pub.events()
	if len(got) != 1 {
		t.Fatalf("published %d events, want 1", len(got))
	}
	ev := got[0]
	if ev.Location != 0 || ev.VehicleID != 0 {
		t.Fatalf("event %+v, want location 0 assigned to vehicle 0", ev)
	}
	if ev.Latitude != 10 || ev.Longitude != 10 {
		t.Fatalf("event coordinates %v,%v, want registry position of location 0", ev.Latitude, ev.Longitude)
	}
	if ev.ID == "" {
		t.Fatalf("event must carry an id")
	}
	levels := feed.levels()
	if levels[0] != 0 {
		t.Fatalf("assigned location must be reset, got %d", levels[0])
	}
	if levels[1] != 50 {
		t.Fatalf("below-threshold location must stay untouched, got %d", levels[1])
	}
}

func TestScanThresholdBoundary(t *testing.T) {
	// 70% with threshold 0.70 is not overflowing; the comparison is strict.
	feed := &fakeFeed{fill: []int{70, 71}}
	pub := &fakePublisher{}
	eng, trk, _ := testEngine(t, feed, pub, 1)
	trk.Update(model.VehiclePosition{VehicleID: 0, Latitude: 0, Longitude: 0})

	if err := eng.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	got := pub.events()
	if len(got) != 1 || got[0].Location != 1 {
		t.Fatalf("only location 1 should overflow, got %+v", got)
	}
}

func TestScanNearestVehicleStrictTieBreak(t *testing.T) {
	feed := &fakeFeed{fill: []int{90}}
	pub := &fakePublisher{}
	eng, trk, _ := testEngine(t, feed, pub, 3)
	// Vehicles 0 and 1 equidistant from the alert, vehicle 2 farther away.
	trk.Update(model.VehiclePosition{VehicleID: 0, Latitude: 9, Longitude: 10})
	trk.Update(model.VehiclePosition{VehicleID: 1, Latitude: 11, Longitude: 10})
	trk.Update(model.VehiclePosition{VehicleID: 2, Latitude: 0, Longitude: 0})

	if err := eng.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	got := pub.events()
	if len(got) != 1 || got[0].VehicleID != 0 {
		t.Fatalf("equidistant tie must resolve to the lowest index, got %+v", got)
	}
}

func TestScanFairnessExclusion(t *testing.T) {
	feed := &fakeFeed{fill: []int{90}}
	pub := &fakePublisher{}
	eng, trk, ctr := testEngine(t, feed, pub, 2)
	// Vehicle 0 sits on the alert, vehicle 1 is far away.
	trk.Update(model.VehiclePosition{VehicleID: 0, Latitude: 10, Longitude: 10})
	trk.Update(model.VehiclePosition{VehicleID: 1, Latitude: 0, Longitude: 0})
	// Push vehicle 0 over the fairness cap: floor(4*0.75)=3 < 4.
	for i := 0; i < 4; i++ {
		ctr.Record(0)
	}

	if err := eng.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	got := pub.events()
	if len(got) != 1 || got[0].VehicleID != 1 {
		t.Fatalf("capped vehicle must be skipped even when nearest, got %+v", got)
	}
}

func TestScanNoVehicleLeavesFeed(t *testing.T) {
	feed := &fakeFeed{fill: []int{90}}
	pub := &fakePublisher{}
	eng, _, _ := testEngine(t, feed, pub, 2)

	if err := eng.Scan(context.Background()); err != nil {
		t.Fatalf("scan with no known positions must not fail: %v", err)
	}
	if len(pub.events()) != 0 {
		t.Fatalf("no vehicle known, no event expected")
	}
	if feed.levels()[0] != 90 {
		t.Fatalf("unassigned location must stay in the feed for the next scan")
	}
}

func TestScanPublishFailureLeavesFeed(t *testing.T) {
	feed := &fakeFeed{fill: []int{90}}
	pub := &fakePublisher{fail: true}
	eng, trk, ctr := testEngine(t, feed, pub, 1)
	trk.Update(model.VehiclePosition{VehicleID: 0, Latitude: 0, Longitude: 0})

	if err := eng.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if feed.levels()[0] != 90 {
		t.Fatalf("failed publish must not reset the feed entry")
	}
	if _, total := ctr.Counts(); total != 0 {
		t.Fatalf("failed publish must not count as an assignment")
	}

	// Once the broker recovers the same location is re-dispatched.
	pub.fail = false
	if err := eng.Scan(context.Background()); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	got := pub.events()
	if len(got) != 1 || got[0].Location != 0 {
		t.Fatalf("location must be retried after a failed publish, got %+v", got)
	}
	if feed.levels()[0] != 0 {
		t.Fatalf("successful retry must reset the feed entry")
	}
}

func TestScanResetPreventsRedispatch(t *testing.T) {
	feed := &fakeFeed{fill: []int{90}}
	pub := &fakePublisher{}
	eng, trk, _ := testEngine(t, feed, pub, 1)
	trk.Update(model.VehiclePosition{VehicleID: 0, Latitude: 0, Longitude: 0})

	for i := 0; i < 2; i++ {
		if err := eng.Scan(context.Background()); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}
	if len(pub.events()) != 1 {
		t.Fatalf("a reset location must not be dispatched twice, got %d events", len(pub.events()))
	}
}

func TestScanFeedErrorAbortsCycleOnly(t *testing.T) {
	feed := &fakeFeed{fill: []int{90}, err: errors.New("backend down")}
	pub := &fakePublisher{}
	eng, trk, _ := testEngine(t, feed, pub, 1)
	trk.Update(model.VehiclePosition{VehicleID: 0, Latitude: 0, Longitude: 0})

	if err := eng.Scan(context.Background()); err == nil {
		t.Fatalf("expected error when the feed read fails")
	}
	feed.err = nil
	if err := eng.Scan(context.Background()); err != nil {
		t.Fatalf("scan after recovery: %v", err)
	}
	if len(pub.events()) != 1 {
		t.Fatalf("dispatch must resume after a failed cycle")
	}
}
