package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/wastefleet/core/events"
	"github.com/kilianp07/wastefleet/core/fairness"
	"github.com/kilianp07/wastefleet/core/logger"
	"github.com/kilianp07/wastefleet/core/metrics"
	"github.com/kilianp07/wastefleet/core/model"
	"github.com/kilianp07/wastefleet/core/store"
	"github.com/kilianp07/wastefleet/core/tracker"
	"github.com/kilianp07/wastefleet/internal/eventbus"
)

// AssignmentPublisher sends assignment events to the message bus.
type AssignmentPublisher interface {
	PublishAssignment(ev model.AssignmentEvent) error
}

// Engine scans the fill-level feed and assigns overflowing locations to the
// nearest eligible vehicle. It is the sole writer of the fairness counters
// and of feed resets; the mutex guarantees a single active scan.
type Engine struct {
	cfg       Config
	feed      store.FeedStore
	locations []model.Coord
	tracker   *tracker.Store
	fairness  *fairness.Counter
	publisher AssignmentPublisher
	bus       eventbus.EventBus
	sink      metrics.Sink
	log       logger.Logger
	mu        sync.Mutex
}

// NewEngine creates an assignment engine. locations is the registry of
// location coordinates, index aligned with the fill feed.
func NewEngine(cfg Config, feed store.FeedStore, locations []model.Coord, trk *tracker.Store, ctr *fairness.Counter, pub AssignmentPublisher, bus eventbus.EventBus, sink metrics.Sink, log logger.Logger) (*Engine, error) {
	if feed == nil || trk == nil || ctr == nil || pub == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("dispatch: empty location registry")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Engine{
		cfg:       cfg,
		feed:      feed,
		locations: locations,
		tracker:   trk,
		fairness:  ctr,
		publisher: pub,
		bus:       bus,
		sink:      sink,
		log:       log,
	}, nil
}

// Run executes Scan on the configured interval until the context is
// canceled. A failed scan is logged and retried on the next tick.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.ScanIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := e.Scan(ctx); err != nil {
				e.log.Errorf("scan failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Scan reads the whole feed once and assigns every overflowing location it
// can. A single failed assignment does not abort the remaining locations.
// Only the feed entries whose assignment succeeded are reset to zero.
func (e *Engine) Scan(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	fill, err := e.feed.ReadFill(ctx)
	if err != nil {
		return fmt.Errorf("read fill feed: %w", err)
	}

	assigned, skipped := 0, 0
	for idx, level := range fill {
		reading := model.FillReading{Location: idx, Percent: level, At: start}
		if !reading.Overflowing(e.cfg.FillThreshold) {
			continue
		}
		if idx >= len(e.locations) {
			e.log.Warnf("no registry position for location %d, skipping", idx)
			continue
		}
		if e.assign(ctx, idx, e.locations[idx]) {
			assigned++
		} else {
			skipped++
		}
	}

	dur := time.Since(start)
	if err := e.sink.RecordScan(dur, assigned); err != nil {
		e.log.Warnf("record scan: %v", err)
	}
	if e.bus != nil {
		e.bus.Publish(events.ScanCompleted{Assigned: assigned, Skipped: skipped, Duration: dur})
	}
	return nil
}

// assign selects a vehicle for one overflowing location and emits the
// assignment. It returns true when the location was assigned and its feed
// entry reset.
func (e *Engine) assign(ctx context.Context, location int, at model.Coord) bool {
	vehicle, distance, ok := e.selectVehicle(at)
	if !ok {
		e.log.Infof("no vehicle available for location %d", location)
		e.skip(location, events.ReasonNoVehicle)
		return false
	}

	ev := model.AssignmentEvent{
		ID:        uuid.NewString(),
		VehicleID: vehicle,
		Latitude:  at.Lat,
		Longitude: at.Lon,
		Location:  location,
		Timestamp: time.Now().UTC(),
	}
	if err := e.publisher.PublishAssignment(ev); err != nil {
		// Leaving the feed entry untouched re-evaluates the location on the
		// next scan, giving at-least-once semantics without explicit retries.
		e.log.Errorf("publish assignment for location %d: %v", location, err)
		e.skip(location, events.ReasonPublishFailure)
		return false
	}

	e.fairness.Record(vehicle)
	if err := e.feed.ResetFill(ctx, location); err != nil {
		e.log.Warnf("reset fill for location %d: %v", location, err)
	}

	e.log.Infof("assigned location %d to vehicle %d (distance %.6f)", location, vehicle, distance)
	if err := e.sink.RecordAssignment(ev, distance); err != nil {
		e.log.Warnf("record assignment: %v", err)
	}
	if e.bus != nil {
		e.bus.Publish(events.AssignmentMade{Event: ev, Distance: distance})
	}
	return true
}

func (e *Engine) skip(location int, reason string) {
	if err := e.sink.RecordSkip(location, reason); err != nil {
		e.log.Warnf("record skip: %v", err)
	}
	if e.bus != nil {
		e.bus.Publish(events.AssignmentSkipped{Location: location, Reason: reason, Time: time.Now()})
	}
}

// selectVehicle returns the nearest eligible vehicle to the alert
// coordinate. Vehicles without a known position are never eligible; ties
// resolve to the lowest vehicle index because the comparison is strict.
func (e *Engine) selectVehicle(at model.Coord) (int, float64, bool) {
	best, bestDist := -1, 0.0
	for v := 0; v < e.fairness.Size(); v++ {
		pos, ok := e.tracker.Lookup(v)
		if !ok {
			continue
		}
		if !e.fairness.Eligible(v) {
			if err := e.sink.RecordFairnessRejection(v); err != nil {
				e.log.Warnf("record fairness rejection: %v", err)
			}
			continue
		}
		d := at.DistanceTo(pos.Coord())
		if best == -1 || d < bestDist {
			best, bestDist = v, d
		}
	}
	if best == -1 {
		return 0, 0, false
	}
	return best, bestDist, true
}
