package fleet

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kilianp07/wastefleet/core/events"
	"github.com/kilianp07/wastefleet/core/fleetstatus"
	"github.com/kilianp07/wastefleet/core/logger"
	"github.com/kilianp07/wastefleet/core/metrics"
	"github.com/kilianp07/wastefleet/core/model"
	"github.com/kilianp07/wastefleet/core/routing"
	"github.com/kilianp07/wastefleet/internal/eventbus"
)

// State describes what a vehicle agent is currently doing.
type State int

const (
	// StateIdle means the stop queue is empty and the vehicle is at home.
	StateIdle State = iota
	// StateReturning means the stop queue is empty and the vehicle is on
	// its way back home.
	StateReturning
	// StateEnRoute means the vehicle has pending stops or an active route.
	StateEnRoute
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReturning:
		return "returning"
	case StateEnRoute:
		return "en_route"
	}
	return "unknown"
}

// Route source labels recorded in the status store.
const (
	routeSourceGateway  = "gateway"
	routeSourceFallback = "fallback"
)

// PositionPublisher sends vehicle position reports to the message bus.
type PositionPublisher interface {
	PublishPosition(p model.VehiclePosition) error
}

// Agent drives one vehicle. It consumes assignments addressed to it through
// Assign, recomputes its route when the queue changed, advances one waypoint
// per tick and reports its position back to the dispatcher. All fields
// except the mailbox and the recalculate flag are owned by the tick
// goroutine.
type Agent struct {
	id     int
	home   model.Coord
	cur    model.Coord
	inbox  *Mailbox
	recalc atomic.Bool

	route       []model.Coord
	routeSource string
	// planned is the number of queued stops the current route was derived
	// from; only those are drained when the route is exhausted.
	planned int

	planner     routing.Planner
	publisher   PositionPublisher
	status      fleetstatus.Store
	bus         eventbus.EventBus
	sink        metrics.Sink
	log         logger.Logger
	planTimeout time.Duration

	state State
}

// NewAgent creates a vehicle agent starting at its home position. planner
// may be nil, which permanently engages the direct-stop fallback.
func NewAgent(id int, home model.Coord, planner routing.Planner, pub PositionPublisher, status fleetstatus.Store, bus eventbus.EventBus, sink metrics.Sink, log logger.Logger, planTimeout time.Duration) (*Agent, error) {
	if pub == nil {
		return nil, fmt.Errorf("fleet: nil position publisher for vehicle %d", id)
	}
	if !home.Valid() {
		return nil, fmt.Errorf("fleet: invalid home position for vehicle %d", id)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if planTimeout <= 0 {
		planTimeout = 5 * time.Second
	}
	return &Agent{
		id:          id,
		home:        home,
		cur:         home,
		inbox:       &Mailbox{},
		planner:     planner,
		publisher:   pub,
		status:      status,
		bus:         bus,
		sink:        sink,
		log:         log,
		planTimeout: planTimeout,
		state:       StateIdle,
	}, nil
}

// ID returns the vehicle index of this agent.
func (a *Agent) ID() int { return a.id }

// State returns the state reached after the last tick.
func (a *Agent) State() State { return a.state }

// QueueDepth returns the number of pending stops.
func (a *Agent) QueueDepth() int { return a.inbox.Len() }

// Assign queues the event position and forces a route recomputation on the
// next tick. It is called from the message-delivery context and never
// blocks.
func (a *Agent) Assign(ev model.AssignmentEvent) {
	if !ev.Coord().Valid() {
		if a.log != nil {
			a.log.Warnf("vehicle %d: discarding assignment %s with invalid position", a.id, ev.ID)
		}
		return
	}
	a.inbox.Push(ev.Coord())
	a.recalc.Store(true)
	if a.log != nil {
		a.log.Infof("vehicle %d: queued stop (%.6f,%.6f) for location %d", a.id, ev.Latitude, ev.Longitude, ev.Location)
	}
}

// Run ticks the agent on the given interval until the context is canceled.
// Each agent runs in its own goroutine, so a slow routing call only delays
// this vehicle.
func (a *Agent) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick advances the agent by one waypoint: recompute the route when needed,
// consume the next waypoint (or report home when idle) and publish the
// position.
func (a *Agent) Tick(ctx context.Context) {
	if a.recalc.Swap(false) || (len(a.route) == 0 && a.inbox.Len() > 0) {
		a.route, a.routeSource = a.computeRoute(ctx)
	}

	var wp model.Coord
	if len(a.route) > 0 {
		wp = a.route[0]
		a.route = a.route[1:]
		if len(a.route) == 0 {
			// Only the stops this route was planned over are spent;
			// anything delivered since the snapshot stays queued.
			a.inbox.Drain(a.planned)
			a.planned = 0
			a.routeSource = ""
		}
	} else {
		wp = a.home
	}
	a.cur = wp

	a.publishPosition(wp)
	a.transition()
}

// computeRoute asks the routing gateway for a path through the pending
// stops, prepending the current position as the starting reference. Any
// planner error, including the context deadline, degrades to the direct
// stop list in queue order.
func (a *Agent) computeRoute(ctx context.Context) ([]model.Coord, string) {
	stops := a.inbox.Snapshot()
	a.planned = len(stops)
	if len(stops) == 0 {
		return nil, ""
	}
	if a.planner != nil {
		pctx, cancel := context.WithTimeout(ctx, a.planTimeout)
		defer cancel()
		path, err := a.planner.Plan(pctx, append([]model.Coord{a.cur}, stops...))
		if err == nil && len(path.Waypoints) > 0 {
			return path.Waypoints, routeSourceGateway
		}
		if err != nil && a.log != nil {
			a.log.Warnf("vehicle %d: route planning failed, using direct path: %v", a.id, err)
		}
		a.recordFallback(len(stops), err)
	} else {
		a.recordFallback(len(stops), routing.ErrDisabled)
	}
	return routing.DirectPath(stops).Waypoints, routeSourceFallback
}

func (a *Agent) recordFallback(stops int, err error) {
	if serr := a.sink.RecordRouteFallback(a.id); serr != nil && a.log != nil {
		a.log.Warnf("record route fallback: %v", serr)
	}
	if a.bus != nil {
		reason := ""
		if err != nil {
			reason = err.Error()
		}
		a.bus.Publish(events.RouteFallback{Vehicle: a.id, Stops: stops, Reason: reason})
	}
}

func (a *Agent) publishPosition(wp model.Coord) {
	p := model.VehiclePosition{
		VehicleID: a.id,
		Latitude:  wp.Lat,
		Longitude: wp.Lon,
		Timestamp: time.Now().UTC(),
	}
	if err := a.publisher.PublishPosition(p); err != nil && a.log != nil {
		// Lost reports are recomputed from the next tick; no retry.
		a.log.Warnf("vehicle %d: publish position: %v", a.id, err)
	}
}

// transition derives the post-tick state and records it.
func (a *Agent) transition() {
	next := StateIdle
	switch {
	case a.inbox.Len() > 0 || len(a.route) > 0:
		next = StateEnRoute
	case a.cur != a.home:
		next = StateReturning
	}
	if next != a.state {
		if a.bus != nil {
			a.bus.Publish(events.StateChange{Vehicle: a.id, From: a.state.String(), To: next.String(), Time: time.Now()})
		}
		if a.log != nil {
			a.log.Debugf("vehicle %d: %s -> %s", a.id, a.state, next)
		}
	}
	a.state = next

	if a.status != nil {
		a.status.Set(fleetstatus.Status{
			VehicleID:      a.id,
			State:          next.String(),
			QueueDepth:     a.inbox.Len(),
			RouteRemaining: len(a.route),
			RouteSource:    a.routeSource,
			LastWaypoint:   a.cur,
			UpdatedAt:      time.Now(),
		})
	}
}
