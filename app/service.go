package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/wastefleet/config"
	"github.com/kilianp07/wastefleet/core/dispatch"
	"github.com/kilianp07/wastefleet/core/events"
	"github.com/kilianp07/wastefleet/core/fairness"
	"github.com/kilianp07/wastefleet/core/fleet"
	"github.com/kilianp07/wastefleet/core/fleetstatus"
	coremetrics "github.com/kilianp07/wastefleet/core/metrics"
	"github.com/kilianp07/wastefleet/core/model"
	corerouting "github.com/kilianp07/wastefleet/core/routing"
	"github.com/kilianp07/wastefleet/core/tracker"
	"github.com/kilianp07/wastefleet/infra/logger"
	"github.com/kilianp07/wastefleet/infra/metrics"
	"github.com/kilianp07/wastefleet/infra/mqtt"
	"github.com/kilianp07/wastefleet/infra/routing"
	"github.com/kilianp07/wastefleet/infra/store"
	"github.com/kilianp07/wastefleet/internal/eventbus"
)

// Mode selects which halves of the system a process runs.
type Mode int

const (
	// ModeAll runs the dispatcher and the vehicle fleet in one process.
	ModeAll Mode = iota
	// ModeDispatcher runs only the assignment engine.
	ModeDispatcher
	// ModeFleet runs only the vehicle agents.
	ModeFleet
)

// agentRegistry hands assignment deliveries to vehicle agents. The bus
// subscribes before the agents exist, so the slice is published under a lock
// once construction finishes; deliveries before that are dropped and the
// unreset feed entry re-dispatches them.
type agentRegistry struct {
	mu     sync.Mutex
	agents []*fleet.Agent
}

func (r *agentRegistry) set(agents []*fleet.Agent) {
	r.mu.Lock()
	r.agents = agents
	r.mu.Unlock()
}

func (r *agentRegistry) deliver(ev model.AssignmentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.VehicleID < 0 || ev.VehicleID >= len(r.agents) {
		return
	}
	if a := r.agents[ev.VehicleID]; a != nil {
		a.Assign(ev)
	}
}

// Service wires the dispatcher and the vehicle fleet from configuration.
type Service struct {
	cfg  *config.Config
	mode Mode
	log  logger.Logger

	engine        *dispatch.Engine
	fairness      *fairness.Counter
	dispatcherBus *mqtt.DispatcherBus

	agents     []*fleet.Agent
	status     *fleetstatus.MemoryStore
	vehicleBus *mqtt.VehicleBus

	bus  *eventbus.Bus
	sink coremetrics.Sink
}

// New creates a Service from the configuration.
func New(cfg *config.Config, mode Mode) (*Service, error) {
	logg := logger.New("service")

	feed, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("feed store: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	positions, err := feed.ReadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read position registry: %w", err)
	}
	fleetSize := cfg.Fleet.FleetSize(len(positions))
	if fleetSize == 0 {
		return nil, fmt.Errorf("empty position registry")
	}
	logg.Infof("starting with %d vehicles over %d locations", fleetSize, len(positions))

	svc := &Service{
		cfg:  cfg,
		mode: mode,
		log:  logg,
		bus:  eventbus.New(),
		sink: buildSink(cfg.Metrics),
	}

	if mode == ModeAll || mode == ModeDispatcher {
		trk := tracker.New(logger.New("tracker"))
		ctr, err := fairness.NewCounter(fleetSize, cfg.Dispatch.MaxAssignRatio)
		if err != nil {
			return nil, err
		}
		svc.fairness = ctr

		dbus, err := mqtt.NewDispatcherBus(cfg.MQTT, func(p model.VehiclePosition) {
			if trk.Update(p) {
				if err := svc.sink.RecordPosition(p); err != nil {
					logg.Warnf("record position: %v", err)
				}
			}
		})
		if err != nil {
			return nil, fmt.Errorf("dispatcher bus: %w", err)
		}
		svc.dispatcherBus = dbus

		engine, err := dispatch.NewEngine(cfg.Dispatch, feed, positions, trk, ctr, dbus, svc.bus, svc.sink, logger.New("assignment_engine"))
		if err != nil {
			return nil, fmt.Errorf("assignment engine: %w", err)
		}
		svc.engine = engine
	}

	if mode == ModeAll || mode == ModeFleet {
		var planner corerouting.Planner
		if cfg.Routing.Enabled() {
			p, err := routing.NewMapboxPlanner(cfg.Routing)
			if err != nil {
				return nil, fmt.Errorf("routing planner: %w", err)
			}
			planner = p
		} else {
			logg.Infof("no routing credential configured, direct-stop fallback engaged")
		}

		svc.status = fleetstatus.NewMemoryStore()
		planTimeout := time.Duration(cfg.Fleet.PlanTimeoutSeconds) * time.Second
		homes := positions[:fleetSize]

		reg := &agentRegistry{}
		vbus, err := mqtt.NewVehicleBus(cfg.MQTT, fleetSize, reg.deliver)
		if err != nil {
			return nil, fmt.Errorf("vehicle bus: %w", err)
		}
		svc.vehicleBus = vbus

		agents := make([]*fleet.Agent, fleetSize)
		for i := range agents {
			a, err := fleet.NewAgent(i, homes[i], planner, vbus, svc.status, svc.bus, svc.sink, logger.New(fmt.Sprintf("vehicle-%d", i)), planTimeout)
			if err != nil {
				return nil, fmt.Errorf("vehicle agent %d: %w", i, err)
			}
			agents[i] = a
		}
		reg.set(agents)
		svc.agents = agents
	}

	return svc, nil
}

func buildSink(cfg coremetrics.Config) coremetrics.Sink {
	var sinks []coremetrics.Sink
	if cfg.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg)
		if err != nil {
			logger.New("service").Errorf("prom sink: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}
	case 1:
		return sinks[0]
	}
	return metrics.NewMultiSink(sinks...)
}

// Run starts the configured components and blocks until the context is
// canceled. Shutdown stops the scan and the agents without touching the
// in-memory stop queues.
func (s *Service) Run(ctx context.Context) error {
	go s.consumeEvents(ctx)

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	if s.engine != nil {
		go s.engine.Run(ctx)
	}
	if s.agents != nil {
		interval := time.Duration(s.cfg.Fleet.StepIntervalSeconds) * time.Second
		for _, a := range s.agents {
			go a.Run(ctx, interval)
		}
	}
	if s.fairness != nil {
		go s.reportBalance(ctx)
	}
	if s.status != nil {
		go s.reportStatus(ctx)
	}

	<-ctx.Done()
	return nil
}

// consumeEvents turns domain events into structured logs.
func (s *Service) consumeEvents(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case e, ok := <-sub:
			if !ok {
				return
			}
			switch ev := e.(type) {
			case events.AssignmentMade:
				s.log.Debugw("assignment made", map[string]any{
					"event_id": ev.Event.ID, "vehicle": ev.Event.VehicleID,
					"location": ev.Event.Location, "distance": ev.Distance,
				})
			case events.AssignmentSkipped:
				s.log.Debugw("assignment skipped", map[string]any{
					"location": ev.Location, "reason": ev.Reason,
				})
			case events.RouteFallback:
				s.log.Debugw("route fallback", map[string]any{
					"vehicle": ev.Vehicle, "stops": ev.Stops, "reason": ev.Reason,
				})
			case events.StateChange:
				s.log.Debugw("vehicle state change", map[string]any{
					"vehicle": ev.Vehicle, "from": ev.From, "to": ev.To,
				})
			case events.ScanCompleted:
				s.log.Debugw("scan completed", map[string]any{
					"assigned": ev.Assigned, "skipped": ev.Skipped, "duration": ev.Duration.String(),
				})
			}
		case <-ctx.Done():
			return
		}
	}
}

// reportBalance periodically logs how evenly assignments are spread over the
// fleet.
func (s *Service) reportBalance(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			counts, total := s.fairness.Counts()
			if total == 0 {
				continue
			}
			b := fleet.AssignmentBalance(counts)
			s.log.Infof("assignment balance: total=%d mean=%.2f stddev=%.2f max=%d", b.Total, b.Mean, b.StdDev, b.Max)
		case <-ctx.Done():
			return
		}
	}
}

// reportStatus periodically logs the per-vehicle status snapshot.
func (s *Service) reportStatus(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, st := range s.Status() {
				s.log.Debugw("vehicle status", map[string]any{
					"vehicle": st.VehicleID, "state": st.State,
					"queue_depth": st.QueueDepth, "route_remaining": st.RouteRemaining,
					"route_source": st.RouteSource,
				})
			}
		case <-ctx.Done():
			return
		}
	}
}

// Status returns the per-vehicle status snapshot, nil when no fleet runs in
// this process.
func (s *Service) Status() []fleetstatus.Status {
	if s.status == nil {
		return nil
	}
	return s.status.List()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.dispatcherBus != nil {
		s.dispatcherBus.Close()
	}
	if s.vehicleBus != nil {
		s.vehicleBus.Close()
	}
	s.bus.Close()
	return nil
}
