package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/wastefleet/core/metrics"
	"github.com/kilianp07/wastefleet/core/model"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	assignments  *prometheus.CounterVec
	skips        *prometheus.CounterVec
	fairness     *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	positions    *prometheus.CounterVec
	scanDuration prometheus.Histogram
	scanAssigned prometheus.Gauge
}

// NewPromSink registers dispatch metrics on the default Prometheus
// registerer. The metrics server is started separately.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assignments_total",
			Help: "Total number of location-to-vehicle assignments",
		}, []string{"vehicle_id"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assignment_skips_total",
			Help: "Overflowing locations left unassigned, by reason",
		}, []string{"reason"}),
		fairness: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fairness_rejections_total",
			Help: "Vehicles excluded from selection by the fairness cap",
		}, []string{"vehicle_id"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routing_fallbacks_total",
			Help: "Route computations that degraded to the direct stop list",
		}, []string{"vehicle_id"}),
		positions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "position_reports_total",
			Help: "Accepted vehicle position reports",
		}, []string{"vehicle_id"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Duration of one full fill-feed scan",
			Buckets: prometheus.DefBuckets,
		}),
		scanAssigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scan_assignments",
			Help: "Assignments produced by the most recent scan",
		}),
	}

	collectors := []prometheus.Collector{
		s.assignments, s.skips, s.fairness, s.fallbacks, s.positions, s.scanDuration, s.scanAssigned,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *PromSink) RecordAssignment(ev model.AssignmentEvent, _ float64) error {
	s.assignments.WithLabelValues(strconv.Itoa(ev.VehicleID)).Inc()
	return nil
}

func (s *PromSink) RecordSkip(_ int, reason string) error {
	s.skips.WithLabelValues(reason).Inc()
	return nil
}

func (s *PromSink) RecordFairnessRejection(vehicle int) error {
	s.fairness.WithLabelValues(strconv.Itoa(vehicle)).Inc()
	return nil
}

func (s *PromSink) RecordRouteFallback(vehicle int) error {
	s.fallbacks.WithLabelValues(strconv.Itoa(vehicle)).Inc()
	return nil
}

func (s *PromSink) RecordScan(d time.Duration, assigned int) error {
	s.scanDuration.Observe(d.Seconds())
	s.scanAssigned.Set(float64(assigned))
	return nil
}

func (s *PromSink) RecordPosition(p model.VehiclePosition) error {
	s.positions.WithLabelValues(strconv.Itoa(p.VehicleID)).Inc()
	return nil
}
