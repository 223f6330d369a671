package metrics

import (
	"errors"
	"time"

	coremetrics "github.com/kilianp07/wastefleet/core/metrics"
	"github.com/kilianp07/wastefleet/core/model"
)

// MultiSink fans every record out to all configured sinks and joins their
// errors.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink creates a sink wrapping the given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) each(f func(coremetrics.Sink) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := f(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordAssignment(ev model.AssignmentEvent, distance float64) error {
	return m.each(func(s coremetrics.Sink) error { return s.RecordAssignment(ev, distance) })
}

func (m *MultiSink) RecordSkip(location int, reason string) error {
	return m.each(func(s coremetrics.Sink) error { return s.RecordSkip(location, reason) })
}

func (m *MultiSink) RecordFairnessRejection(vehicle int) error {
	return m.each(func(s coremetrics.Sink) error { return s.RecordFairnessRejection(vehicle) })
}

func (m *MultiSink) RecordRouteFallback(vehicle int) error {
	return m.each(func(s coremetrics.Sink) error { return s.RecordRouteFallback(vehicle) })
}

func (m *MultiSink) RecordScan(d time.Duration, assigned int) error {
	return m.each(func(s coremetrics.Sink) error { return s.RecordScan(d, assigned) })
}

func (m *MultiSink) RecordPosition(p model.VehiclePosition) error {
	return m.each(func(s coremetrics.Sink) error { return s.RecordPosition(p) })
}
