package metrics

import (
	"time"

	"github.com/kilianp07/wastefleet/core/model"
)

// Sink records dispatch observability events. Implementations must be safe
// for concurrent use; recording failures never influence dispatch decisions.
type Sink interface {
	// RecordAssignment records a successful assignment together with the
	// distance between the alert and the selected vehicle.
	RecordAssignment(ev model.AssignmentEvent, distance float64) error
	// RecordSkip records an overflowing location left unassigned.
	RecordSkip(location int, reason string) error
	// RecordFairnessRejection records a vehicle excluded by the fairness cap.
	RecordFairnessRejection(vehicle int) error
	// RecordRouteFallback records a vehicle adopting the direct-stop path.
	RecordRouteFallback(vehicle int) error
	// RecordScan records the duration of one full feed scan and the number
	// of assignments it produced.
	RecordScan(d time.Duration, assigned int) error
	// RecordPosition records an accepted vehicle position report.
	RecordPosition(p model.VehiclePosition) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignment(model.AssignmentEvent, float64) error { return nil }
func (NopSink) RecordSkip(int, string) error                          { return nil }
func (NopSink) RecordFairnessRejection(int) error                     { return nil }
func (NopSink) RecordRouteFallback(int) error                         { return nil }
func (NopSink) RecordScan(time.Duration, int) error                   { return nil }
func (NopSink) RecordPosition(model.VehiclePosition) error            { return nil }
