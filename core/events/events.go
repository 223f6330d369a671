package events

import (
	"time"

	"github.com/kilianp07/wastefleet/core/model"
)

// AssignmentMade is published after an assignment event was accepted by the
// bus and the feed entry was reset.
type AssignmentMade struct {
	Event    model.AssignmentEvent
	Distance float64
}

// Skip reasons used by AssignmentSkipped.
const (
	ReasonNoVehicle      = "no_vehicle"
	ReasonPublishFailure = "publish_failure"
)

// AssignmentSkipped is published when an overflowing location could not be
// assigned during a scan. The location stays in the feed and is retried on
// the next cycle.
type AssignmentSkipped struct {
	Location int
	Reason   string
	Time     time.Time
}

// RouteFallback is published when a vehicle adopts the direct-stop fallback
// path instead of a gateway-computed route.
type RouteFallback struct {
	Vehicle int
	Stops   int
	Reason  string
}

// StateChange is published when a vehicle agent transitions between states.
type StateChange struct {
	Vehicle int
	From    string
	To      string
	Time    time.Time
}

// ScanCompleted summarises one assignment engine pass over the feed.
type ScanCompleted struct {
	Assigned int
	Skipped  int
	Duration time.Duration
}
