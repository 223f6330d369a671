package routing

import (
	"context"
	"errors"

	"github.com/kilianp07/wastefleet/core/model"
)

// ErrDisabled is returned by planners that are configured off, for example
// when no gateway credential is present.
var ErrDisabled = errors.New("routing: planner disabled")

// Path is an ordered sequence of waypoints with optional trip metadata.
type Path struct {
	Waypoints []model.Coord
	DistanceM float64
	DurationS float64
}

// Planner computes a travel path through the given stops. The first stop is
// the vehicle's current position. Planners are best effort: any error means
// the caller falls back to visiting the stops directly.
type Planner interface {
	Plan(ctx context.Context, stops []model.Coord) (Path, error)
}

// DirectPath builds the fallback path: the stops themselves, in order,
// without intermediate points and without the current position.
func DirectPath(stops []model.Coord) Path {
	wp := make([]model.Coord, len(stops))
	copy(wp, stops)
	return Path{Waypoints: wp}
}

// NopPlanner is a Planner that is permanently disabled.
type NopPlanner struct{}

func (NopPlanner) Plan(context.Context, []model.Coord) (Path, error) {
	return Path{}, ErrDisabled
}
