package store

import (
	"context"

	"github.com/kilianp07/wastefleet/core/model"
)

// FeedStore gives access to the externally refreshed fill-level feed and the
// location/position registry produced by the upstream pipeline. The
// assignment engine is the only writer of the feed; ResetFill writes a single
// index back to zero after a successful assignment.
type FeedStore interface {
	// ReadFill returns the current fill percentage (0-100) per location index.
	ReadFill(ctx context.Context) ([]int, error)
	// ResetFill sets the fill level of one location back to zero.
	ResetFill(ctx context.Context, location int) error
	// ReadPositions returns the registry of location coordinates, index
	// aligned with the fill feed. The first entries also seed vehicle homes.
	ReadPositions(ctx context.Context) ([]model.Coord, error)
}
