package model

import (
	"math"
	"time"
)

// Coord is a WGS84 latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether both components are finite and within range.
func (c Coord) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// DistanceTo returns the Euclidean distance between two coordinates.
// Assignment selection only compares relative distances, so a planar
// approximation is sufficient.
func (c Coord) DistanceTo(o Coord) float64 {
	return math.Hypot(c.Lat-o.Lat, c.Lon-o.Lon)
}

// FillReading is one fill-level observation for a monitored location.
// Readings are transient: the feed is re-read on every scan cycle.
type FillReading struct {
	Location int       `json:"location_id"`
	Percent  int       `json:"fill_pct"`
	At       time.Time `json:"timestamp"`
}

// Overflowing reports whether the reading exceeds the dispatch threshold.
func (r FillReading) Overflowing(threshold float64) bool {
	return float64(r.Percent)/100 > threshold
}

// VehiclePosition is the latest reported position of a collection vehicle.
// Only the most recent value per vehicle is retained.
type VehiclePosition struct {
	VehicleID int       `json:"vehicle_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Coord returns the position as a coordinate pair.
func (p VehiclePosition) Coord() Coord {
	return Coord{Lat: p.Latitude, Lon: p.Longitude}
}

// Valid reports whether the report carries a usable vehicle id and coordinates.
func (p VehiclePosition) Valid() bool {
	return p.VehicleID >= 0 && p.Coord().Valid()
}

// AssignmentEvent binds one overflowing location to one collection vehicle.
// Events are created exactly once per successful assignment and are immutable.
type AssignmentEvent struct {
	ID        string    `json:"event_id"`
	VehicleID int       `json:"target_vehicle_id"`
	Latitude  float64   `json:"event_latitude"`
	Longitude float64   `json:"event_longitude"`
	Location  int       `json:"originating_location_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Coord returns the event position as a coordinate pair.
func (e AssignmentEvent) Coord() Coord {
	return Coord{Lat: e.Latitude, Lon: e.Longitude}
}
