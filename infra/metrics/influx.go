package metrics

import (
	"context"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/wastefleet/core/metrics"
	"github.com/kilianp07/wastefleet/core/model"
	"github.com/kilianp07/wastefleet/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx_sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails, so metrics never block dispatch.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

func (s *InfluxSink) RecordAssignment(ev model.AssignmentEvent, distance float64) error {
	p := write.NewPointWithMeasurement("assignment_event").
		AddTag("vehicle_id", strconv.Itoa(ev.VehicleID)).
		AddTag("location_id", strconv.Itoa(ev.Location)).
		AddField("latitude", ev.Latitude).
		AddField("longitude", ev.Longitude).
		AddField("distance", distance).
		SetTime(ev.Timestamp)
	return s.write(p)
}

func (s *InfluxSink) RecordSkip(location int, reason string) error {
	p := write.NewPointWithMeasurement("assignment_skip").
		AddTag("location_id", strconv.Itoa(location)).
		AddTag("reason", reason).
		AddField("count", 1).
		SetTime(time.Now())
	return s.write(p)
}

func (s *InfluxSink) RecordFairnessRejection(vehicle int) error {
	p := write.NewPointWithMeasurement("fairness_rejection").
		AddTag("vehicle_id", strconv.Itoa(vehicle)).
		AddField("count", 1).
		SetTime(time.Now())
	return s.write(p)
}

func (s *InfluxSink) RecordRouteFallback(vehicle int) error {
	p := write.NewPointWithMeasurement("routing_fallback").
		AddTag("vehicle_id", strconv.Itoa(vehicle)).
		AddField("count", 1).
		SetTime(time.Now())
	return s.write(p)
}

func (s *InfluxSink) RecordScan(d time.Duration, assigned int) error {
	p := write.NewPointWithMeasurement("feed_scan").
		AddField("duration_ms", float64(d.Milliseconds())).
		AddField("assigned", assigned).
		SetTime(time.Now())
	return s.write(p)
}

func (s *InfluxSink) RecordPosition(pos model.VehiclePosition) error {
	p := write.NewPointWithMeasurement("vehicle_position").
		AddTag("vehicle_id", strconv.Itoa(pos.VehicleID)).
		AddField("latitude", pos.Latitude).
		AddField("longitude", pos.Longitude).
		SetTime(pos.Timestamp)
	return s.write(p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
