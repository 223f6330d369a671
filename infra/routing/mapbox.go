package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kilianp07/wastefleet/core/model"
	"github.com/kilianp07/wastefleet/core/routing"
	"github.com/kilianp07/wastefleet/infra/logger"
)

// Config defines the Mapbox Directions gateway settings. An empty token
// disables the gateway; vehicles then run permanently on the direct-stop
// fallback.
type Config struct {
	Token          string `json:"token"`
	BaseURL        string `json:"base_url"`
	Profile        string `json:"profile"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.mapbox.com"
	}
	if c.Profile == "" {
		c.Profile = "driving"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 5
	}
}

// Enabled reports whether a gateway credential is configured.
func (c Config) Enabled() bool { return c.Token != "" }

// MapboxPlanner implements routing.Planner against the Mapbox Directions
// API. It is best effort: callers treat every error as a signal to use the
// direct fallback path.
type MapboxPlanner struct {
	cfg     Config
	session *http.Client
	log     logger.Logger
}

// NewMapboxPlanner creates a planner. It returns routing.ErrDisabled when no
// token is configured.
func NewMapboxPlanner(cfg Config) (*MapboxPlanner, error) {
	if !cfg.Enabled() {
		return nil, routing.ErrDisabled
	}
	cfg.SetDefaults()
	return &MapboxPlanner{
		cfg:     cfg,
		session: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:     logger.New("mapbox_planner"),
	}, nil
}

type directionsResponse struct {
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Plan requests a driving path through the stops. The Directions API takes
// lon,lat pairs and returns GeoJSON in the same order, so coordinates are
// swapped both ways.
func (m *MapboxPlanner) Plan(ctx context.Context, stops []model.Coord) (routing.Path, error) {
	if len(stops) < 2 {
		return routing.Path{}, fmt.Errorf("mapbox: need at least two stops, got %d", len(stops))
	}

	coords := make([]string, len(stops))
	for i, s := range stops {
		coords[i] = fmt.Sprintf("%f,%f", s.Lon, s.Lat)
	}
	reqURL := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s",
		m.cfg.BaseURL, m.cfg.Profile, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return routing.Path{}, fmt.Errorf("mapbox: create request: %w", err)
	}
	q := url.Values{}
	q.Set("access_token", m.cfg.Token)
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	req.URL.RawQuery = q.Encode()

	resp, err := m.session.Do(req)
	if err != nil {
		return routing.Path{}, fmt.Errorf("mapbox: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return routing.Path{}, fmt.Errorf("mapbox: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return routing.Path{}, fmt.Errorf("mapbox: decode response: %w", err)
	}
	if len(dr.Routes) == 0 {
		return routing.Path{}, fmt.Errorf("mapbox: no route returned")
	}

	route := dr.Routes[0]
	wp := make([]model.Coord, 0, len(route.Geometry.Coordinates))
	for _, c := range route.Geometry.Coordinates {
		if len(c) < 2 {
			return routing.Path{}, fmt.Errorf("mapbox: malformed coordinate in response")
		}
		wp = append(wp, model.Coord{Lat: c[1], Lon: c[0]})
	}
	return routing.Path{Waypoints: wp, DistanceM: route.Distance, DurationS: route.Duration}, nil
}
