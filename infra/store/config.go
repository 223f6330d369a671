package store

import "fmt"

// Backends supported by the feed store factory.
const (
	BackendMinio  = "minio"
	BackendMemory = "memory"
)

// Config defines the gold-bucket object store settings.
type Config struct {
	Backend      string `json:"backend"`
	Endpoint     string `json:"endpoint"`
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	UseSSL       bool   `json:"use_ssl"`
	Bucket       string `json:"bucket"`
	FillKey      string `json:"fill_key"`
	PositionsKey string `json:"positions_key"`
	// Locations seeds the memory backend when no object store is available.
	Locations [][2]float64 `json:"locations"`
}

// SetDefaults applies the original gold-layer layout.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMinio
	}
	if c.Bucket == "" {
		c.Bucket = "gold"
	}
	if c.FillKey == "" {
		c.FillKey = "sensor/sensor_data.txt"
	}
	if c.PositionsKey == "" {
		c.PositionsKey = "sensor/sensor_position.json"
	}
}

// Validate checks backend-specific requirements.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMinio:
		if c.Endpoint == "" {
			return fmt.Errorf("store: endpoint is required for the minio backend")
		}
	case BackendMemory:
		if len(c.Locations) == 0 {
			return fmt.Errorf("store: locations are required for the memory backend")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Backend)
	}
	return nil
}
