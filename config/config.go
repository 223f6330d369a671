package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/wastefleet/core/dispatch"
	"github.com/kilianp07/wastefleet/core/fleet"
	"github.com/kilianp07/wastefleet/core/metrics"
	"github.com/kilianp07/wastefleet/infra/mqtt"
	"github.com/kilianp07/wastefleet/infra/routing"
	"github.com/kilianp07/wastefleet/infra/store"
)

type Config struct {
	MQTT     mqtt.Config     `json:"mqtt"`
	Dispatch dispatch.Config `json:"dispatch"`
	Fleet    fleet.Config    `json:"fleet"`
	Routing  routing.Config  `json:"routing"`
	Store    store.Config    `json:"store"`
	Metrics  metrics.Config  `json:"metrics"`
}

// Load reads the configuration file, applies WF_-prefixed environment
// overrides (WF_MQTT__BROKER, WF_ROUTING__TOKEN, ...), then defaults and
// validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("WF_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "wf_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Dispatch.SetDefaults()
	cfg.Fleet.SetDefaults()
	cfg.Routing.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Fleet.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
