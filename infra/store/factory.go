package store

import (
	"fmt"

	corestore "github.com/kilianp07/wastefleet/core/store"
)

// New builds the FeedStore selected by the configuration.
func New(cfg Config) (corestore.FeedStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendMinio:
		return NewGoldStore(cfg)
	case BackendMemory:
		return NewMemoryStoreFromConfig(cfg), nil
	}
	return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
}
