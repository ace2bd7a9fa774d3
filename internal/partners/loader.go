package partners

import (
	"context"
	"fmt"

	"github.com/afflux/partner-service/internal/types"
)

// ConfigStore is the storage collaborator the loader reads from.
// Implementations return (nil, nil) when no config row exists.
type ConfigStore interface {
	GetPartnerConfig(ctx context.Context, partnerID int64) (*Config, error)
	ListPartnerConfigs(ctx context.Context) ([]*Config, error)
}

// Loader fetches partner configurations. It is called exactly once per batch;
// all per-record components receive the already-loaded config so a config
// change mid-batch never affects records already normalized.
type Loader struct {
	store ConfigStore
}

// NewLoader creates a config loader backed by the given store
func NewLoader(store ConfigStore) *Loader {
	return &Loader{store: store}
}

// Load fetches the configuration for a partner. Fails with
// types.ErrConfigNotFound if no row exists, types.ErrConfigInactive if the
// partner is disabled. No side effects.
func (l *Loader) Load(ctx context.Context, partnerID int64) (*Config, error) {
	cfg, err := l.store.GetPartnerConfig(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("fetch config for partner %d: %w", partnerID, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("partner %d: %w", partnerID, types.ErrConfigNotFound)
	}
	if !cfg.IsActive {
		return nil, fmt.Errorf("partner %d: %w", partnerID, types.ErrConfigInactive)
	}
	return cfg, nil
}
