// Package dimensions resolves raw partner tag values (buyer, funnel, traffic
// source, campaign) into canonical dimension ids, creating missing dimensions
// on first sighting.
package dimensions

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

// Store is the persistence collaborator. EnsureDimension must be an atomic
// insert-if-absent keyed on (kind, partnerID, originalValue): two concurrent
// resolutions of the same new value must converge on one row. Find returns
// (nil, nil) when no row exists.
type Store interface {
	FindDimension(ctx context.Context, kind types.DimensionKind, partnerID int64, originalValue string) (*types.Dimension, error)
	EnsureDimension(ctx context.Context, dim *types.Dimension) (*types.Dimension, error)
}

// Resolver performs get-or-create resolution of the four dimension kinds for
// one partner. Dimensions are optional annotations, never required: a missing
// mapping or an absent raw field resolves to nil without error.
type Resolver struct {
	store Store
	cfg   *partners.Config
}

// NewResolver creates a resolver bound to one partner's config
func NewResolver(store Store, cfg *partners.Config) *Resolver {
	return &Resolver{store: store, cfg: cfg}
}

// Resolve resolves all four dimension kinds for a mapped record. The kinds
// are mutually independent and are resolved concurrently.
func (r *Resolver) Resolve(ctx context.Context, record types.RawRecord) (*types.DimensionIDs, error) {
	var ids types.DimensionIDs
	targets := map[types.DimensionKind]**string{
		types.DimensionBuyer:    &ids.BuyerID,
		types.DimensionFunnel:   &ids.FunnelID,
		types.DimensionSource:   &ids.SourceID,
		types.DimensionCampaign: &ids.CampaignID,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range types.DimensionKinds {
		kind := kind
		out := targets[kind]
		g.Go(func() error {
			id, err := r.ResolveKind(gctx, kind, record)
			if err != nil {
				return err
			}
			*out = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ids, nil
}

// ResolveKind resolves one dimension kind. Returns nil immediately when the
// partner has no mapping for the kind or the mapped field is absent/empty.
func (r *Resolver) ResolveKind(ctx context.Context, kind types.DimensionKind, record types.RawRecord) (*string, error) {
	field := r.cfg.DimensionMappings.Field(kind)
	if field == nil || *field == "" {
		return nil, nil
	}
	value, ok := record.Get(*field)
	if !ok {
		return nil, nil
	}

	existing, err := r.store.FindDimension(ctx, kind, r.cfg.PartnerID, value)
	if err != nil {
		return nil, fmt.Errorf("find %s dimension: %w", kind, err)
	}
	if existing != nil {
		return &existing.ID, nil
	}

	created, err := r.store.EnsureDimension(ctx, &types.Dimension{
		Kind:          kind,
		Name:          fmt.Sprintf("%s %s: %s", r.cfg.PartnerName, kind.Label(), value),
		PartnerID:     r.cfg.PartnerID,
		OriginalValue: value,
		OriginalField: *field,
		IsActive:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s dimension: %w", kind, err)
	}
	return &created.ID, nil
}
