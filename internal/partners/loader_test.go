package partners

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afflux/partner-service/internal/types"
)

type stubConfigStore struct {
	cfg *Config
	err error
}

func (s *stubConfigStore) GetPartnerConfig(ctx context.Context, partnerID int64) (*Config, error) {
	return s.cfg, s.err
}

func (s *stubConfigStore) ListPartnerConfigs(ctx context.Context) ([]*Config, error) {
	if s.cfg == nil {
		return nil, s.err
	}
	return []*Config{s.cfg}, s.err
}

func TestLoaderLoad(t *testing.T) {
	t.Run("active config", func(t *testing.T) {
		loader := NewLoader(&stubConfigStore{cfg: &Config{PartnerID: 7, IsActive: true}})
		cfg, err := loader.Load(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), cfg.PartnerID)
	})

	t.Run("missing config", func(t *testing.T) {
		loader := NewLoader(&stubConfigStore{})
		_, err := loader.Load(context.Background(), 7)
		assert.ErrorIs(t, err, types.ErrConfigNotFound)
		assert.ErrorContains(t, err, "partner 7")
	})

	t.Run("inactive config", func(t *testing.T) {
		loader := NewLoader(&stubConfigStore{cfg: &Config{PartnerID: 7, IsActive: false}})
		_, err := loader.Load(context.Background(), 7)
		assert.ErrorIs(t, err, types.ErrConfigInactive)
	})

	t.Run("store error wrapped", func(t *testing.T) {
		loader := NewLoader(&stubConfigStore{err: errors.New("connection refused")})
		_, err := loader.Load(context.Background(), 7)
		require.Error(t, err)
		assert.ErrorContains(t, err, "fetch config for partner 7")
		assert.NotErrorIs(t, err, types.ErrConfigNotFound)
	})
}

func TestConfigCountryFallback(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "US", cfg.CountryFallback())

	cfg.DefaultValues = map[string]string{"country": "GB"}
	assert.Equal(t, "GB", cfg.CountryFallback())

	cfg.DefaultValues["country"] = ""
	assert.Equal(t, "US", cfg.CountryFallback())
}

func TestFieldMappingsForType(t *testing.T) {
	m := FieldMappings{
		Conversions: map[string]string{"cc": "country"},
		Players:     map[string]string{"pid": "player_id"},
	}

	assert.Equal(t, "country", m.ForType(types.RecordTypeConversions)["cc"])
	assert.Equal(t, "player_id", m.ForType(types.RecordTypePlayers)["pid"])
	assert.Nil(t, m.ForType(types.RecordType("unknown")))
}

func TestDimensionMappingsField(t *testing.T) {
	buyer := "sub1"
	m := DimensionMappings{Buyer: &buyer}

	require.NotNil(t, m.Field(types.DimensionBuyer))
	assert.Equal(t, "sub1", *m.Field(types.DimensionBuyer))
	assert.Nil(t, m.Field(types.DimensionFunnel))
}
