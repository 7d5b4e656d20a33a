//go:build integration

package assessment_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterisk/internal/assessment"
	platformredis "siterisk/internal/platform/redis"
	"siterisk/pkg/testutil/containers"
)

func TestCatalogCache(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client := &platformredis.Client{Client: rc.Client}
	cache := assessment.NewCatalogCache(client, time.Minute, logger)

	_, ok := cache.Get(ctx)
	assert.False(t, ok, "cold cache should miss")

	meta := assessment.Metadata{
		AssessmentSections: []assessment.Section{
			{ID: 1, SectionKey: "site_readiness", SectionName: "Site Readiness", DisplayOrder: 1},
		},
		RiskFactors: []assessment.RiskFactor{
			{ID: 1, AssessmentSectionID: 1, RiskFactorCode: "SR-1", RiskFactorText: "Staff turnover", DisplayOrder: 1, IsActive: true},
		},
	}
	cache.Set(ctx, meta)

	got, ok := cache.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, meta, *got)

	cache.Invalidate(ctx)
	_, ok = cache.Get(ctx)
	assert.False(t, ok, "invalidated cache should miss")
}

func TestCatalogCacheExpiry(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client := &platformredis.Client{Client: rc.Client}
	cache := assessment.NewCatalogCache(client, time.Second, logger)

	cache.Set(ctx, assessment.Metadata{})
	_, ok := cache.Get(ctx)
	require.True(t, ok)

	time.Sleep(1500 * time.Millisecond)
	_, ok = cache.Get(ctx)
	assert.False(t, ok, "entry should expire with the TTL")
}
