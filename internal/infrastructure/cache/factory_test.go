package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCacheManager(t *testing.T) {
	mr := miniredis.RunT(t)

	cm, err := NewCacheManager(testRedisConfig(mr.Addr()), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cm.HealthCheck(ctx))
	assert.False(t, mr.Exists(healthCheckKey))

	require.NoError(t, cm.Cache.Set(ctx, RiskAssessmentPrefix+"ord-1", "{}", time.Minute))
	allowed, err := cm.RateLimiter.Allow(ctx, "operator-1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.NotNil(t, cm.PoolStats())

	require.NoError(t, cm.Close())
	assert.Error(t, cm.HealthCheck(ctx))
}
