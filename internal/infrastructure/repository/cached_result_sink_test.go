package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/errors"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
)

type mockAssessmentStore struct {
	mock.Mock
}

func (m *mockAssessmentStore) UpsertRiskAssessment(ctx context.Context, a *risk.Assessment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockAssessmentStore) GetRiskAssessment(ctx context.Context, orderID string) (*risk.Assessment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*risk.Assessment), args.Error(1)
}

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) RecordCacheLookup(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func setupCachedSink(t *testing.T) (*CachedResultSink, *mockAssessmentStore, *countingObserver, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache(&config.RedisConfig{
		URL:          mr.Addr(),
		PoolSize:     2,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	store := &mockAssessmentStore{}
	observer := &countingObserver{}
	return NewCachedResultSink(store, c, 0, observer, nil), store, observer, mr
}

func TestCachedResultSink_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("writes store then cache", func(t *testing.T) {
		sink, store, _, mr := setupCachedSink(t)
		a := testAssessment()
		store.On("UpsertRiskAssessment", ctx, a).Return(nil).Once()

		require.NoError(t, sink.UpsertRiskAssessment(ctx, a))

		raw, err := mr.Get("ptd:risk:ord-1")
		require.NoError(t, err)
		var cached risk.Assessment
		require.NoError(t, json.Unmarshal([]byte(raw), &cached))
		assert.Equal(t, a.OverallScore, cached.OverallScore)
		assert.Equal(t, cache.RiskAssessmentTTL, mr.TTL("ptd:risk:ord-1"))
		store.AssertExpectations(t)
	})

	t.Run("store failure is returned and nothing is cached", func(t *testing.T) {
		sink, store, _, mr := setupCachedSink(t)
		a := testAssessment()
		store.On("UpsertRiskAssessment", ctx, a).Return(ErrForeignKey).Once()

		assert.ErrorIs(t, sink.UpsertRiskAssessment(ctx, a), ErrForeignKey)
		assert.False(t, mr.Exists("ptd:risk:ord-1"))
	})

	t.Run("cache outage does not fail the write", func(t *testing.T) {
		sink, store, _, mr := setupCachedSink(t)
		a := testAssessment()
		store.On("UpsertRiskAssessment", ctx, a).Return(nil).Once()
		mr.Close()

		assert.NoError(t, sink.UpsertRiskAssessment(ctx, a))
		store.AssertExpectations(t)
	})
}

func TestCachedResultSink_GetLatestAssessment(t *testing.T) {
	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		sink, store, observer, mr := setupCachedSink(t)
		a := testAssessment()
		store.On("GetRiskAssessment", ctx, "ord-1").Return(a, nil).Once()

		got, err := sink.GetLatestAssessment(ctx, "ord-1")
		require.NoError(t, err)
		assert.Equal(t, a, got)
		assert.True(t, mr.Exists("ptd:risk:ord-1"))

		got, err = sink.GetLatestAssessment(ctx, "ord-1")
		require.NoError(t, err)
		assert.Equal(t, a.Notes, got.Notes)
		assert.True(t, a.AssessedAt.Equal(got.AssessedAt))

		assert.Equal(t, 1, observer.hits)
		assert.Equal(t, 1, observer.misses)
		store.AssertExpectations(t)
	})

	t.Run("not found in either", func(t *testing.T) {
		sink, store, observer, _ := setupCachedSink(t)
		store.On("GetRiskAssessment", ctx, "ord-x").Return(nil, errors.ErrAssessmentNotFound).Once()

		_, err := sink.GetLatestAssessment(ctx, "ord-x")
		assert.ErrorIs(t, err, errors.ErrAssessmentNotFound)
		assert.Equal(t, 1, observer.misses)
	})

	t.Run("cache outage falls back to store", func(t *testing.T) {
		sink, store, _, mr := setupCachedSink(t)
		a := testAssessment()
		store.On("GetRiskAssessment", ctx, "ord-1").Return(a, nil).Once()
		mr.Close()

		got, err := sink.GetLatestAssessment(ctx, "ord-1")
		require.NoError(t, err)
		assert.Equal(t, a, got)
	})
}
