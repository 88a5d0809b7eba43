package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestContext returns a context cancelled when the test ends or after 30s
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// AssertTimeWithin fails the test when actual and expected differ by more than delta.
// Postgres truncates timestamps to microseconds so exact equality rarely holds.
func AssertTimeWithin(t *testing.T, actual, expected time.Time, delta time.Duration) bool {
	t.Helper()
	return assert.WithinDuration(t, expected, actual, delta)
}

// AssertDecimal compares decimals by value, so "1500" and "1500.00" match
func AssertDecimal(t *testing.T, expected string, actual decimal.Decimal) bool {
	t.Helper()
	want := decimal.RequireFromString(expected)
	return assert.Truef(t, want.Equal(actual), "expected %s, got %s", want, actual)
}

// Clock is a manually advanced time source for code that takes a now func
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func Ptr[T any](v T) *T {
	return &v
}
