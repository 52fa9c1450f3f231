package collector

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_SingleFlight(t *testing.T) {
	g := NewGate(time.Minute)

	release, err := g.Acquire()
	require.NoError(t, err)

	_, err = g.Acquire()
	assert.ErrorIs(t, err, ErrBusy)

	release(nil)
	release2, err := g.Acquire()
	require.NoError(t, err)
	release2(nil)
}

func TestGate_CooldownAfterQuota(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	g := NewGate(60 * time.Second)
	g.now = func() time.Time { return now }

	release, err := g.Acquire()
	require.NoError(t, err)
	release(fmt.Errorf("fetch vix: %w", ErrQuotaExceeded))

	_, err = g.Acquire()
	assert.ErrorIs(t, err, ErrCoolingDown)
	assert.Equal(t, 60*time.Second, g.Remaining())

	now = now.Add(59 * time.Second)
	_, err = g.Acquire()
	assert.ErrorIs(t, err, ErrCoolingDown)

	now = now.Add(time.Second)
	release, err = g.Acquire()
	require.NoError(t, err)
	assert.Zero(t, g.Remaining())
	release(errors.New("other failure"))

	release, err = g.Acquire()
	require.NoError(t, err, "non-quota errors do not start a cooldown")
	release(nil)
}

func TestGate_ReleaseIsIdempotent(t *testing.T) {
	g := NewGate(0)
	release, err := g.Acquire()
	require.NoError(t, err)
	release(nil)

	other, err := g.Acquire()
	require.NoError(t, err)
	release(nil) // stale release must not free the new holder

	_, err = g.Acquire()
	assert.ErrorIs(t, err, ErrBusy)
	other(nil)
}
