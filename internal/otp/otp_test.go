package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	mgr := NewManager()

	t.Run("ValueRange", func(t *testing.T) {
		for i := 0; i < 10000; i++ {
			p, err := mgr.Generate()
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p.Code, 100000)
			assert.LessOrEqual(t, p.Code, 999999)
			assert.Len(t, p.String(), 6)
		}
	})

	t.Run("ExpiryWindow", func(t *testing.T) {
		p, err := mgr.Generate()
		require.NoError(t, err)
		assert.Equal(t, p.CreatedAt.Add(10*time.Minute), p.ExpiresAt)
		assert.False(t, p.Consumed)
	})
}

func TestConsume(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	newManagerAt := func(offset time.Duration) *Manager {
		return NewManagerWithClock(func() time.Time { return base.Add(offset) })
	}

	generate := func(t *testing.T) *Passcode {
		p, err := newManagerAt(0).Generate()
		require.NoError(t, err)
		return p
	}

	t.Run("RoundTrip", func(t *testing.T) {
		p := generate(t)
		mgr := newManagerAt(time.Minute)
		require.NoError(t, mgr.Consume(p, p.Code))
		assert.True(t, p.Consumed)
	})

	t.Run("SecondUseRejected", func(t *testing.T) {
		p := generate(t)
		mgr := newManagerAt(time.Minute)
		require.NoError(t, mgr.Consume(p, p.Code))
		assert.ErrorIs(t, mgr.Consume(p, p.Code), ErrAlreadyUsed)
	})

	t.Run("ExpiredRejectedEvenWithCorrectValue", func(t *testing.T) {
		p := generate(t)
		mgr := newManagerAt(10*time.Minute + time.Second)
		assert.ErrorIs(t, mgr.Consume(p, p.Code), ErrExpired)
		assert.False(t, p.Consumed)
	})

	t.Run("BoundaryIsStillValid", func(t *testing.T) {
		// Expiry is strictly after the window, not at it.
		p := generate(t)
		mgr := newManagerAt(10 * time.Minute)
		assert.NoError(t, mgr.Consume(p, p.Code))
	})

	t.Run("MismatchRejected", func(t *testing.T) {
		p := generate(t)
		mgr := newManagerAt(time.Minute)
		wrong := p.Code + 1
		if wrong > 999999 {
			wrong = 100000
		}
		assert.ErrorIs(t, mgr.Consume(p, wrong), ErrMismatch)
		assert.False(t, p.Consumed)
	})

	t.Run("AlreadyUsedWinsOverExpired", func(t *testing.T) {
		// Check order: re-use reported before expiry so the caller
		// gets the most specific error.
		p := generate(t)
		require.NoError(t, newManagerAt(time.Minute).Consume(p, p.Code))
		mgr := newManagerAt(time.Hour)
		assert.ErrorIs(t, mgr.Consume(p, p.Code), ErrAlreadyUsed)
	})

	t.Run("ExpiredWinsOverMismatch", func(t *testing.T) {
		p := generate(t)
		mgr := newManagerAt(time.Hour)
		assert.ErrorIs(t, mgr.Consume(p, p.Code+1), ErrExpired)
	})
}

func TestIsExpired(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	p, err := NewManagerWithClock(func() time.Time { return base }).Generate()
	require.NoError(t, err)

	before := NewManagerWithClock(func() time.Time { return base.Add(9 * time.Minute) })
	assert.False(t, before.IsExpired(p))

	after := NewManagerWithClock(func() time.Time { return base.Add(11 * time.Minute) })
	assert.True(t, after.IsExpired(p))
}
