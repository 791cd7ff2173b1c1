package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAdmitsOncePerInterval(t *testing.T) {
	l := NewLimiter(700*time.Millisecond, 2*time.Second)
	t0 := time.Unix(1_700_000_000, 0)

	assert.Equal(t, Admit, l.Check(1, t0))
	assert.NotEqual(t, Admit, l.Check(1, t0.Add(300*time.Millisecond)))
	assert.NotEqual(t, Admit, l.Check(1, t0.Add(600*time.Millisecond)))
	assert.Equal(t, Admit, l.Check(1, t0.Add(800*time.Millisecond)))
}

func TestLimiterWarnsOncePerWindow(t *testing.T) {
	l := NewLimiter(700*time.Millisecond, 2*time.Second)
	t0 := time.Unix(1_700_000_000, 0)

	assert.Equal(t, Admit, l.Check(1, t0))
	assert.Equal(t, DropAndWarn, l.Check(1, t0.Add(100*time.Millisecond)))
	assert.Equal(t, Drop, l.Check(1, t0.Add(200*time.Millisecond)))
	assert.Equal(t, Drop, l.Check(1, t0.Add(300*time.Millisecond)))

	// Admitted again after the interval, suppressed quickly after, but the warn window is still open.
	assert.Equal(t, Admit, l.Check(1, t0.Add(time.Second)))
	assert.Equal(t, Drop, l.Check(1, t0.Add(1100*time.Millisecond)))

	assert.Equal(t, Admit, l.Check(1, t0.Add(2500*time.Millisecond)))
	assert.Equal(t, DropAndWarn, l.Check(1, t0.Add(2600*time.Millisecond)))
}

func TestLimiterUsersAreIndependent(t *testing.T) {
	l := NewLimiter(700*time.Millisecond, 2*time.Second)
	t0 := time.Unix(1_700_000_000, 0)

	assert.Equal(t, Admit, l.Check(1, t0))
	assert.Equal(t, Admit, l.Check(2, t0))
	assert.Equal(t, DropAndWarn, l.Check(2, t0.Add(10*time.Millisecond)))
}

func TestLimiterExemptsOperator(t *testing.T) {
	l := NewLimiter(700*time.Millisecond, 2*time.Second, 1000)
	t0 := time.Unix(1_700_000_000, 0)
	for i := 0; i < 20; i++ {
		assert.Equal(t, Admit, l.Check(1000, t0.Add(time.Duration(i)*time.Millisecond)))
	}
}

func TestLimiterDisabled(t *testing.T) {
	var l *Limiter
	assert.Equal(t, Admit, l.Check(1, time.Now()))
	assert.Equal(t, Admit, NewLimiter(0, 0).Check(1, time.Now()))
}
