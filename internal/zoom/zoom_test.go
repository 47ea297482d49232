package zoom

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultFactor(t *testing.T) {
	c := NewController(nil)
	assert.Equal(t, 1.0, c.Factor())
}

func TestSetClamps(t *testing.T) {
	c := NewController(nil)

	assert.Equal(t, 2.0, c.Set(2.0))
	assert.Equal(t, MaxFactor, c.Set(10.0))
	assert.Equal(t, MinFactor, c.Set(0.0))
	assert.Equal(t, MinFactor, c.Set(-1.0))
}

func TestInOutReset(t *testing.T) {
	c := NewController(nil)

	assert.InDelta(t, 1.1, c.In(), 1e-9)
	assert.InDelta(t, 1.2, c.In(), 1e-9)
	assert.InDelta(t, 1.1, c.Out(), 1e-9)
	assert.Equal(t, DefaultFactor, c.Reset())
}

func TestInStopsAtMax(t *testing.T) {
	c := NewController(nil)
	c.Set(MaxFactor)
	assert.Equal(t, MaxFactor, c.In())
}

func TestOutStopsAtMin(t *testing.T) {
	c := NewController(nil)
	c.Set(MinFactor)
	assert.Equal(t, MinFactor, c.Out())
}

func TestOnChangeReceivesClampedValue(t *testing.T) {
	var got []float64
	c := NewController(func(f float64) { got = append(got, f) })

	c.Set(2.0)
	c.Set(99.0)
	c.Reset()

	assert.Equal(t, []float64{2.0, MaxFactor, DefaultFactor}, got)
}

func TestConcurrentMutation(t *testing.T) {
	c := NewController(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); c.In() }()
		go func() { defer wg.Done(); c.Out() }()
	}
	wg.Wait()

	f := c.Factor()
	assert.GreaterOrEqual(t, f, MinFactor)
	assert.LessOrEqual(t, f, MaxFactor)
}
