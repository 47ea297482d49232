// Package zoom holds the UI zoom factor as explicit application state.
//
// The desktop shell used to keep this in a hidden process-wide global;
// making it a Controller threaded through the control handlers keeps the
// state testable and lets the UI subscribe to changes instead of polling.
package zoom

import "sync"

// Zoom factor bounds and steps. The factor is a multiplier: 1.0 is actual
// size.
const (
	MinFactor     = 0.5
	MaxFactor     = 3.0
	DefaultFactor = 1.0
	Step          = 0.1
)

// Controller is a concurrency-safe zoom level. The zero value is not
// usable; use NewController.
type Controller struct {
	mu       sync.Mutex
	factor   float64
	onChange func(float64)
}

// NewController creates a controller at the default factor. onChange, if
// non-nil, is invoked (outside the lock) after every mutation with the new
// factor; the UI layer uses it to apply the zoom to the webview.
func NewController(onChange func(float64)) *Controller {
	return &Controller{factor: DefaultFactor, onChange: onChange}
}

// Factor returns the current zoom factor.
func (c *Controller) Factor() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.factor
}

// Set clamps factor to [MinFactor, MaxFactor], stores it, and returns the
// clamped value.
func (c *Controller) Set(factor float64) float64 {
	return c.apply(factor)
}

// In increases the zoom by one step.
func (c *Controller) In() float64 {
	return c.apply(c.Factor() + Step)
}

// Out decreases the zoom by one step.
func (c *Controller) Out() float64 {
	return c.apply(c.Factor() - Step)
}

// Reset restores the default factor.
func (c *Controller) Reset() float64 {
	return c.apply(DefaultFactor)
}

func (c *Controller) apply(factor float64) float64 {
	if factor < MinFactor {
		factor = MinFactor
	}
	if factor > MaxFactor {
		factor = MaxFactor
	}

	c.mu.Lock()
	c.factor = factor
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(factor)
	}
	return factor
}
