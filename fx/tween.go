// Package fx holds small time-based effects driven once per rendered frame.
package fx

import "math"

// EaseInOutSine interpolates from start to end at progress v in [0, 1].
func EaseInOutSine(start, end, v float64) float64 {
	end -= start
	return -end*0.5*(math.Cos(math.Pi*v)-1) + start
}

// Range is a pair of values a tween swings between.
type Range struct {
	Min, Max float64
}

// Tween ping-pongs forever: up from Min to Max over Duration seconds, then
// back down. Progress is a phase accumulator in [0, 2).
type Tween struct {
	Duration float64
	phase    float64
}

// NewTween returns a tween at the start of its upward leg.
func NewTween(duration float64) *Tween {
	return &Tween{Duration: duration}
}

// Advance moves the tween forward by dt seconds.
// A non-positive duration freezes it at the start.
func (t *Tween) Advance(dt float64) {
	if t.Duration <= 0 || dt <= 0 {
		return
	}
	t.phase = math.Mod(t.phase+dt/t.Duration, 2)
}

// Progress returns the position within the current leg in [0, 1] and
// whether the tween is on its upward leg.
func (t *Tween) Progress() (v float64, up bool) {
	if t.phase < 1 {
		return t.phase, true
	}
	return 2 - t.phase, false
}

// Value returns the eased value of r at the current phase. The ease is
// symmetric, so the downward leg is the upward one mirrored in time.
func (t *Tween) Value(r Range) float64 {
	v, _ := t.Progress()
	return EaseInOutSine(r.Min, r.Max, v)
}
