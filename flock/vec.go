// Package flock implements the spatial-hash flocking core: cell hashing,
// pooled buckets, sequential and sharded cell maps, and the per-cell steering update.
package flock

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Agent is one boid. Heading is unit length by convention.
type Agent struct {
	Position r3.Vec
	Heading  r3.Vec
}

// Normalize returns v scaled to unit length.
// The zero vector is passed through unchanged instead of producing NaNs
// (r3.Unit returns NaN for it).
func Normalize(v r3.Vec) r3.Vec {
	n2 := v.X*v.X + v.Y*v.Y + v.Z*v.Z
	if n2 == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/math.Sqrt(n2), v)
}

// distanceSq returns the squared distance between a and b.
func distanceSq(a, b r3.Vec) float64 {
	return r3.Norm2(r3.Sub(a, b))
}
