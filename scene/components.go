// Package scene owns the points of interest the flock reacts to.
package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kind distinguishes targets from obstacles.
type Kind uint8

const (
	KindTarget Kind = iota
	KindObstacle
)

func (k Kind) String() string {
	switch k {
	case KindTarget:
		return "target"
	case KindObstacle:
		return "obstacle"
	}
	return "unknown"
}

// Position is the current world position of a point of interest.
type Position struct {
	X, Y, Z float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Orbit moves a point on a horizontal circle around Center with an optional
// vertical bob at twice the orbit frequency.
type Orbit struct {
	Center r3.Vec
	Radius float64
	Speed  float64 // radians per second
	Phase  float64 // radians
	Bob    float64 // vertical amplitude
}

// At returns the orbit position at time t.
func (o Orbit) At(t float64) Position {
	a := o.Phase + o.Speed*t
	return Position{
		X: o.Center.X + o.Radius*math.Cos(a),
		Y: o.Center.Y + o.Bob*math.Sin(2*a),
		Z: o.Center.Z + o.Radius*math.Sin(a),
	}
}

// Interest tags an entity as a target or an obstacle.
type Interest struct {
	Kind Kind
}
