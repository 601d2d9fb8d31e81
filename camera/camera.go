// Package camera provides an orbiting viewpoint around the flock.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// maxPitch keeps the camera off the poles where the up vector degenerates.
const maxPitch = math.Pi/2 - 0.01

// near is the closest depth that still projects.
const near = 0.1

var worldUp = r3.Vec{Y: 1}

// Camera orbits Target at Distance. Yaw 0 and pitch 0 put the eye on +Z
// looking toward -Z.
type Camera struct {
	Target   r3.Vec
	Yaw      float64 // radians around +Y
	Pitch    float64 // radians above the horizon
	Distance float64
	FovY     float64 // vertical field of view, degrees

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float64

	// Distance constraints
	MinDistance, MaxDistance float64

	home pose
}

// pose is the orientation restored by Reset.
type pose struct {
	Yaw, Pitch, Distance float64
}

// New creates a camera looking at target from the given distance.
func New(viewportW, viewportH float64, target r3.Vec, distance float64) *Camera {
	c := &Camera{
		Target:      target,
		Pitch:       0.35,
		Distance:    distance,
		FovY:        45,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
		MinDistance: distance / 10,
		MaxDistance: distance * 10,
	}
	c.home = pose{Yaw: c.Yaw, Pitch: c.Pitch, Distance: c.Distance}
	return c
}

// Eye returns the camera position in world coordinates.
func (c *Camera) Eye() r3.Vec {
	cp := math.Cos(c.Pitch)
	dir := r3.Vec{
		X: cp * math.Sin(c.Yaw),
		Y: math.Sin(c.Pitch),
		Z: cp * math.Cos(c.Yaw),
	}
	return r3.Add(c.Target, r3.Scale(c.Distance, dir))
}

// Basis returns the right, up and forward unit vectors of the view.
func (c *Camera) Basis() (right, up, fwd r3.Vec) {
	fwd = r3.Unit(r3.Sub(c.Target, c.Eye()))
	right = r3.Unit(r3.Cross(fwd, worldUp))
	up = r3.Cross(right, fwd)
	return right, up, fwd
}

// WorldToScreen projects p with a perspective divide.
// ok is false when p is behind the near plane or outside the viewport.
func (c *Camera) WorldToScreen(p r3.Vec) (sx, sy, depth float64, ok bool) {
	right, up, fwd := c.Basis()
	d := r3.Sub(p, c.Eye())

	depth = r3.Dot(d, fwd)
	if depth <= near {
		return 0, 0, depth, false
	}

	f := (c.ViewportH / 2) / math.Tan(c.FovY*math.Pi/360)
	sx = c.ViewportW/2 + r3.Dot(d, right)*f/depth
	sy = c.ViewportH/2 - r3.Dot(d, up)*f/depth
	ok = sx >= 0 && sx < c.ViewportW && sy >= 0 && sy < c.ViewportH
	return sx, sy, depth, ok
}

// Orbit rotates the camera around its target.
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw = math.Mod(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

// SetDistance sets the orbit distance, clamped to min/max.
func (c *Camera) SetDistance(d float64) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy multiplies the magnification by factor (factor > 1 moves closer).
func (c *Camera) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float64) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Reset returns the camera to its initial pose.
func (c *Camera) Reset() {
	c.Yaw = c.home.Yaw
	c.Pitch = c.home.Pitch
	c.Distance = c.home.Distance
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
