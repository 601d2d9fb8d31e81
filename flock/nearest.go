package flock

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Nearest returns the index of the point closest to from and its distance.
// Ties go to the first point in slice order. An empty slice is a
// configuration error.
func Nearest(points []r3.Vec, from r3.Vec) (int, float64, error) {
	if len(points) == 0 {
		return -1, 0, ErrNoPointsOfInterest
	}
	best := 0
	bestSq := distanceSq(points[0], from)
	for i := 1; i < len(points); i++ {
		if d := distanceSq(points[i], from); d < bestSq {
			best, bestSq = i, d
		}
	}
	return best, math.Sqrt(bestSq), nil
}
