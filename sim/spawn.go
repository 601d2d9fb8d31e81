package sim

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/flock"
)

// forward is the heading given to an agent spawned exactly at the center.
var forward = r3.Vec{Z: 1}

// Spawn places count agents uniformly inside the sphere of the given radius
// around center. Each agent starts facing away from the center.
func Spawn(rng *rand.Rand, count int, center r3.Vec, radius float64) []flock.Agent {
	agents := make([]flock.Agent, count)
	for i := range agents {
		offset := r3.Scale(radius, insideUnitSphere(rng))
		heading := flock.Normalize(offset)
		if heading == (r3.Vec{}) {
			heading = forward
		}
		agents[i] = flock.Agent{
			Position: r3.Add(center, offset),
			Heading:  heading,
		}
	}
	return agents
}

// insideUnitSphere samples the unit ball by rejection from the enclosing cube.
func insideUnitSphere(rng *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{
			X: rng.Float64()*2 - 1,
			Y: rng.Float64()*2 - 1,
			Z: rng.Float64()*2 - 1,
		}
		if r3.Norm2(v) <= 1 {
			return v
		}
	}
}
