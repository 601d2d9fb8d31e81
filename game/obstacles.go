package game

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/scene"
)

// dropObstacle places a fixed obstacle at the flock's current centroid.
func (g *Game) dropObstacle() {
	agents := g.sim.Agents()
	if len(agents) == 0 {
		return
	}
	var sum r3.Vec
	for i := range agents {
		sum = r3.Add(sum, agents[i].Position)
	}
	at := r3.Scale(1/float64(len(agents)), sum)

	e := g.scene.Add(scene.KindObstacle, scene.Orbit{Center: at})
	g.dropped = append(g.dropped, e)
	g.scene.Update(0)
	g.logger.Info("obstacle dropped", "tick", g.sim.Tick(), "x", at.X, "y", at.Y, "z", at.Z)
}

// liftObstacle removes the most recently dropped obstacle. Obstacles from the
// config are never removed, so the scene always keeps at least one.
func (g *Game) liftObstacle() {
	for len(g.dropped) > 0 {
		e := g.dropped[len(g.dropped)-1]
		g.dropped = g.dropped[:len(g.dropped)-1]
		if kind, ok := g.scene.KindOf(e); !ok || kind != scene.KindObstacle {
			continue
		}
		g.scene.Remove(e)
		g.scene.Update(0)
		g.logger.Info("obstacle lifted", "tick", g.sim.Tick(), "remaining", len(g.scene.Obstacles()))
		return
	}
}
