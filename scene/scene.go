package scene

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/config"
)

// Scene holds targets and obstacles as entities and moves them each tick.
type Scene struct {
	world *ecs.World
	time  float64

	mapper  *ecs.Map3[Position, Orbit, Interest]
	filter  *ecs.Filter3[Position, Orbit, Interest]
	kindMap *ecs.Map[Interest]

	// Refreshed by Update, reused across ticks.
	targets   []r3.Vec
	obstacles []r3.Vec
}

// New builds a scene from config and computes the initial positions.
func New(cfg config.SceneConfig) *Scene {
	world := ecs.NewWorld()
	s := &Scene{
		world:   world,
		mapper:  ecs.NewMap3[Position, Orbit, Interest](world),
		filter:  ecs.NewFilter3[Position, Orbit, Interest](world),
		kindMap: ecs.NewMap[Interest](world),
	}
	for _, c := range cfg.Targets {
		s.Add(KindTarget, orbitFromConfig(c))
	}
	for _, c := range cfg.Obstacles {
		s.Add(KindObstacle, orbitFromConfig(c))
	}
	s.Update(0)
	return s
}

func orbitFromConfig(c config.InterestConfig) Orbit {
	return Orbit{
		Center: r3.Vec{X: c.Center[0], Y: c.Center[1], Z: c.Center[2]},
		Radius: c.OrbitRadius,
		Speed:  c.OrbitSpeed,
		Phase:  c.Phase,
		Bob:    c.Bob,
	}
}

// Add creates a point of interest. Its position is valid after the next Update.
func (s *Scene) Add(kind Kind, o Orbit) ecs.Entity {
	pos := o.At(s.time)
	in := Interest{Kind: kind}
	return s.mapper.NewEntity(&pos, &o, &in)
}

// Remove deletes a point of interest.
func (s *Scene) Remove(e ecs.Entity) {
	if s.world.Alive(e) {
		s.world.RemoveEntity(e)
	}
}

// KindOf returns the kind of a live entity.
func (s *Scene) KindOf(e ecs.Entity) (Kind, bool) {
	if !s.world.Alive(e) {
		return 0, false
	}
	in := s.kindMap.Get(e)
	if in == nil {
		return 0, false
	}
	return in.Kind, true
}

// Update advances scene time by dt, moves every orbit and refreshes the
// target and obstacle lists.
func (s *Scene) Update(dt float64) {
	s.time += dt
	s.targets = s.targets[:0]
	s.obstacles = s.obstacles[:0]

	query := s.filter.Query()
	for query.Next() {
		pos, orbit, in := query.Get()
		*pos = orbit.At(s.time)
		switch in.Kind {
		case KindTarget:
			s.targets = append(s.targets, pos.Vec())
		case KindObstacle:
			s.obstacles = append(s.obstacles, pos.Vec())
		}
	}
}

// Targets returns target positions as of the last Update.
func (s *Scene) Targets() []r3.Vec {
	return s.targets
}

// Obstacles returns obstacle positions as of the last Update.
func (s *Scene) Obstacles() []r3.Vec {
	return s.obstacles
}

// Time returns the accumulated scene time in seconds.
func (s *Scene) Time() float64 {
	return s.time
}
