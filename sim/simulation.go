// Package sim drives the flock one tick at a time under a chosen execution
// strategy, owning the population, the bucket pool and the worker goroutines.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/telemetry"
)

// Options are the optional collaborators of a Simulation.
type Options struct {
	Logger *slog.Logger             // defaults to slog.Default()
	Perf   *telemetry.PerfCollector // phase timing, may be nil
	Rng    *rand.Rand               // spawn randomness; seeded from config when nil
	Agents []flock.Agent            // initial population; spawned from config when nil
}

// Simulation is not safe for concurrent use. Step, SetMode, SetInterests and
// SetParams must be called from one goroutine.
type Simulation struct {
	logger *slog.Logger
	perf   *telemetry.PerfCollector
	mode   Mode
	tick   int32

	agents    []flock.Agent
	targets   []r3.Vec
	obstacles []r3.Vec
	steering  flock.Steering

	arena    *flock.BucketPool
	cells    *flock.CellMap
	shared   *flock.ConcurrentCellMap
	cellList []flock.Cell

	workers *workerPool
	scratch []workerScratch

	// Bound once so dispatching a phase does not allocate.
	populateFn chunkFunc
	steerFn    chunkFunc
	perAgentFn chunkFunc
	dt         float64
}

// New builds a simulation from cfg. The config is validated first.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := ParseMode(cfg.Runtime.Mode)
	if err != nil {
		return nil, err
	}
	hasher, err := flock.NewHasher(cfg.Flock.CellRadius)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	agents := opts.Agents
	if agents == nil {
		rng := opts.Rng
		if rng == nil {
			seed := cfg.Spawn.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rng = rand.New(rand.NewSource(seed))
		}
		center := r3.Vec{X: cfg.Spawn.Center[0], Y: cfg.Spawn.Center[1], Z: cfg.Spawn.Center[2]}
		agents = Spawn(rng, cfg.Spawn.Count, center, cfg.Spawn.Radius)
	}
	if len(agents) > math.MaxInt32 {
		return nil, &flock.ConfigurationError{Field: "spawn.count", Reason: "too many agents"}
	}

	poolSize := cfg.Derived.PoolSize
	if opts.Agents != nil && cfg.Runtime.BucketPoolCapacity <= 0 {
		poolSize = max(len(agents), 1)
	}
	arena := flock.NewBucketPool(poolSize, cfg.Runtime.BucketCapacity)
	concurrency := max(cfg.Derived.Concurrency, 1)

	s := &Simulation{
		logger:   logger,
		perf:     opts.Perf,
		mode:     mode,
		agents:   agents,
		steering: flock.Steering{Params: cfg.Params()},
		arena:    arena,
		cells:    flock.NewCellMap(hasher, arena),
		shared:   flock.NewConcurrentCellMap(hasher, flock.NewSyncPool(arena), cfg.Derived.Shards),
		workers:  newWorkerPool(concurrency),
		scratch:  make([]workerScratch, concurrency),
	}
	s.populateFn = s.populateChunk
	s.steerFn = s.steerChunk
	s.perAgentFn = s.perAgentChunk

	if err := s.SetInterests(centers(cfg.Scene.Targets), centers(cfg.Scene.Obstacles)); err != nil {
		return nil, err
	}

	logger.Info("simulation created",
		"mode", mode,
		"agents", len(agents),
		"pool", poolSize,
		"workers", concurrency,
		"shards", s.shared.Shards(),
		"cell_radius", hasher.Radius(),
	)
	return s, nil
}

func centers(list []config.InterestConfig) []r3.Vec {
	out := make([]r3.Vec, len(list))
	for i, c := range list {
		out[i] = r3.Vec{X: c.Center[0], Y: c.Center[1], Z: c.Center[2]}
	}
	return out
}

// SetInterests replaces the target and obstacle positions used by the next tick.
// Both sets must be non-empty.
func (s *Simulation) SetInterests(targets, obstacles []r3.Vec) error {
	if len(targets) == 0 {
		return &flock.ConfigurationError{Field: "targets", Reason: "no points of interest"}
	}
	if len(obstacles) == 0 {
		return &flock.ConfigurationError{Field: "obstacles", Reason: "no points of interest"}
	}
	s.targets = append(s.targets[:0], targets...)
	s.obstacles = append(s.obstacles[:0], obstacles...)
	s.steering.Targets = s.targets
	s.steering.Obstacles = s.obstacles
	return nil
}

// SetParams replaces the steering weights.
func (s *Simulation) SetParams(p flock.Params) {
	s.steering.Params = p
}

// Params returns the current steering weights.
func (s *Simulation) Params() flock.Params {
	return s.steering.Params
}

// SetMode switches the execution strategy from the next tick on.
func (s *Simulation) SetMode(m Mode) error {
	m, err := ParseMode(string(m))
	if err != nil {
		return err
	}
	if m != s.mode {
		s.logger.Info("mode changed", "from", s.mode, "to", m, "tick", s.tick)
	}
	s.mode = m
	return nil
}

// Mode returns the current execution strategy.
func (s *Simulation) Mode() Mode {
	return s.mode
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int32 {
	return s.tick
}

// Agents returns the population. The slice is owned by the simulation and
// rewritten by every Step.
func (s *Simulation) Agents() []flock.Agent {
	return s.agents
}

// Snapshot copies the population into dst, reusing its storage.
func (s *Simulation) Snapshot(dst []flock.Agent) []flock.Agent {
	return append(dst[:0], s.agents...)
}

// Pool returns the bucket arena shared by both cell maps.
func (s *Simulation) Pool() flock.Pool {
	return s.arena
}

// Close stops the worker goroutines.
func (s *Simulation) Close() {
	s.workers.stop()
}

// Step advances every agent by dt seconds.
// Exhausted cells are logged and counted; they never fail the tick.
func (s *Simulation) Step(dt float64) (TickStats, error) {
	var (
		st  TickStats
		err error
	)
	switch s.mode {
	case ModeSequential:
		st, err = s.stepSequential(dt)
	case ModeParallel:
		st, err = s.stepParallel(dt)
	case ModePerAgent:
		st, err = s.stepPerAgent(dt)
	}

	s.tick++
	st.Tick = s.tick
	st.Mode = s.mode
	st.Agents = len(s.agents)
	st.PoolCapacity = s.arena.Capacity()

	if st.ExhaustedCells > 0 {
		s.logger.Warn("bucket pool exhausted",
			"tick", s.tick,
			"cells", st.ExhaustedCells,
			"agents", st.SkippedAgents,
			"capacity", st.PoolCapacity,
		)
	}
	if err != nil {
		return st, fmt.Errorf("tick %d: %w", s.tick, err)
	}
	return st, nil
}

func (s *Simulation) phase(name string) {
	if s.perf != nil {
		s.perf.StartPhase(name)
	}
}

func (s *Simulation) stepSequential(dt float64) (TickStats, error) {
	s.phase(telemetry.PhasePopulate)
	for i := range s.agents {
		// Exhaustion is tallied by the map.
		_ = s.cells.Insert(int32(i), s.agents[i].Position)
	}

	s.phase(telemetry.PhaseSteer)
	var t tally
	s.cells.ForEachCell(func(_ flock.CellID, b *flock.Bucket) {
		res, err := s.steering.SteerCell(s.agents, b.Members, dt)
		if err != nil {
			t.fail(err)
			return
		}
		t.add(res)
	})

	drops := s.cells.Dropped()
	st := s.collect(&t, drops)
	st.PoolIdle = s.arena.Idle()

	s.phase(telemetry.PhaseCleanup)
	s.cells.Clear()
	return st, t.err
}

func (s *Simulation) stepParallel(dt float64) (TickStats, error) {
	s.dt = dt
	s.resetScratch()

	s.phase(telemetry.PhasePopulate)
	s.workers.run(len(s.agents), s.populateFn)

	s.phase(telemetry.PhaseSteer)
	s.cellList = s.shared.AppendCells(s.cellList[:0])
	s.workers.run(len(s.cellList), s.steerFn)

	t := s.mergeScratch()
	st := s.collect(&t, s.shared.Dropped())
	st.RaceLosses = s.shared.RaceLosses()
	st.PoolIdle = s.arena.Idle()

	s.phase(telemetry.PhaseCleanup)
	s.shared.Clear()
	clear(s.cellList)
	return st, t.err
}

func (s *Simulation) stepPerAgent(dt float64) (TickStats, error) {
	s.dt = dt
	s.resetScratch()

	s.phase(telemetry.PhaseSteer)
	s.workers.run(len(s.agents), s.perAgentFn)

	t := s.mergeScratch()
	st := s.collect(&t, flock.Drops{})
	st.PoolIdle = s.arena.Idle()
	return st, t.err
}

func (s *Simulation) populateChunk(_, start, end int) {
	for i := start; i < end; i++ {
		_ = s.shared.Insert(int32(i), s.agents[i].Position)
	}
}

// steerChunk steers cellList[start:end]. Members of distinct cells are
// disjoint, so no two workers write the same agent.
func (s *Simulation) steerChunk(worker, start, end int) {
	t := &s.scratch[worker].tally
	for _, c := range s.cellList[start:end] {
		res, err := s.steering.SteerCell(s.agents, c.Bucket.Members, s.dt)
		if err != nil {
			t.fail(err)
			continue
		}
		t.add(res)
	}
}

func (s *Simulation) perAgentChunk(worker, start, end int) {
	t := &s.scratch[worker].tally
	for i := start; i < end; i++ {
		res, err := s.steering.SteerAgent(&s.agents[i], s.dt)
		if err != nil {
			t.fail(err)
			continue
		}
		t.add(res)
	}
}

func (s *Simulation) resetScratch() {
	for i := range s.scratch {
		s.scratch[i].tally = tally{}
	}
}

func (s *Simulation) mergeScratch() tally {
	var t tally
	for i := range s.scratch {
		t.merge(&s.scratch[i].tally)
	}
	return t
}

func (s *Simulation) collect(t *tally, drops flock.Drops) TickStats {
	return TickStats{
		Cells:          t.cells,
		MaxOccupancy:   t.maxOccupancy,
		Avoiding:       t.avoiding,
		NearestLookups: t.cells,
		ExhaustedCells: drops.Cells,
		SkippedAgents:  drops.Agents,
	}
}
