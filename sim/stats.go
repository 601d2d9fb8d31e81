package sim

import (
	"log/slog"

	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/telemetry"
)

// TickStats describes one completed tick.
type TickStats struct {
	Tick   int32
	Mode   Mode
	Agents int

	Cells          int // cells steered
	MaxOccupancy   int // largest cell population
	Avoiding       int // cells that took the obstacle branch
	NearestLookups int // interest resolutions, one per steered cell

	ExhaustedCells int   // cells that could not get a bucket
	SkippedAgents  int   // agents left unmoved in those cells
	RaceLosses     int64 // parallel installs that lost to another worker

	PoolIdle     int // idle buckets at the end of steering, before release
	PoolCapacity int
}

// Sample converts the tick into a telemetry sample.
func (t TickStats) Sample() telemetry.TickSample {
	return telemetry.TickSample{
		Tick:           t.Tick,
		Agents:         t.Agents,
		Cells:          t.Cells,
		MaxOccupancy:   t.MaxOccupancy,
		Avoiding:       t.Avoiding,
		NearestLookups: t.NearestLookups,
		ExhaustedCells: t.ExhaustedCells,
		SkippedAgents:  t.SkippedAgents,
		RaceLosses:     t.RaceLosses,
		PoolIdle:       t.PoolIdle,
		PoolCapacity:   t.PoolCapacity,
	}
}

// LogValue implements slog.LogValuer.
func (t TickStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", int(t.Tick)),
		slog.String("mode", t.Mode.String()),
		slog.Int("agents", t.Agents),
		slog.Int("cells", t.Cells),
		slog.Int("max_occupancy", t.MaxOccupancy),
		slog.Int("avoiding", t.Avoiding),
		slog.Int("exhausted_cells", t.ExhaustedCells),
		slog.Int("skipped_agents", t.SkippedAgents),
		slog.Int64("race_losses", t.RaceLosses),
		slog.Int("pool_idle", t.PoolIdle),
	)
}

// tally accumulates per-cell results.
type tally struct {
	cells        int
	avoiding     int
	maxOccupancy int
	err          error
}

func (t *tally) add(res flock.CellResult) {
	t.cells++
	if res.Avoiding {
		t.avoiding++
	}
	t.maxOccupancy = max(t.maxOccupancy, res.Count)
}

func (t *tally) fail(err error) {
	if t.err == nil {
		t.err = err
	}
}

func (t *tally) merge(o *tally) {
	t.cells += o.cells
	t.avoiding += o.avoiding
	t.maxOccupancy = max(t.maxOccupancy, o.maxOccupancy)
	t.fail(o.err)
}

// workerScratch is per-worker state, padded to avoid false sharing.
type workerScratch struct {
	tally
	_ [64]byte
}
