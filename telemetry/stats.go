package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TickSample is what one simulation tick reports to the collector.
type TickSample struct {
	Tick           int32
	Agents         int
	Cells          int
	MaxOccupancy   int
	Avoiding       int
	NearestLookups int
	ExhaustedCells int
	SkippedAgents  int
	RaceLosses     int64
	PoolIdle       int
	PoolCapacity   int
}

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Mode            string  `csv:"mode"`
	Ticks           int     `csv:"ticks"`

	Agents int `csv:"agents"`

	// Cell distribution over the window
	CellsMean     float64 `csv:"cells_mean"`
	CellsStd      float64 `csv:"cells_std"`
	CellsP90      float64 `csv:"cells_p90"`
	OccupancyMean float64 `csv:"occupancy_mean"` // agents per cell
	MaxOccupancy  int     `csv:"max_occupancy"`

	// Steering
	AvoidingMean   float64 `csv:"avoiding_mean"`
	NearestLookups int     `csv:"nearest_lookups"`

	// Pool health
	ExhaustedCells int   `csv:"exhausted_cells"`
	SkippedAgents  int   `csv:"skipped_agents"`
	RaceLosses     int64 `csv:"race_losses"`
	MinPoolIdle    int   `csv:"min_pool_idle"`
	PoolCapacity   int   `csv:"pool_capacity"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.String("mode", s.Mode),
		slog.Int("agents", s.Agents),
		slog.Float64("cells_mean", s.CellsMean),
		slog.Float64("occupancy_mean", s.OccupancyMean),
		slog.Int("max_occupancy", s.MaxOccupancy),
		slog.Float64("avoiding_mean", s.AvoidingMean),
		slog.Int("exhausted_cells", s.ExhaustedCells),
		slog.Int("skipped_agents", s.SkippedAgents),
		slog.Int("min_pool_idle", s.MinPoolIdle),
	)
}

// Distribution summarizes a set of values. Empty input yields zeros.
func Distribution(values []float64) (mean, std, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0], 0, sorted[0], sorted[0]
	}
	mean, std = stat.MeanStdDev(sorted, nil)
	p50 = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
	p90 = stat.Quantile(0.9, stat.LinInterp, sorted, nil)
	return mean, std, p50, p90
}
