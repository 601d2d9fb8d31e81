package telemetry

// Collector accumulates tick samples within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64
	mode                string

	// Current window tracking
	windowStartTick int32
	ticks           int
	cells           []float64
	avoiding        []float64

	agents         int
	maxOccupancy   int
	nearestLookups int
	exhaustedCells int
	skippedAgents  int
	raceLosses     int64
	minPoolIdle    int
	poolCapacity   int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(1)
	if dt > 0 {
		ticksPerWindow = max(int32(windowDurationSec/dt), 1)
	}
	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		cells:               make([]float64, 0, ticksPerWindow),
		avoiding:            make([]float64, 0, ticksPerWindow),
		minPoolIdle:         -1,
	}
}

// SetMode labels subsequent windows with the run mode.
func (c *Collector) SetMode(mode string) {
	c.mode = mode
}

// Record adds one tick to the current window.
func (c *Collector) Record(s TickSample) {
	c.ticks++
	c.cells = append(c.cells, float64(s.Cells))
	c.avoiding = append(c.avoiding, float64(s.Avoiding))
	c.agents = s.Agents
	c.maxOccupancy = max(c.maxOccupancy, s.MaxOccupancy)
	c.nearestLookups += s.NearestLookups
	c.exhaustedCells += s.ExhaustedCells
	c.skippedAgents += s.SkippedAgents
	c.raceLosses += s.RaceLosses
	if c.minPoolIdle < 0 || s.PoolIdle < c.minPoolIdle {
		c.minPoolIdle = s.PoolIdle
	}
	c.poolCapacity = s.PoolCapacity
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32) WindowStats {
	cellsMean, cellsStd, _, cellsP90 := Distribution(c.cells)
	avoidMean, _, _, _ := Distribution(c.avoiding)

	var occupancy float64
	if cellsMean > 0 {
		occupancy = float64(c.agents) / cellsMean
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,
		Mode:            c.mode,
		Ticks:           c.ticks,
		Agents:          c.agents,
		CellsMean:       cellsMean,
		CellsStd:        cellsStd,
		CellsP90:        cellsP90,
		OccupancyMean:   occupancy,
		MaxOccupancy:    c.maxOccupancy,
		AvoidingMean:    avoidMean,
		NearestLookups:  c.nearestLookups,
		ExhaustedCells:  c.exhaustedCells,
		SkippedAgents:   c.skippedAgents,
		RaceLosses:      c.raceLosses,
		MinPoolIdle:     max(c.minPoolIdle, 0),
		PoolCapacity:    c.poolCapacity,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.ticks = 0
	c.cells = c.cells[:0]
	c.avoiding = c.avoiding[:0]
	c.maxOccupancy = 0
	c.nearestLookups = 0
	c.exhaustedCells = 0
	c.skippedAgents = 0
	c.raceLosses = 0
	c.minPoolIdle = -1

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
