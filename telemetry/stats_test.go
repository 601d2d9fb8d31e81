package telemetry

import (
	"math"
	"testing"
)

func TestDistribution(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	mean, std, p50, p90 := Distribution(values)

	if math.Abs(mean-5.5) > 0.001 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	// Sample standard deviation of 1..10
	if math.Abs(std-3.02765) > 0.001 {
		t.Errorf("std = %v, want ~3.028", std)
	}
	if p50 < 4 || p50 > 6 {
		t.Errorf("p50 = %v, want within [4, 6]", p50)
	}
	if p90 < 8 || p90 > 10 || p90 < p50 {
		t.Errorf("p90 = %v, want within [8, 10] and >= p50", p90)
	}
}

func TestDistributionDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Distribution(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input was modified: %v", values)
	}
}

func TestDistributionEdgeCases(t *testing.T) {
	mean, std, p50, p90 := Distribution(nil)
	if mean != 0 || std != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}

	mean, std, p50, p90 = Distribution([]float64{7})
	if mean != 7 || std != 0 || p50 != 7 || p90 != 7 {
		t.Errorf("single value = (%v, %v, %v, %v), want (7, 0, 7, 7)", mean, std, p50, p90)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(1.0, 0.25) // 4 ticks per window
	c.SetMode("sequential")

	if c.WindowDurationTicks() != 4 {
		t.Fatalf("ticks per window = %d, want 4", c.WindowDurationTicks())
	}

	for tick := int32(1); tick <= 4; tick++ {
		c.Record(TickSample{
			Tick:           tick,
			Agents:         100,
			Cells:          int(tick) * 10,
			MaxOccupancy:   int(tick),
			Avoiding:       1,
			NearestLookups: int(tick) * 10,
			ExhaustedCells: 1,
			SkippedAgents:  2,
			PoolIdle:       50 - int(tick),
			PoolCapacity:   60,
		})
		if tick < 4 && c.ShouldFlush(tick) {
			t.Fatalf("flush requested early at tick %d", tick)
		}
	}
	if !c.ShouldFlush(4) {
		t.Fatal("expected flush at tick 4")
	}

	ws := c.Flush(4)
	if ws.Ticks != 4 || ws.Mode != "sequential" {
		t.Errorf("ticks=%d mode=%q", ws.Ticks, ws.Mode)
	}
	if math.Abs(ws.CellsMean-25) > 1e-9 {
		t.Errorf("cells mean = %v, want 25", ws.CellsMean)
	}
	if math.Abs(ws.OccupancyMean-4) > 1e-9 {
		t.Errorf("occupancy = %v, want 4", ws.OccupancyMean)
	}
	if ws.MaxOccupancy != 4 || ws.NearestLookups != 100 {
		t.Errorf("max occupancy=%d lookups=%d", ws.MaxOccupancy, ws.NearestLookups)
	}
	if ws.ExhaustedCells != 4 || ws.SkippedAgents != 8 || ws.MinPoolIdle != 46 {
		t.Errorf("pool stats = %+v", ws)
	}
	if math.Abs(ws.SimTimeSec-1.0) > 1e-9 {
		t.Errorf("sim time = %v, want 1", ws.SimTimeSec)
	}

	// Counters reset for the next window.
	next := c.Flush(8)
	if next.Ticks != 0 || next.ExhaustedCells != 0 || next.CellsMean != 0 {
		t.Errorf("collector not reset: %+v", next)
	}
}
