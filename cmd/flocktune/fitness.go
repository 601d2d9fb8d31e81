package main

import (
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params          *ParamVector
	ticks           int32
	seeds           []int64
	baseConfig      *config.Config
	statsWindow     float64
	targetOccupancy float64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, ticks int32, seeds []int64, baseCfg *config.Config, targetOccupancy float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:          params,
		ticks:           ticks,
		seeds:           seeds,
		baseConfig:      baseCfg,
		statsWindow:     2.0,
		targetOccupancy: targetOccupancy,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated mean flock quality over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	qualities := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			qualities[idx] = fe.computeQuality(fe.runSimulation(x, s))
		}(i, seed)
	}
	wg.Wait()

	quality := stat.Mean(qualities, nil)

	fe.mu.Lock()
	fe.lastQuality = quality
	fe.mu.Unlock()

	return -quality
}

// runSimulation executes a single headless run and returns its stats windows.
// A run that fails contributes no windows.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) []telemetry.WindowStats {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	g, err := game.NewGameWithOptions(cfg, game.Options{
		Seed:           seed,
		Headless:       true,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
	})
	if err != nil {
		return nil
	}
	defer g.Unload()

	var windows []telemetry.WindowStats
	g.SetStatsCallback(func(stats telemetry.WindowStats) {
		windows = append(windows, stats)
	})

	for g.Tick() < fe.ticks {
		g.UpdateHeadless()
		if g.Err() != nil {
			return nil
		}
	}
	return windows
}

// copyConfig creates a deep copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Scene.Targets = slices.Clone(fe.baseConfig.Scene.Targets)
	cfg.Scene.Obstacles = slices.Clone(fe.baseConfig.Scene.Obstacles)
	return &cfg
}

// Quality component weights.
const (
	qualityWeightOccupancy = 0.40
	qualityWeightClearance = 0.35
	qualityWeightStability = 0.25

	qualityWarmupWindows = 1 // skip first N windows while the flock forms
)

// computeQuality scores a run in [0, 1]. A good flock packs cells near the
// target occupancy, keeps clear of obstacles and holds its shape.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	var occupancySum, clearanceSum float64
	cells := make([]float64, 0, len(valid))
	for _, w := range valid {
		if w.Agents == 0 || w.OccupancyMean <= 0 {
			continue
		}
		logErr := math.Log(w.OccupancyMean / fe.targetOccupancy)
		occupancySum += math.Exp(-logErr * logErr)
		if w.CellsMean > 0 {
			// Share of cells not steering away from an obstacle.
			clearanceSum += 1 - min(w.AvoidingMean/w.CellsMean, 1)
		}
		cells = append(cells, w.CellsMean)
	}
	if len(cells) == 0 {
		return 0
	}
	n := float64(len(cells))

	stability := 0.0
	if len(cells) >= 2 {
		c := cv(cells)
		stability = math.Exp(-c * c)
	}

	quality := qualityWeightOccupancy*occupancySum/n +
		qualityWeightClearance*clearanceSum/n +
		qualityWeightStability*stability
	return min(max(quality, 0), 1)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	mean, std := stat.MeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}
