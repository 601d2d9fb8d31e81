// Package main runs the same flock under each execution strategy and reports
// tick timing and how far the strategies drift apart. With -baseline every
// strategy is also compared against a snapshot saved by an earlier run.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

// benchRow is one strategy's result.
type benchRow struct {
	Mode        string  `csv:"mode"`
	Agents      int     `csv:"agents"`
	Ticks       int32   `csv:"ticks"`
	WallMS      int64   `csv:"wall_ms"`
	AvgTickUS   int64   `csv:"avg_tick_us"`
	P95TickUS   int64   `csv:"p95_tick_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	PopulatePct float64 `csv:"populate_pct"`
	SteerPct    float64 `csv:"steer_pct"`
	MaxDrift    float64 `csv:"max_drift"` // largest position difference from the first mode
	BaseDrift   float64 `csv:"baseline_drift"`
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	modes := flag.String("modes", "sequential,parallel,per_agent", "Comma-separated strategies to run")
	ticks := flag.Int("ticks", 600, "Ticks per run")
	agents := flag.Int("agents", 0, "Population size (0 = use config)")
	seed := flag.Int64("seed", 42, "Spawn seed shared by every run")
	outputDir := flag.String("output", "", "Output directory for per-mode telemetry and bench.csv")
	baselinePath := flag.String("baseline", "", "Snapshot from an earlier run to compare against (sets seed, ticks, agents, weights and cell radius)")
	verbose := flag.Bool("v", false, "Log simulation events")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var ref *telemetry.Snapshot
	if *baselinePath != "" {
		snap, err := loadBaseline(*baselinePath)
		if err != nil {
			slog.Error("failed to load baseline", "path", *baselinePath, "error", err)
			os.Exit(1)
		}
		ref = snap
		*seed = snap.Seed
		*ticks = int(snap.Tick)
		*agents = len(snap.Agents)
	}

	var (
		rows     []benchRow
		baseline []flock.Agent
	)
	for _, mode := range strings.Split(*modes, ",") {
		mode = strings.TrimSpace(mode)
		if mode == "" {
			continue
		}

		row, final, err := runMode(*configPath, mode, *agents, *seed, *ticks, *outputDir, ref, logger)
		if err != nil {
			slog.Error("benchmark failed", "mode", mode, "error", err)
			os.Exit(1)
		}
		if baseline == nil {
			baseline = final
		} else {
			row.MaxDrift = maxDrift(baseline, final)
		}
		if ref != nil {
			row.BaseDrift = maxDrift(ref.Population(), final)
		}
		rows = append(rows, row)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tAGENTS\tTICKS\tWALL\tAVG TICK\tP95 TICK\tTICKS/S\tPOPULATE%\tSTEER%\tDRIFT\tBASELINE")
	for _, r := range rows {
		base := "-"
		if ref != nil {
			base = fmt.Sprintf("%.3g", r.BaseDrift)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%dms\t%dus\t%dus\t%.1f\t%.1f\t%.1f\t%.3g\t%s\n",
			r.Mode, r.Agents, r.Ticks, r.WallMS, r.AvgTickUS, r.P95TickUS, r.TicksPerSec, r.PopulatePct, r.SteerPct, r.MaxDrift, base)
	}
	tw.Flush()

	if *outputDir != "" {
		path := filepath.Join(*outputDir, "bench.csv")
		f, err := os.Create(path)
		if err != nil {
			slog.Error("failed to create bench.csv", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := gocsv.MarshalFile(&rows, f); err != nil {
			slog.Error("failed to write bench.csv", "error", err)
			os.Exit(1)
		}
		fmt.Printf("\nResults saved to: %s\n", path)
	}
}

// runMode runs one strategy from a fresh config and returns its final population.
func runMode(configPath, mode string, agents int, seed int64, ticks int, outputDir string, ref *telemetry.Snapshot, logger *slog.Logger) (benchRow, []flock.Agent, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return benchRow{}, nil, err
	}
	if ref != nil {
		cfg.Flock.SeparationWeight = ref.Params.SeparationWeight
		cfg.Flock.AlignmentWeight = ref.Params.AlignmentWeight
		cfg.Flock.TargetWeight = ref.Params.TargetWeight
		cfg.Flock.ObstacleAversionDistance = ref.Params.ObstacleAversionDistance
		cfg.Flock.MoveSpeed = ref.Params.MoveSpeed
		cfg.Flock.CellRadius = ref.CellRadius
	}
	if agents > 0 {
		if err := cfg.Merge([]byte(fmt.Sprintf("spawn: {count: %d}", agents))); err != nil {
			return benchRow{}, nil, err
		}
	}

	opts := game.Options{
		Seed:     seed,
		Mode:     mode,
		Headless: true,
		Logger:   logger,
	}
	if outputDir != "" {
		opts.OutputDir = filepath.Join(outputDir, mode)
	}
	g, err := game.NewGameWithOptions(cfg, opts)
	if err != nil {
		return benchRow{}, nil, err
	}
	defer g.Unload()

	start := time.Now()
	for int(g.Tick()) < ticks {
		g.UpdateHeadless()
		if err := g.Err(); err != nil {
			return benchRow{}, nil, err
		}
	}
	wall := time.Since(start)

	if ref != nil {
		sc := g.Scene()
		if err := ref.CompareInterests(sc.Targets(), sc.Obstacles(), 1e-6); err != nil {
			return benchRow{}, nil, fmt.Errorf("scene does not match the baseline (orbits or fixed_dt changed): %w", err)
		}
	}

	perf := g.PerfStats()
	csv := perf.ToCSV(g.Tick(), mode)
	row := benchRow{
		Mode:        mode,
		Agents:      len(g.Simulation().Agents()),
		Ticks:       g.Tick(),
		WallMS:      wall.Milliseconds(),
		AvgTickUS:   csv.AvgTickUS,
		P95TickUS:   csv.P95TickUS,
		TicksPerSec: csv.TicksPerSec,
		PopulatePct: csv.PopulatePct,
		SteerPct:    csv.SteerPct,
	}
	return row, g.Simulation().Snapshot(nil), nil
}

// loadBaseline reads a snapshot that a fresh run can reproduce.
func loadBaseline(path string) (*telemetry.Snapshot, error) {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	if snap.Seed == 0 {
		return nil, fmt.Errorf("snapshot %s was spawned from a time-based seed", path)
	}
	if !(snap.CellRadius > 0) {
		return nil, fmt.Errorf("snapshot %s records no cell radius", path)
	}
	if snap.Tick <= 0 || len(snap.Agents) == 0 {
		return nil, fmt.Errorf("snapshot %s holds no simulated ticks", path)
	}
	return snap, nil
}

// maxDrift is the largest distance between matching agents of two runs.
func maxDrift(a, b []flock.Agent) float64 {
	var worst float64
	for i := range min(len(a), len(b)) {
		worst = max(worst, r3.Norm(r3.Sub(a[i].Position, b[i].Position)))
	}
	return worst
}
