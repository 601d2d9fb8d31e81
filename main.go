package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/gdamore/tcell/v2"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/observer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	view := flag.String("view", "window", "Presentation: window, term or none (headless)")
	headless := flag.Bool("headless", false, "Run without graphics (same as -view none)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for flock snapshots (bookmarks, F5 / s)")
	seed := flag.Int64("seed", 0, "Spawn seed (0 = use config, time-based if unset there too)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster headless runs)")
	mode := flag.String("mode", "", "Execution strategy: sequential, parallel or per_agent (empty = use config)")
	observeAddr := flag.String("observe-addr", "", "Serve live telemetry over websocket at this address, path /ws (empty = off)")
	observeAny := flag.Bool("observe-any", false, "Accept observer connections from non-loopback peers")

	flag.Parse()

	if *headless {
		*view = "none"
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up slog (JSON to stdout for structured logging). The terminal view
	// owns stdout, so logs go to stderr there.
	out := os.Stdout
	if *view == "term" {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, nil))
	slog.SetDefault(logger)

	var hub *observer.Hub
	stopObserver := func() {}
	if *observeAddr != "" {
		hub = observer.NewHub(logger, *observeAny)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := hub.Serve(ctx, *observeAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("observer server stopped", "addr", *observeAddr, "error", err)
			}
		}()
		stopObserver = func() {
			cancel()
			<-done
		}
		slog.Info("observer listening", "addr", *observeAddr)
	}

	opts := game.Options{
		Seed:           *seed,
		Mode:           *mode,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		SnapshotDir:    *snapshotDir,
		Observer:       hub,
		Headless:       *view != "window",
		StepsPerUpdate: *stepsPerUpdate,
		Logger:         logger,
	}

	code := 0
	switch *view {
	case "none":
		code = runHeadless(cfg, opts, *maxTicks)
	case "term":
		code = runTerminal(cfg, opts, *maxTicks)
	case "window":
		code = runWindow(cfg, opts, *maxTicks)
	default:
		slog.Error("unknown view", "view", *view)
		code = 2
	}
	stopObserver()
	os.Exit(code)
}

func runHeadless(cfg *config.Config, opts game.Options, maxTicks int) int {
	g, err := game.NewGameWithOptions(cfg, opts)
	if err != nil {
		slog.Error("failed to create game", "error", err)
		return 1
	}
	defer g.Unload()

	slog.Info("starting headless simulation",
		"seed", cfg.Spawn.Seed,
		"mode", cfg.Runtime.Mode,
		"max_ticks", maxTicks,
		"steps_per_update", opts.StepsPerUpdate,
	)

	for {
		g.UpdateHeadless()
		if err := g.Err(); err != nil {
			return 1
		}
		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return 0
		}
	}
}

func runTerminal(cfg *config.Config, opts game.Options, maxTicks int) int {
	screen, err := tcell.NewScreen()
	if err != nil {
		slog.Error("failed to create terminal screen", "error", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		slog.Error("failed to initialise terminal", "error", err)
		return 1
	}

	g, err := game.NewGameWithOptions(cfg, opts)
	if err != nil {
		screen.Fini()
		slog.Error("failed to create game", "error", err)
		return 1
	}

	err = g.RunTerminal(screen, maxTicks)
	screen.Fini()
	g.Unload()
	if err != nil {
		slog.Error("terminal run failed", "error", err)
		return 1
	}
	return 0
}

func runWindow(cfg *config.Config, opts game.Options, maxTicks int) int {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Flock")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(cfg, opts)
	if err != nil {
		slog.Error("failed to create game", "error", err)
		return 1
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			break
		}
	}
	if g.Err() != nil {
		return 1
	}
	return 0
}
