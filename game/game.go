// Package game wires the simulation, scene, telemetry and presentation layers
// into a runnable application.
package game

import (
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/fx"
	"github.com/pthm-cable/flock/observer"
	"github.com/pthm-cable/flock/renderer"
	"github.com/pthm-cable/flock/scene"
	"github.com/pthm-cable/flock/sim"
	"github.com/pthm-cable/flock/telemetry"
	"github.com/pthm-cable/flock/ui"
)

const (
	windowTitle    = "Flock"
	maxStepsPerUpd = 10
	perfRefresh    = 30 // frames between perf panel refreshes
)

// Options configures a Game.
type Options struct {
	Seed           int64  // spawn seed; 0 keeps the config value
	Mode           string // overrides runtime.mode when set
	LogStats       bool
	StatsWindowSec float64 // 0 = use config
	OutputDir      string  // CSV and config snapshot directory; empty disables
	SnapshotDir    string  // flock snapshots on bookmarks and on request; empty disables
	Headless       bool    // no raylib resources are created
	StepsPerUpdate int
	Logger         *slog.Logger
	Observer       *observer.Hub // live telemetry stream; nil disables
}

// Game holds the complete application state.
type Game struct {
	cfg    *config.Config
	logger *slog.Logger

	sim   *sim.Simulation
	scene *scene.Scene
	cam   *camera.Camera

	dropped []ecs.Entity // obstacles placed at runtime, oldest first

	tween     *fx.Tween
	intensity fx.Range

	// Telemetry
	perfCollector *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	bookmarks     *telemetry.BookmarkDetector
	observer      *observer.Hub
	snapshotDir   string
	logStats      bool
	statsCallback func(telemetry.WindowStats)
	lastStats     sim.TickStats
	perfStats     telemetry.PerfStats

	// Rendering (nil when headless)
	background    *renderer.BackgroundRenderer
	flockRenderer *renderer.FlockRenderer
	hud           *ui.HUD
	perfPanel     *ui.PerfPanel
	controls      *ui.ControlsPanel

	// State
	paused         bool
	headless       bool
	tickOpen       bool // last tick's perf sample waits for the render phase
	frames         int
	stepsPerUpdate int
	dt             float64
	err            error

	width, height int32
}

// NewGameWithOptions creates a game. Graphical games must be created after
// the raylib window is open.
func NewGameWithOptions(cfg *config.Config, opts Options) (*Game, error) {
	if opts.Seed != 0 {
		cfg.Spawn.Seed = opts.Seed
	}
	if opts.Mode != "" {
		cfg.Runtime.Mode = opts.Mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dt := tickDT(cfg)
	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}

	g := &Game{
		cfg:            cfg,
		logger:         logger,
		scene:          scene.New(cfg.Scene),
		tween:          fx.NewTween(cfg.FX.TweenTime),
		intensity:      fx.Range{Min: cfg.FX.MinIntensity, Max: cfg.FX.MaxIntensity},
		perfCollector:  telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:      telemetry.NewCollector(statsWindow, dt),
		bookmarks:      telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory),
		observer:       opts.Observer,
		snapshotDir:    opts.SnapshotDir,
		logStats:       opts.LogStats,
		headless:       opts.Headless,
		stepsPerUpdate: min(max(opts.StepsPerUpdate, 1), maxStepsPerUpd),
		dt:             dt,
		width:          int32(cfg.Screen.Width),
		height:         int32(cfg.Screen.Height),
	}

	s, err := sim.New(cfg, sim.Options{Logger: logger, Perf: g.perfCollector})
	if err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}
	g.sim = s
	g.collector.SetMode(s.Mode().String())

	center := r3.Vec{X: cfg.Spawn.Center[0], Y: cfg.Spawn.Center[1], Z: cfg.Spawn.Center[2]}
	g.cam = camera.New(float64(g.width), float64(g.height), center, max(cfg.Spawn.Radius*3, 50))

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating output manager: %w", err)
		}
		if err := om.WriteConfig(cfg); err != nil {
			logger.Error("failed to write config snapshot", "error", err)
		}
		g.outputManager = om
		logger.Info("writing telemetry", "dir", om.Dir())
	}

	if !g.headless {
		g.background = renderer.NewBackgroundRenderer(g.width, g.height)
		g.flockRenderer = renderer.NewFlockRenderer(g.cam, cfg.Flock.ObstacleAversionDistance)
		g.hud = ui.NewHUD()
		g.perfPanel = ui.NewPerfPanel(g.width-230, 10, 220)
		g.controls = ui.NewControlsPanel(g.width-290, 190, 280)
	}

	return g, nil
}

// tickDT is the simulated seconds per tick.
func tickDT(cfg *config.Config) float64 {
	if cfg.Flock.FixedDT > 0 {
		return cfg.Flock.FixedDT
	}
	if cfg.Screen.TargetFPS > 0 {
		return 1 / float64(cfg.Screen.TargetFPS)
	}
	return 1.0 / 60.0
}

// SetStatsCallback registers a function called with every flushed window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.statsCallback = fn
}

// Tick returns the number of completed simulation ticks.
func (g *Game) Tick() int32 {
	return g.sim.Tick()
}

// Err returns the first simulation error. The game pauses when one occurs.
func (g *Game) Err() error {
	return g.err
}

// Simulation exposes the underlying simulation.
func (g *Game) Simulation() *sim.Simulation {
	return g.sim
}

// Scene exposes the points of interest.
func (g *Game) Scene() *scene.Scene {
	return g.scene
}

// Update handles input and advances the simulation.
func (g *Game) Update() {
	if !g.headless {
		g.handleInput()
	}
	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		// In graphics mode the final tick stays open so Draw can add the
		// render phase to it.
		if !g.step(g.headless || i < g.stepsPerUpdate-1) {
			return
		}
	}
}

// UpdateHeadless advances the simulation without input or rendering.
func (g *Game) UpdateHeadless() {
	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		if !g.step(true) {
			return
		}
	}
}

// step runs one tick and reports whether the game can keep stepping.
func (g *Game) step(closeTick bool) bool {
	g.perfCollector.StartTick()
	g.perfCollector.StartPhase(telemetry.PhaseScene)
	g.scene.Update(g.dt)
	err := g.sim.SetInterests(g.scene.Targets(), g.scene.Obstacles())

	var stats sim.TickStats
	if err == nil {
		stats, err = g.sim.Step(g.dt)
	}
	if closeTick || err != nil {
		g.perfCollector.EndTick()
	} else {
		g.tickOpen = true
	}
	if err != nil {
		g.fail(err)
		return false
	}

	g.lastStats = stats
	g.collector.Record(stats.Sample())
	g.flushTelemetry()
	return true
}

func (g *Game) fail(err error) {
	if g.err == nil {
		g.err = err
	}
	g.paused = true
	g.logger.Error("simulation halted", "tick", g.sim.Tick(), "error", err)
}

// toggleMode switches between the sequential and parallel strategies.
func (g *Game) toggleMode() {
	next := g.sim.Mode().Toggle()
	if err := g.sim.SetMode(next); err != nil {
		g.logger.Error("failed to switch mode", "mode", next, "error", err)
		return
	}
	g.collector.SetMode(next.String())
}

// Unload releases the simulation and flushes telemetry files.
func (g *Game) Unload() {
	g.sim.Close()
	if err := g.outputManager.Close(); err != nil {
		g.logger.Error("failed to close output", "error", err)
	}
}

// statusLine summarises the last tick on one line.
func (g *Game) statusLine() string {
	st := g.lastStats
	state := ""
	if g.paused {
		state = " | PAUSED"
	}
	return fmt.Sprintf("tick %d | %s | agents %d | cells %d | avoiding %d | exhausted %d%s | m: mode  space: pause  s: snapshot  o/p: obstacle  q: quit",
		g.sim.Tick(), g.sim.Mode(), st.Agents, st.Cells, st.Avoiding, st.ExhaustedCells, state)
}

// Draw renders the current frame.
func (g *Game) Draw() {
	if g.tickOpen {
		g.perfCollector.StartPhase(telemetry.PhaseRender)
	}

	g.tween.Advance(float64(rl.GetFrameTime()))

	rl.BeginDrawing()
	g.background.Draw(g.tween.Value(g.intensity))
	g.flockRenderer.Draw(g.sim.Agents(), g.scene.Targets(), g.scene.Obstacles())
	g.drawUI()
	rl.EndDrawing()

	g.perfCollector.RecordFrame()
	if g.tickOpen {
		g.perfCollector.EndTick()
		g.tickOpen = false
	}
}

func (g *Game) drawUI() {
	st := g.lastStats
	g.hud.Draw(ui.HUDData{
		Title:          windowTitle,
		Tick:           g.sim.Tick(),
		Mode:           g.sim.Mode().String(),
		FPS:            rl.GetFPS(),
		Paused:         g.paused,
		Agents:         st.Agents,
		Cells:          st.Cells,
		MaxOccupancy:   st.MaxOccupancy,
		Avoiding:       st.Avoiding,
		ExhaustedCells: st.ExhaustedCells,
		SkippedAgents:  st.SkippedAgents,
		PoolIdle:       st.PoolIdle,
		PoolCapacity:   st.PoolCapacity,
	})
	g.hud.DrawControls(g.height, "F1: mode | Space: pause | Drag: orbit | Wheel: zoom | Home: reset | H: panel | V: radius | F5: snapshot | O/P: drop/lift obstacle | ,/.: speed")

	if g.frames%perfRefresh == 0 {
		g.perfStats = g.perfCollector.Stats()
	}
	g.frames++
	g.perfPanel.Draw(g.perfStats)

	action := g.controls.Draw(g.sim.Mode().String(), g.sim.Params())
	if action.ToggleMode {
		g.toggleMode()
	}
	if action.ResetCamera {
		g.cam.Reset()
	}
	if action.ParamsChanged {
		g.sim.SetParams(action.Params)
		g.flockRenderer.SetAversion(action.Params.ObstacleAversionDistance)
	}
}

// PerfStats returns tick timing over the perf collector window.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}
