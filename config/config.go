// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/flock/flock"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Run modes.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
	ModePerAgent   = "per_agent"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Flock     FlockConfig     `yaml:"flock"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Spawn     SpawnConfig     `yaml:"spawn"`
	Scene     SceneConfig     `yaml:"scene"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	FX        FXConfig        `yaml:"fx"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// FlockConfig holds the steering rule parameters.
type FlockConfig struct {
	CellRadius               float64 `yaml:"cell_radius"`
	SeparationWeight         float64 `yaml:"separation_weight"`
	AlignmentWeight          float64 `yaml:"alignment_weight"`
	TargetWeight             float64 `yaml:"target_weight"`
	ObstacleAversionDistance float64 `yaml:"obstacle_aversion_distance"`
	MoveSpeed                float64 `yaml:"move_speed"`
	FixedDT                  float64 `yaml:"fixed_dt"` // Tick length for headless runs
}

// RuntimeConfig holds execution strategy and memory parameters.
type RuntimeConfig struct {
	Mode               string `yaml:"mode"`                 // sequential | parallel | per_agent
	ConcurrencyDegree  int    `yaml:"concurrency_degree"`   // 0 = GOMAXPROCS
	BucketPoolCapacity int    `yaml:"bucket_pool_capacity"` // 0 = one bucket per agent
	BucketCapacity     int    `yaml:"bucket_capacity"`      // Initial members per bucket
	Shards             int    `yaml:"shards"`               // 0 = 4 * concurrency
}

// SpawnConfig describes the initial population.
type SpawnConfig struct {
	Count  int        `yaml:"count"`
	Center [3]float64 `yaml:"center"`
	Radius float64    `yaml:"radius"`
	Seed   int64      `yaml:"seed"` // 0 = time-based
}

// SceneConfig lists the points of interest.
type SceneConfig struct {
	Targets   []InterestConfig `yaml:"targets"`
	Obstacles []InterestConfig `yaml:"obstacles"`
}

// InterestConfig places a target or obstacle on a circular path.
// A zero orbit radius or speed keeps it fixed at Center.
type InterestConfig struct {
	Center      [3]float64 `yaml:"center"`
	OrbitRadius float64    `yaml:"orbit_radius"`
	OrbitSpeed  float64    `yaml:"orbit_speed"` // radians per second
	Phase       float64    `yaml:"phase"`       // radians
	Bob         float64    `yaml:"bob"`         // vertical amplitude
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // seconds of simulated time
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // ticks
	BookmarkHistory     int     `yaml:"bookmark_history"`      // windows
}

// FXConfig holds the decorative background tween.
type FXConfig struct {
	TweenTime    float64 `yaml:"tween_time"`
	MinIntensity float64 `yaml:"min_intensity"`
	MaxIntensity float64 `yaml:"max_intensity"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Concurrency int
	PoolSize    int
	Shards      int
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.Merge(data); err != nil {
			return nil, err
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// Merge applies YAML on top of the current values. Only fields present in
// data are overwritten; derived values are recomputed.
func (c *Config) Merge(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	c.computeDerived()
	return nil
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Concurrency = c.Runtime.ConcurrencyDegree
	if c.Derived.Concurrency <= 0 {
		c.Derived.Concurrency = runtime.GOMAXPROCS(0)
	}

	// Worst case every agent sits alone in its cell.
	c.Derived.PoolSize = c.Runtime.BucketPoolCapacity
	if c.Derived.PoolSize <= 0 {
		c.Derived.PoolSize = max(c.Spawn.Count, 1)
	}

	c.Derived.Shards = c.Runtime.Shards
	if c.Derived.Shards <= 0 {
		c.Derived.Shards = 4 * c.Derived.Concurrency
	}
}

// Params returns the steering parameters.
func (c *Config) Params() flock.Params {
	return flock.Params{
		SeparationWeight:         c.Flock.SeparationWeight,
		AlignmentWeight:          c.Flock.AlignmentWeight,
		TargetWeight:             c.Flock.TargetWeight,
		ObstacleAversionDistance: c.Flock.ObstacleAversionDistance,
		MoveSpeed:                c.Flock.MoveSpeed,
	}
}

// Validate reports the first setting that would make a tick fail.
// Errors are *flock.ConfigurationError.
func (c *Config) Validate() error {
	bad := func(field, reason string) error {
		return &flock.ConfigurationError{Field: field, Reason: reason}
	}
	f := c.Flock
	switch {
	case !(f.CellRadius > 0):
		return bad("flock.cell_radius", "must be positive")
	case !(f.MoveSpeed > 0):
		return bad("flock.move_speed", "must be positive")
	case f.SeparationWeight < 0, f.AlignmentWeight < 0, f.TargetWeight < 0:
		return bad("flock.weights", "must not be negative")
	case f.ObstacleAversionDistance < 0:
		return bad("flock.obstacle_aversion_distance", "must not be negative")
	case f.FixedDT < 0:
		return bad("flock.fixed_dt", "must not be negative")
	}

	switch c.Runtime.Mode {
	case ModeSequential, ModeParallel, ModePerAgent:
	default:
		return bad("runtime.mode", fmt.Sprintf("unknown mode %q", c.Runtime.Mode))
	}
	if c.Runtime.BucketPoolCapacity < 0 {
		return bad("runtime.bucket_pool_capacity", "must not be negative")
	}

	if c.Spawn.Count < 0 {
		return bad("spawn.count", "must not be negative")
	}
	if c.Spawn.Radius < 0 {
		return bad("spawn.radius", "must not be negative")
	}

	if len(c.Scene.Targets) == 0 {
		return bad("scene.targets", "at least one target is required")
	}
	if len(c.Scene.Obstacles) == 0 {
		return bad("scene.obstacles", "at least one obstacle is required")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
