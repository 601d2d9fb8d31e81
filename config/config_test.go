package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/flock/flock"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Flock.CellRadius != 8 {
		t.Errorf("cell_radius = %v, want 8", cfg.Flock.CellRadius)
	}
	if cfg.Derived.Concurrency < 1 {
		t.Errorf("derived concurrency = %d", cfg.Derived.Concurrency)
	}
	if cfg.Derived.PoolSize != cfg.Spawn.Count {
		t.Errorf("derived pool = %d, want spawn count %d", cfg.Derived.PoolSize, cfg.Spawn.Count)
	}
	if cfg.Derived.Shards != 4*cfg.Derived.Concurrency {
		t.Errorf("derived shards = %d", cfg.Derived.Shards)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	data := []byte("flock:\n  move_speed: 5\nruntime:\n  mode: sequential\n  bucket_pool_capacity: 10\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Flock.MoveSpeed != 5 {
		t.Errorf("move_speed = %v, want 5", cfg.Flock.MoveSpeed)
	}
	if cfg.Flock.CellRadius != 8 {
		t.Errorf("unset field lost default: cell_radius = %v", cfg.Flock.CellRadius)
	}
	if cfg.Runtime.Mode != ModeSequential || cfg.Derived.PoolSize != 10 {
		t.Errorf("runtime = %+v derived = %+v", cfg.Runtime, cfg.Derived)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero cell radius", func(c *Config) { c.Flock.CellRadius = 0 }, "flock.cell_radius"},
		{"negative move speed", func(c *Config) { c.Flock.MoveSpeed = -1 }, "flock.move_speed"},
		{"negative weight", func(c *Config) { c.Flock.AlignmentWeight = -0.5 }, "flock.weights"},
		{"unknown mode", func(c *Config) { c.Runtime.Mode = "gpu" }, "runtime.mode"},
		{"no targets", func(c *Config) { c.Scene.Targets = nil }, "scene.targets"},
		{"no obstacles", func(c *Config) { c.Scene.Obstacles = nil }, "scene.obstacles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, flock.ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
			var ce *flock.ConfigurationError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("field = %v, want %s", ce, tt.field)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Flock.TargetWeight = 3.5
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Flock.TargetWeight != 3.5 || len(back.Scene.Targets) != len(cfg.Scene.Targets) {
		t.Errorf("round trip lost values: %+v", back.Flock)
	}
}
