package sim

import (
	"fmt"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
)

// Mode selects the execution strategy for a tick.
type Mode string

const (
	// ModeSequential hashes and steers on the calling goroutine.
	ModeSequential Mode = config.ModeSequential
	// ModeParallel populates a sharded map and steers cells on the worker pool.
	ModeParallel Mode = config.ModeParallel
	// ModePerAgent treats every agent as its own cell. No hashing is done,
	// so neighbors have no influence.
	ModePerAgent Mode = config.ModePerAgent
)

// ParseMode converts a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSequential, ModeParallel, ModePerAgent:
		return m, nil
	}
	return "", &flock.ConfigurationError{Field: "runtime.mode", Reason: fmt.Sprintf("unknown mode %q", s)}
}

// Toggle flips between the two cell-based strategies.
// Per-agent mode toggles back to sequential.
func (m Mode) Toggle() Mode {
	if m == ModeSequential {
		return ModeParallel
	}
	return ModeSequential
}

func (m Mode) String() string {
	return string(m)
}
