package game

import (
	"github.com/pthm-cable/flock/telemetry"
)

// snapshot captures the current flock state.
func (g *Game) snapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		Seed:       g.cfg.Spawn.Seed,
		Tick:       g.sim.Tick(),
		Mode:       g.sim.Mode().String(),
		Params:     g.sim.Params(),
		CellRadius: g.cfg.Flock.CellRadius,
		Targets:    append(g.scene.Targets()[:0:0], g.scene.Targets()...),
		Obstacles:  append(g.scene.Obstacles()[:0:0], g.scene.Obstacles()...),
		Agents:     telemetry.CaptureAgents(g.sim.Agents()),
		Bookmark:   bookmark,
	}
}

// saveSnapshot writes a snapshot to the snapshot directory, if one is set.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	if g.snapshotDir == "" {
		return
	}

	path, err := telemetry.SaveSnapshot(g.snapshot(bookmark), g.snapshotDir)
	if err != nil {
		g.logger.Error("failed to save snapshot", "error", err)
		return
	}

	g.logger.Info("snapshot saved", "path", path, "tick", g.sim.Tick())
}
