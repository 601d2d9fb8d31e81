package game

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	tick := g.sim.Tick()
	if !g.collector.ShouldFlush(tick) {
		return
	}

	stats := g.collector.Flush(tick)
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		g.logger.Info("stats", "window", stats)
		g.logger.Info("perf", "window_end", stats.WindowEndTick, "perf", perfStats)
	}

	if err := g.outputManager.WriteWindow(stats); err != nil {
		g.logger.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick, stats.Mode); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
	g.observer.Window(stats)
	g.observer.Perf(stats.WindowEndTick, stats.Mode, perfStats)

	for _, bm := range g.bookmarks.Check(stats) {
		if g.logStats {
			g.logger.Info("bookmark", "bookmark", bm)
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			g.logger.Error("failed to write bookmark", "error", err)
		}
		g.observer.Bookmark(bm)
		g.saveSnapshot(&bm)
	}
}
