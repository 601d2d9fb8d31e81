package game

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/flock/termview"
)

// RunTerminal drives the game in a terminal until the user quits, maxTicks
// is reached (0 = unlimited) or the simulation fails. The game must have been
// created headless. The caller owns screen and finalises it.
func (g *Game) RunTerminal(screen tcell.Screen, maxTicks int) error {
	view := termview.New(screen, g.cam)

	fps := g.cfg.Screen.TargetFPS
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case ev := <-events:
			switch view.Handle(ev) {
			case termview.CmdQuit:
				return nil
			case termview.CmdToggleMode:
				g.toggleMode()
			case termview.CmdSnapshot:
				g.saveSnapshot(nil)
			case termview.CmdDropObstacle:
				g.dropObstacle()
			case termview.CmdLiftObstacle:
				g.liftObstacle()
			case termview.CmdPause:
				if g.err == nil {
					g.paused = !g.paused
				}
			}

		case <-ticker.C:
			g.UpdateHeadless()
			if g.err != nil {
				return g.err
			}
			view.Draw(g.sim.Agents(), g.scene.Targets(), g.scene.Obstacles(), g.statusLine())
			if maxTicks > 0 && int(g.sim.Tick()) >= maxTicks {
				return nil
			}
		}
	}
}
