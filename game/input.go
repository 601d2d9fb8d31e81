package game

import rl "github.com/gen2brain/raylib-go/raylib"

const (
	orbitSensitivity = 0.005 // radians per pixel of mouse drag
	keyOrbitStep     = 0.03
	wheelZoomStep    = 1.1
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeyF1) {
		g.toggleMode()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.stepsPerUpdate > 1 {
		g.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.stepsPerUpdate < maxStepsPerUpd {
		g.stepsPerUpdate++
	}

	if rl.IsKeyPressed(rl.KeyH) {
		g.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyV) {
		g.flockRenderer.ToggleRadius()
	}
	if rl.IsKeyPressed(rl.KeyF5) {
		g.saveSnapshot(nil)
	}
	if rl.IsKeyPressed(rl.KeyO) {
		g.dropObstacle()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.liftObstacle()
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		g.cam.Reset()
	}

	g.handleCamera()
}

// handleCamera orbits with right-drag or the arrow keys and zooms with the wheel.
func (g *Game) handleCamera() {
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		g.cam.Orbit(float64(d.X)*orbitSensitivity, float64(d.Y)*orbitSensitivity)
	}

	if rl.IsKeyDown(rl.KeyLeft) {
		g.cam.Orbit(-keyOrbitStep, 0)
	}
	if rl.IsKeyDown(rl.KeyRight) {
		g.cam.Orbit(keyOrbitStep, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.cam.Orbit(0, keyOrbitStep)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.cam.Orbit(0, -keyOrbitStep)
	}

	if wheel := rl.GetMouseWheelMove(); wheel > 0 {
		g.cam.ZoomBy(wheelZoomStep)
	} else if wheel < 0 {
		g.cam.ZoomBy(1 / wheelZoomStep)
	}
}

// handleResize propagates window size changes to the renderers and panels.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	g.width = int32(rl.GetScreenWidth())
	g.height = int32(rl.GetScreenHeight())
	g.cam.Resize(float64(g.width), float64(g.height))
	g.background.Resize(g.width, g.height)
	g.perfPanel.SetPosition(g.width-230, 10)
	g.controls.SetPosition(g.width-290, 190)
}
