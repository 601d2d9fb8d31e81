package renderer

import rl "github.com/gen2brain/raylib-go/raylib"

// BackgroundRenderer draws a vertical gradient whose colors drift with an
// intensity in [-1, 1], supplied each frame by the fx tween.
type BackgroundRenderer struct {
	screenW, screenH int32
	top, bottom      rl.Color
	shift            rl.Color
}

// NewBackgroundRenderer creates a new background renderer.
func NewBackgroundRenderer(screenW, screenH int32) *BackgroundRenderer {
	return &BackgroundRenderer{
		screenW: screenW,
		screenH: screenH,
		top:     rl.Color{R: 8, G: 40, B: 64, A: 255},
		bottom:  rl.Color{R: 2, G: 10, B: 22, A: 255},
		shift:   rl.Color{R: 10, G: 30, B: 40, A: 0},
	}
}

// Resize updates the screen dimensions.
func (b *BackgroundRenderer) Resize(w, h int32) {
	b.screenW = w
	b.screenH = h
}

// Draw fills the screen. Call before BeginMode3D.
func (b *BackgroundRenderer) Draw(intensity float64) {
	top := tint(b.top, b.shift, intensity)
	bottom := tint(b.bottom, b.shift, intensity*0.5)
	rl.ClearBackground(bottom)
	rl.DrawRectangleGradientV(0, 0, b.screenW, b.screenH, top, bottom)
}

func tint(base, shift rl.Color, k float64) rl.Color {
	if k > 1 {
		k = 1
	}
	if k < -1 {
		k = -1
	}
	return rl.Color{
		R: channel(base.R, shift.R, k),
		G: channel(base.G, shift.G, k),
		B: channel(base.B, shift.B, k),
		A: base.A,
	}
}

func channel(base, shift uint8, k float64) uint8 {
	v := float64(base) + float64(shift)*k
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
