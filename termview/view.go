// Package termview projects the flock onto a terminal grid with tcell.
package termview

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/flock"
)

// Terminal cells are roughly twice as tall as they are wide, so the camera
// viewport uses doubled rows and y is halved when plotting.
const cellAspect = 2

// Command is an application-level request decoded from input.
type Command int

const (
	CmdNone Command = iota
	CmdQuit
	CmdToggleMode
	CmdPause
	CmdSnapshot
	CmdDropObstacle
	CmdLiftObstacle
)

const (
	orbitStep = 0.08
	zoomStep  = 1.15
)

var (
	styleAgent    = tcell.StyleDefault.Foreground(tcell.ColorLightCyan)
	styleFar      = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleTarget   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleObstacle = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// View draws into a tcell screen through an orbiting camera.
type View struct {
	screen        tcell.Screen
	cam           *camera.Camera
	width, height int
	depth         []float64 // nearest depth plotted per cell this frame
}

// New creates a view sized to the screen.
func New(screen tcell.Screen, cam *camera.Camera) *View {
	v := &View{screen: screen, cam: cam}
	v.Resize()
	return v
}

// Resize re-reads the screen size.
func (v *View) Resize() {
	v.width, v.height = v.screen.Size()
	v.cam.Resize(float64(v.width), float64(v.height*cellAspect))
	if n := v.width * v.height; cap(v.depth) < n {
		v.depth = make([]float64, n)
	} else {
		v.depth = v.depth[:n]
	}
}

// Camera returns the camera the view projects through.
func (v *View) Camera() *camera.Camera {
	return v.cam
}

// Draw renders one frame. status is written on the first row.
func (v *View) Draw(agents []flock.Agent, targets, obstacles []r3.Vec, status string) {
	v.screen.Clear()
	for i := range v.depth {
		v.depth[i] = math.Inf(1)
	}

	mid := v.cam.Distance
	for i := range agents {
		a := &agents[i]
		style := styleAgent
		glyph := v.headingGlyph(a)
		if col, row, depth, ok := v.project(a.Position); ok && v.claim(col, row, depth) {
			if depth > mid {
				style = styleFar
			}
			v.screen.SetContent(col, row, glyph, nil, style)
		}
	}

	// Interests are drawn last so the flock never hides them.
	for _, p := range obstacles {
		if col, row, _, ok := v.project(p); ok {
			v.screen.SetContent(col, row, 'X', nil, styleObstacle)
		}
	}
	for _, p := range targets {
		if col, row, _, ok := v.project(p); ok {
			v.screen.SetContent(col, row, '+', nil, styleTarget)
		}
	}

	for i, r := range status {
		if i >= v.width {
			break
		}
		v.screen.SetContent(i, 0, r, nil, styleStatus)
	}

	v.screen.Show()
}

func (v *View) project(p r3.Vec) (col, row int, depth float64, ok bool) {
	sx, sy, depth, ok := v.cam.WorldToScreen(p)
	if !ok {
		return 0, 0, depth, false
	}
	col = int(sx)
	row = int(sy / cellAspect)
	if col < 0 || col >= v.width || row < 0 || row >= v.height {
		return 0, 0, depth, false
	}
	return col, row, depth, true
}

// claim reports whether depth is the nearest seen so far at (col, row).
func (v *View) claim(col, row int, depth float64) bool {
	i := row*v.width + col
	if depth >= v.depth[i] {
		return false
	}
	v.depth[i] = depth
	return true
}

// headingGlyph picks an arrow for the heading as seen on screen.
func (v *View) headingGlyph(a *flock.Agent) rune {
	right, up, _ := v.cam.Basis()
	x := r3.Dot(a.Heading, right)
	y := r3.Dot(a.Heading, up)
	if math.Abs(x) < 0.2 && math.Abs(y) < 0.2 {
		return '·' // moving toward or away from the viewer
	}
	if math.Abs(x) >= math.Abs(y) {
		if x > 0 {
			return '>'
		}
		return '<'
	}
	if y > 0 {
		return '^'
	}
	return 'v'
}

// Handle applies camera input and decodes application commands.
func (v *View) Handle(ev tcell.Event) Command {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.Resize()
		v.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return CmdQuit
		case tcell.KeyLeft:
			v.cam.Orbit(-orbitStep, 0)
		case tcell.KeyRight:
			v.cam.Orbit(orbitStep, 0)
		case tcell.KeyUp:
			v.cam.Orbit(0, orbitStep)
		case tcell.KeyDown:
			v.cam.Orbit(0, -orbitStep)
		case tcell.KeyF1:
			return CmdToggleMode
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return CmdQuit
			case 'm':
				return CmdToggleMode
			case ' ':
				return CmdPause
			case 's':
				return CmdSnapshot
			case 'o':
				return CmdDropObstacle
			case 'p':
				return CmdLiftObstacle
			case '+', '=':
				v.cam.ZoomBy(zoomStep)
			case '-':
				v.cam.ZoomBy(1 / zoomStep)
			case 'r':
				v.cam.Reset()
			}
		}
	}
	return CmdNone
}
