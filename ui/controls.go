package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/flock"
)

// ControlsAction reports what the user changed this frame.
type ControlsAction struct {
	ToggleMode    bool
	ResetCamera   bool
	ParamsChanged bool
	Params        flock.Params
}

// slider describes one steering weight exposed in the panel.
type slider struct {
	label    string
	min, max float32
	field    func(p *flock.Params) *float64
}

var sliders = []slider{
	{"Separation", 0, 5, func(p *flock.Params) *float64 { return &p.SeparationWeight }},
	{"Alignment", 0, 5, func(p *flock.Params) *float64 { return &p.AlignmentWeight }},
	{"Target", 0, 5, func(p *flock.Params) *float64 { return &p.TargetWeight }},
	{"Aversion", 0, 100, func(p *flock.Params) *float64 { return &p.ObstacleAversionDistance }},
	{"Speed", 1, 100, func(p *flock.Params) *float64 { return &p.MoveSpeed }},
}

// ControlsPanel renders the run-mode toggle and steering sliders.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the panel and returns the user's input.
func (c *ControlsPanel) Draw(mode string, params flock.Params) ControlsAction {
	action := ControlsAction{Params: params}
	if !c.visible {
		return action
	}

	r := c.renderer
	padding := r.Theme.Padding
	rowHeight := int32(34)
	panelHeight := padding*3 + 30 + rowHeight*int32(len(sliders)) + r.Theme.LineHeight

	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	x := float32(c.x + padding)
	y := float32(c.y + padding)
	inner := float32(c.width - padding*2)

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: inner/2 - 4, Height: 30}, fmt.Sprintf("Mode: %s", mode)) {
		action.ToggleMode = true
	}
	if gui.Button(rl.Rectangle{X: x + inner/2 + 4, Y: y, Width: inner/2 - 4, Height: 30}, "Reset Camera") {
		action.ResetCamera = true
	}
	y += 30 + float32(padding)

	for _, s := range sliders {
		v := s.field(&action.Params)
		rl.DrawText(s.label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		cur := float32(*v)
		next := gui.SliderBar(
			rl.Rectangle{X: x, Y: y + 14, Width: inner - 50, Height: 14},
			"", "",
			cur, s.min, s.max,
		)
		rl.DrawText(fmt.Sprintf("%.2f", *v), int32(x+inner-44), int32(y+14), r.Theme.FontSize, r.Theme.ValueColor)
		if next != cur {
			*v = float64(next)
			action.ParamsChanged = true
		}
		y += float32(rowHeight)
	}

	return action
}
