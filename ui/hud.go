package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title  string
	Tick   int32
	Mode   string
	FPS    int32
	Paused bool

	Agents       int
	Cells        int
	MaxOccupancy int
	Avoiding     int

	ExhaustedCells int
	SkippedAgents  int
	PoolIdle       int
	PoolCapacity   int
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer

	// Title
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Tick: %d | Mode: %s | FPS: %d", data.Tick, data.Mode, data.FPS),
		10, 35, 16, rl.LightGray,
	)

	y := int32(60)
	y = r.DrawLabelValue(10, y, "Agents", fmt.Sprintf("%d", data.Agents))
	y = r.DrawLabelValue(10, y, "Cells", fmt.Sprintf("%d (max %d)", data.Cells, data.MaxOccupancy))
	y = r.DrawLabelValue(10, y, "Avoiding", fmt.Sprintf("%d", data.Avoiding))

	pool := fmt.Sprintf("%d / %d idle", data.PoolIdle, data.PoolCapacity)
	if data.ExhaustedCells > 0 {
		y = r.DrawWarnValue(10, y, "Pool", pool)
		y = r.DrawWarnValue(10, y, "Exhausted", fmt.Sprintf("%d cells, %d agents", data.ExhaustedCells, data.SkippedAgents))
	} else {
		y = r.DrawLabelValue(10, y, "Pool", pool)
	}

	if data.Paused {
		rl.DrawText("PAUSED", 10, y+4, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-phase tick timing.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	phases   []string
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		phases:   telemetry.PhaseNames(),
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	padding := r.Theme.Padding
	height := r.Theme.LineHeight*int32(len(p.phases)+3) + padding*2
	r.DrawPanel(p.x, p.y, p.width, height)

	x := p.x + padding
	y := r.DrawSectionHeader(x, p.y+padding, "Tick Performance")
	y = r.DrawLabelValue(x, y, "Avg", stats.AvgTickDuration.Round(time.Microsecond).String())
	y = r.DrawLabelValue(x, y, "P95", stats.P95TickDuration.Round(time.Microsecond).String())

	for _, name := range p.phases {
		y = r.DrawBar(x, y, name, float32(stats.PhasePct[name]/100), p.width-padding*2)
	}
}
