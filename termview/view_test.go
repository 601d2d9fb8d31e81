package termview

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/flock"
)

func newTestView(t *testing.T) (*View, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 24)

	cam := camera.New(80, 48, r3.Vec{}, 100)
	cam.Pitch = 0
	return New(screen, cam), screen
}

func runeAt(s tcell.SimulationScreen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestDrawPlotsAtCenter(t *testing.T) {
	v, screen := newTestView(t)

	agents := []flock.Agent{{Position: r3.Vec{}, Heading: r3.Vec{X: 1}}}
	v.Draw(agents, nil, nil, "")

	if got := runeAt(screen, 40, 12); got != '>' {
		t.Errorf("center cell = %q, want '>'", got)
	}
}

func TestDrawInterestsOnTop(t *testing.T) {
	v, screen := newTestView(t)

	agents := []flock.Agent{{Position: r3.Vec{}, Heading: r3.Vec{Y: 1}}}
	v.Draw(agents, []r3.Vec{{}}, nil, "")
	if got := runeAt(screen, 40, 12); got != '+' {
		t.Errorf("target should cover the agent, got %q", got)
	}

	v.Draw(agents, nil, []r3.Vec{{}}, "")
	if got := runeAt(screen, 40, 12); got != 'X' {
		t.Errorf("obstacle should cover the agent, got %q", got)
	}
}

func TestDrawStatusLine(t *testing.T) {
	v, screen := newTestView(t)
	v.Draw(nil, nil, nil, "tick 7")

	want := "tick 7"
	for i, r := range want {
		if got := runeAt(screen, i, 0); got != r {
			t.Fatalf("status[%d] = %q, want %q", i, got, r)
		}
	}
}

func TestNearestAgentWins(t *testing.T) {
	v, screen := newTestView(t)

	// Both project to the center; the one nearer the eye (+Z) is drawn.
	agents := []flock.Agent{
		{Position: r3.Vec{Z: 20}, Heading: r3.Vec{X: -1}},
		{Position: r3.Vec{Z: -20}, Heading: r3.Vec{X: 1}},
	}
	v.Draw(agents, nil, nil, "")
	if got := runeAt(screen, 40, 12); got != '<' {
		t.Errorf("center cell = %q, want the nearer agent's '<'", got)
	}
}

func TestHandle(t *testing.T) {
	v, _ := newTestView(t)

	tests := []struct {
		name string
		ev   *tcell.EventKey
		want Command
	}{
		{"quit q", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), CmdQuit},
		{"quit esc", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), CmdQuit},
		{"toggle m", tcell.NewEventKey(tcell.KeyRune, 'm', tcell.ModNone), CmdToggleMode},
		{"toggle f1", tcell.NewEventKey(tcell.KeyF1, 0, tcell.ModNone), CmdToggleMode},
		{"pause", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), CmdPause},
		{"snapshot", tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone), CmdSnapshot},
		{"drop obstacle", tcell.NewEventKey(tcell.KeyRune, 'o', tcell.ModNone), CmdDropObstacle},
		{"lift obstacle", tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), CmdLiftObstacle},
		{"zoom", tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone), CmdNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Handle(tt.ev); got != tt.want {
				t.Errorf("Handle = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleMovesCamera(t *testing.T) {
	v, _ := newTestView(t)
	cam := v.Camera()

	dist := cam.Distance
	v.Handle(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone))
	if cam.Distance >= dist {
		t.Errorf("zoom in did not move closer: %v -> %v", dist, cam.Distance)
	}

	yaw := cam.Yaw
	v.Handle(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	if cam.Yaw <= yaw {
		t.Errorf("orbit right did not change yaw: %v -> %v", yaw, cam.Yaw)
	}
}
