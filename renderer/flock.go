// Package renderer draws the flock and its surroundings with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/flock"
)

// FlockRenderer draws agents as short heading strokes in 3D.
type FlockRenderer struct {
	cam   *camera.Camera
	rlCam rl.Camera3D

	headingLen float64
	aversion   float32
	showRadius bool

	agentColor    rl.Color
	targetColor   rl.Color
	obstacleColor rl.Color
}

// NewFlockRenderer draws through cam. aversion is the obstacle radius shown
// as a wire sphere.
func NewFlockRenderer(cam *camera.Camera, aversion float64) *FlockRenderer {
	return &FlockRenderer{
		cam: cam,
		rlCam: rl.Camera3D{
			Up:         rl.NewVector3(0, 1, 0),
			Projection: rl.CameraPerspective,
		},
		headingLen:    1.5,
		aversion:      float32(aversion),
		showRadius:    true,
		agentColor:    rl.Color{R: 200, G: 230, B: 255, A: 255},
		targetColor:   rl.Color{R: 120, G: 220, B: 120, A: 255},
		obstacleColor: rl.Color{R: 230, G: 90, B: 80, A: 255},
	}
}

// SetAversion updates the radius drawn around obstacles.
func (r *FlockRenderer) SetAversion(d float64) {
	r.aversion = float32(d)
}

// ToggleRadius shows or hides the obstacle aversion spheres.
func (r *FlockRenderer) ToggleRadius() bool {
	r.showRadius = !r.showRadius
	return r.showRadius
}

// Draw renders one frame of the scene. Call between BeginDrawing and EndDrawing.
func (r *FlockRenderer) Draw(agents []flock.Agent, targets, obstacles []r3.Vec) {
	r.syncCamera()

	rl.BeginMode3D(r.rlCam)

	rl.DrawGrid(20, 10)

	for i := range agents {
		a := &agents[i]
		tail := r3.Sub(a.Position, r3.Scale(r.headingLen, a.Heading))
		rl.DrawLine3D(vec3(tail), vec3(a.Position), r.agentColor)
	}

	for _, t := range targets {
		rl.DrawSphere(vec3(t), 1.5, r.targetColor)
	}
	for _, o := range obstacles {
		rl.DrawSphere(vec3(o), 2, r.obstacleColor)
		if r.showRadius && r.aversion > 0 {
			rl.DrawSphereWires(vec3(o), r.aversion, 8, 16, rl.Fade(r.obstacleColor, 0.25))
		}
	}

	rl.EndMode3D()
}

func (r *FlockRenderer) syncCamera() {
	r.rlCam.Position = vec3(r.cam.Eye())
	r.rlCam.Target = vec3(r.cam.Target)
	r.rlCam.Fovy = float32(r.cam.FovY)
}

func vec3(v r3.Vec) rl.Vector3 {
	return rl.NewVector3(float32(v.X), float32(v.Y), float32(v.Z))
}
