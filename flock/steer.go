package flock

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Params are the per-run steering weights.
type Params struct {
	SeparationWeight         float64
	AlignmentWeight          float64
	TargetWeight             float64
	ObstacleAversionDistance float64
	MoveSpeed                float64
}

// Aggregate summarizes one cell.
type Aggregate struct {
	Count       int
	HeadingSum  r3.Vec
	PositionSum r3.Vec
}

// Center returns the average position of the cell.
func (a Aggregate) Center() r3.Vec {
	return r3.Scale(1/float64(a.Count), a.PositionSum)
}

// AverageHeading returns the mean heading of the cell.
func (a Aggregate) AverageHeading() r3.Vec {
	return r3.Scale(1/float64(a.Count), a.HeadingSum)
}

// Accumulate sums headings and positions of the given members.
func Accumulate(agents []Agent, members []int32) Aggregate {
	agg := Aggregate{Count: len(members)}
	for _, idx := range members {
		a := &agents[idx]
		agg.HeadingSum = r3.Add(agg.HeadingSum, a.Heading)
		agg.PositionSum = r3.Add(agg.PositionSum, a.Position)
	}
	return agg
}

// Interest is the nearest target and obstacle resolved for a cell.
type Interest struct {
	Target       r3.Vec
	Obstacle     r3.Vec
	ObstacleDist float64
}

// Avoiding reports whether the cell center lies strictly inside the aversion radius.
func (in Interest) Avoiding(p Params) bool {
	return in.ObstacleDist-p.ObstacleAversionDistance < 0
}

// CellResult describes how a cell was steered.
type CellResult struct {
	Count    int
	Avoiding bool
}

// Steering applies the flocking rule using the current points of interest.
// Targets and Obstacles are read-only during a tick.
type Steering struct {
	Params    Params
	Targets   []r3.Vec
	Obstacles []r3.Vec
}

// Resolve finds the nearest target and obstacle to center.
func (s *Steering) Resolve(center r3.Vec) (Interest, error) {
	oi, od, err := Nearest(s.Obstacles, center)
	if err != nil {
		return Interest{}, fmt.Errorf("nearest obstacle: %w", err)
	}
	ti, _, err := Nearest(s.Targets, center)
	if err != nil {
		return Interest{}, fmt.Errorf("nearest target: %w", err)
	}
	return Interest{Target: s.Targets[ti], Obstacle: s.Obstacles[oi], ObstacleDist: od}, nil
}

// SteerCell aggregates the members, resolves points of interest once for the
// cell center, and moves every member in place.
func (s *Steering) SteerCell(agents []Agent, members []int32, dt float64) (CellResult, error) {
	if len(members) == 0 {
		return CellResult{}, nil
	}
	agg := Accumulate(agents, members)
	in, err := s.Resolve(agg.Center())
	if err != nil {
		return CellResult{}, err
	}
	avoiding := in.Avoiding(s.Params)
	for _, idx := range members {
		a := &agents[idx]
		a.Position, a.Heading = s.Next(*a, agg, in, avoiding, dt)
	}
	return CellResult{Count: agg.Count, Avoiding: avoiding}, nil
}

// SteerAgent treats a as a cell of its own.
func (s *Steering) SteerAgent(a *Agent, dt float64) (CellResult, error) {
	agg := Aggregate{Count: 1, HeadingSum: a.Heading, PositionSum: a.Position}
	in, err := s.Resolve(a.Position)
	if err != nil {
		return CellResult{}, err
	}
	avoiding := in.Avoiding(s.Params)
	a.Position, a.Heading = s.Next(*a, agg, in, avoiding, dt)
	return CellResult{Count: 1, Avoiding: avoiding}, nil
}

// Next computes the next position and heading of a within its cell.
func (s *Steering) Next(a Agent, agg Aggregate, in Interest, avoiding bool, dt float64) (pos, heading r3.Vec) {
	p := s.Params
	fwd := a.Heading

	var desired r3.Vec
	if avoiding {
		away := r3.Sub(a.Position, in.Obstacle)
		edge := r3.Add(in.Obstacle, r3.Scale(p.ObstacleAversionDistance, Normalize(away)))
		desired = r3.Sub(edge, a.Position)
	} else {
		n := float64(agg.Count)
		separation := r3.Scale(p.SeparationWeight, Normalize(r3.Sub(r3.Scale(n, a.Position), agg.PositionSum)))
		alignment := r3.Scale(p.AlignmentWeight, Normalize(r3.Sub(agg.AverageHeading(), fwd)))
		toTarget := r3.Scale(p.TargetWeight, Normalize(r3.Sub(in.Target, a.Position)))
		desired = Normalize(r3.Add(r3.Add(separation, alignment), toTarget))
	}

	heading = Normalize(r3.Add(fwd, r3.Scale(dt, r3.Sub(desired, fwd))))
	pos = r3.Add(a.Position, r3.Scale(p.MoveSpeed*dt, heading))
	return pos, heading
}
