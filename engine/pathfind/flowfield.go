package pathfind

import (
	"math"

	"github.com/1siamBot/rts-engine/engine/core"
	"github.com/1siamBot/rts-engine/engine/maplib"
)

// FlowField stores a per-cell direction vector pointing toward a shared
// goal. It is the supplemental fast path for group movement orders (spec
// §4.5's "flow field for group move orders"): compute it once per goal
// instead of running independent A* searches for every unit in a group.
type FlowField struct {
	Width, Height int
	DirX, DirY    []float64
	Cost          []float64
}

// NewFlowField runs a BFS cost integration from goal outward, then derives
// a direction field pointing each cell toward its cheapest neighbor.
func NewFlowField(ng *NavGrid, goal core.Cell, flag maplib.PassFlag) *FlowField {
	w, h := ng.Width, ng.Height
	ff := &FlowField{
		Width:  w,
		Height: h,
		DirX:   make([]float64, w*h),
		DirY:   make([]float64, w*h),
		Cost:   make([]float64, w*h),
	}

	inf := math.MaxFloat64
	for i := range ff.Cost {
		ff.Cost[i] = inf
	}
	if goal.X < 0 || goal.Y < 0 || goal.X >= w || goal.Y >= h {
		return ff
	}
	ff.Cost[goal.Y*w+goal.X] = 0

	queue := []core.Cell{goal}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curCost := ff.Cost[cur.Y*w+cur.X]
		for _, d := range neighborDirs {
			nx, ny := cur.X+d[0], cur.Y+d[1]
			if !ng.Passable(nx, ny, flag) {
				continue
			}
			moveCost := ng.Cost(nx, ny)
			if d[0] != 0 && d[1] != 0 {
				moveCost *= math.Sqrt2
			}
			newCost := curCost + moveCost
			idx := ny*w + nx
			if newCost < ff.Cost[idx] {
				ff.Cost[idx] = newCost
				queue = append(queue, core.Cell{X: nx, Y: ny})
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if ff.Cost[idx] >= inf {
				continue
			}
			bestCost := ff.Cost[idx]
			var bx, by float64
			for _, d := range neighborDirs {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				c := ff.Cost[ny*w+nx]
				if c < bestCost {
					bestCost = c
					bx, by = float64(d[0]), float64(d[1])
				}
			}
			length := math.Sqrt(bx*bx + by*by)
			if length > 0 {
				ff.DirX[idx] = bx / length
				ff.DirY[idx] = by / length
			}
		}
	}

	return ff
}

// Direction returns the unit flow vector at (x, y), or (0, 0) out of bounds
// or for a cell the integration pass never reached.
func (ff *FlowField) Direction(x, y int) (float64, float64) {
	if x < 0 || y < 0 || x >= ff.Width || y >= ff.Height {
		return 0, 0
	}
	idx := y*ff.Width + x
	return ff.DirX[idx], ff.DirY[idx]
}

// Reachable reports whether the integration pass assigned (x, y) a finite
// cost, i.e. the goal is reachable from it.
func (ff *FlowField) Reachable(x, y int) bool {
	if x < 0 || y < 0 || x >= ff.Width || y >= ff.Height {
		return false
	}
	return ff.Cost[y*ff.Width+x] < math.MaxFloat64
}

// TracePath walks a concrete cell path from start to goal by descending the
// field's cost gradient, for callers (the group-move fast path) that need
// PathFollower-shaped waypoints rather than a per-cell direction lookup.
// Returns nil if start cannot reach goal or the trace exceeds maxSteps
// (a malformed or disconnected field should not hang the caller).
func (ff *FlowField) TracePath(start, goal core.Cell, maxSteps int) []core.Cell {
	if !ff.Reachable(start.X, start.Y) {
		return nil
	}
	path := []core.Cell{start}
	cur := start
	for steps := 0; cur != goal; steps++ {
		if steps >= maxSteps {
			return nil
		}
		dx, dy := ff.Direction(cur.X, cur.Y)
		if dx == 0 && dy == 0 {
			return nil
		}
		next := core.Cell{X: cur.X + sign(dx), Y: cur.Y + sign(dy)}
		if next == cur {
			return nil
		}
		path = append(path, next)
		cur = next
	}
	return path
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
