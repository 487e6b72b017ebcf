package pathfind

import "math"

// SteerResult is a computed steering velocity for one tick.
type SteerResult struct {
	VX, VY float64
}

// Steer blends seek-toward-waypoint with separation from nearby units,
// the local collision-avoidance layer spec §4.6 runs on top of a planned
// path: the path says which cells to cross, Steer says how to move through
// them without units stacking on each other. ux, uy and targetX, targetY
// are all in world units; the caller converts a grid waypoint to its
// world-space target. others is each nearby unit's (x, y, radius).
func Steer(ux, uy, speed float64, targetX, targetY float64, others [][3]float64) SteerResult {
	dx, dy := targetX-ux, targetY-uy
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 0.01 {
		return SteerResult{}
	}

	seekX, seekY := dx/dist*speed, dy/dist*speed

	sepX, sepY := 0.0, 0.0
	for _, o := range others {
		ox, oy, orad := o[0], o[1], o[2]
		sx, sy := ux-ox, uy-oy
		d := math.Sqrt(sx*sx + sy*sy)
		minDist := orad + 0.5
		if d < minDist && d > 0.001 {
			force := (minDist - d) / minDist
			sepX += sx / d * force * speed * 0.5
			sepY += sy / d * force * speed * 0.5
		}
	}

	vx := seekX + sepX
	vy := seekY + sepY

	if v := math.Sqrt(vx*vx + vy*vy); v > speed {
		vx = vx / v * speed
		vy = vy / v * speed
	}

	return SteerResult{VX: vx, VY: vy}
}
