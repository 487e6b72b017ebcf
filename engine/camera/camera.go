// Package camera is the 2D affine viewport: world-to-screen and
// screen-to-world conversion plus smoothed pan/zoom convergence toward a
// target pose, replacing the teacher's isometric Camera (engine/render)
// with an orthogonal one and adding the smoothing spec §4.4 requires.
package camera

import "math"

const (
	// MinZoom and MaxZoom bound Scale and TargetScale.
	MinZoom = 0.25
	MaxZoom = 4.0

	// kPos and kScale are the exponential-smoothing convergence rates:
	// higher means the camera catches up to its target faster.
	kPos   = 10.0
	kScale = 8.0

	// snapEpsilon is how close Pos/Scale must be to their targets before
	// Update snaps the remaining delta to zero, so the camera actually
	// settles instead of approaching asymptotically forever.
	snapEpsilon = 1e-3
)

// Camera is a 2D affine viewport. Pos is the world point centered on
// screen; Scale is world-to-screen pixels per world unit. TargetPos and
// TargetScale are where Update steers Pos and Scale toward each tick;
// callers that want instant snapping set both pose and target together.
type Camera struct {
	Pos         Vec2
	TargetPos   Vec2
	Scale       float64
	TargetScale float64

	ScreenW, ScreenH int
}

// Vec2 is a world or screen-space 2D point.
type Vec2 struct{ X, Y float64 }

// New creates a camera centered at the origin with default zoom, sized to
// a viewport in pixels.
func New(screenW, screenH int) *Camera {
	return &Camera{
		Scale:       1.0,
		TargetScale: 1.0,
		ScreenW:     screenW,
		ScreenH:     screenH,
	}
}

// Resize updates the viewport size in pixels. World-to-screen conversions
// immediately reflect the new center, with no smoothing applied.
func (c *Camera) Resize(w, h int) {
	c.ScreenW, c.ScreenH = w, h
}

// Pan offsets the camera's target position by a world-space delta.
func (c *Camera) Pan(dx, dy float64) {
	c.TargetPos.X += dx
	c.TargetPos.Y += dy
}

// SetZoom sets the target zoom level, clamped to [MinZoom, MaxZoom].
func (c *Camera) SetZoom(z float64) {
	c.TargetScale = clamp(z, MinZoom, MaxZoom)
}

// ZoomToScreenPoint sets the target zoom to newScale while keeping the
// world point currently under (screenX, screenY) stationary: the same
// screen pixel maps to the same world point once the camera has converged
// to its new target. This is the required invariant: it reasons from the
// *current* pose (Pos/Scale), the pose actually on screen when the input
// happened, and solves for the TargetPos that preserves it at newScale.
func (c *Camera) ZoomToScreenPoint(newScale, screenX, screenY float64) {
	wx, wy := c.ScreenToWorld(screenX, screenY)
	newScale = clamp(newScale, MinZoom, MaxZoom)

	halfW := float64(c.ScreenW) / 2
	halfH := float64(c.ScreenH) / 2
	c.TargetScale = newScale
	c.TargetPos.X = wx - (screenX-halfW)/newScale
	c.TargetPos.Y = wy - (screenY-halfH)/newScale
}

// ZoomAtScreenPoint adjusts the target zoom by a relative delta (as
// emitted by the Input Aggregator's ZoomAtScreen command) while keeping
// the same screen-point invariant as ZoomToScreenPoint.
func (c *Camera) ZoomAtScreenPoint(delta, screenX, screenY float64) {
	c.ZoomToScreenPoint(c.TargetScale+delta, screenX, screenY)
}

// SnapToTarget immediately sets Pos/Scale to TargetPos/TargetScale,
// bypassing smoothing (e.g. on level load or a hard camera-jump order).
func (c *Camera) SnapToTarget() {
	c.Pos = c.TargetPos
	c.Scale = c.TargetScale
}

// Update advances Pos and Scale toward their targets: pos += (target_pos -
// pos) * k_pos * dt, and likewise for scale, snapping the remainder to
// zero once it falls under snapEpsilon so convergence actually settles.
func (c *Camera) Update(dt float64) {
	c.Pos.X += (c.TargetPos.X - c.Pos.X) * kPos * dt
	c.Pos.Y += (c.TargetPos.Y - c.Pos.Y) * kPos * dt
	c.Scale += (c.TargetScale - c.Scale) * kScale * dt

	if math.Abs(c.TargetPos.X-c.Pos.X) < snapEpsilon {
		c.Pos.X = c.TargetPos.X
	}
	if math.Abs(c.TargetPos.Y-c.Pos.Y) < snapEpsilon {
		c.Pos.Y = c.TargetPos.Y
	}
	if math.Abs(c.TargetScale-c.Scale) < snapEpsilon {
		c.Scale = c.TargetScale
	}
}

// WorldToScreen converts a world-space point to a screen pixel using the
// camera's current (not target) pose.
func (c *Camera) WorldToScreen(wx, wy float64) (float64, float64) {
	return WorldToScreen(wx, wy, c.Pos.X, c.Pos.Y, c.Scale, c.ScreenW, c.ScreenH)
}

// ScreenToWorld converts a screen pixel to a world-space point using the
// camera's current pose.
func (c *Camera) ScreenToWorld(sx, sy float64) (float64, float64) {
	return ScreenToWorld(sx, sy, c.Pos.X, c.Pos.Y, c.Scale, c.ScreenW, c.ScreenH)
}

// WorldToScreen is the pure conversion function, exposed standalone so
// renderers and tests can reason about a pose without holding a *Camera.
func WorldToScreen(wx, wy, camX, camY, scale float64, screenW, screenH int) (float64, float64) {
	sx := (wx-camX)*scale + float64(screenW)/2
	sy := (wy-camY)*scale + float64(screenH)/2
	return sx, sy
}

// ScreenToWorld is WorldToScreen's inverse.
func ScreenToWorld(sx, sy, camX, camY, scale float64, screenW, screenH int) (float64, float64) {
	wx := (sx-float64(screenW)/2)/scale + camX
	wy := (sy-float64(screenH)/2)/scale + camY
	return wx, wy
}

// VisibleWorldBounds returns the world-space rectangle currently on
// screen, for culling what the renderer submits to the batcher.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float64) {
	minX, minY = c.ScreenToWorld(0, 0)
	maxX, maxY = c.ScreenToWorld(float64(c.ScreenW), float64(c.ScreenH))
	return
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
