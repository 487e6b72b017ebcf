// Package input normalizes a host's raw pointer/keyboard/wheel events into
// a per-frame command queue, replacing the teacher's direct ebiten-polling
// InputState with an event-stream-driven Aggregator: the host pumps
// RawEvents in (ebiten callbacks, browser DOM events, a replay log) and
// every system downstream only ever sees Commands.
package input

import "math"

// EventKind tags a RawEvent's variant.
type EventKind uint8

const (
	EvPointerMove EventKind = iota
	EvPointerDown
	EvPointerUp
	EvWheel
	EvKeyDown
	EvKeyUp
	EvFocusLost
	EvResize
)

// Button identifies a pointer button.
type Button uint8

const (
	ButtonLeft Button = iota
	ButtonRight
)

// RawEvent is one host-reported input event. Only the fields relevant to
// Kind are meaningful; the rest are zero.
type RawEvent struct {
	Kind EventKind

	X, Y   float64 // pointer position, for Move/Down/Up
	Button Button  // Down/Up

	DeltaX, DeltaY float64 // Wheel
	Ctrl           bool    // Wheel: ctrl/cmd modifier held
	Precise        bool    // Wheel: reported by a precise/continuous source (trackpad)

	Key string // KeyDown/KeyUp

	W, H int // Resize
}

// CommandKind tags a Command's variant (spec §4.2's emitted tagged union).
type CommandKind uint8

const (
	CmdMove CommandKind = iota
	CmdZoomAtScreen
	CmdPan
	CmdSelectAtScreen
	CmdBoxSelect
	CmdCommandAtScreen
	CmdHotkey
)

// CommandTargetKind selects what a CommandAtScreen means.
type CommandTargetKind uint8

const (
	TargetMove CommandTargetKind = iota
	TargetAttack
	TargetSmart
)

// Command is one normalized, consumable instruction for this frame.
// World-space commands carry screen coordinates; the Camera resolves them
// to world space when consumed, per spec §4.2.
type Command struct {
	Kind CommandKind

	DX, DY float64 // Move, Pan

	ScreenX, ScreenY float64 // ZoomAtScreen/SelectAtScreen/BoxSelect origin/CommandAtScreen
	X1, Y1           float64 // BoxSelect's second corner
	Delta            float64 // ZoomAtScreen

	Additive   bool              // SelectAtScreen, BoxSelect
	TargetKind CommandTargetKind // CommandAtScreen

	KeyCode string // Hotkey
}

const (
	// DefaultDragThreshold is how far the pointer must move with a button
	// held before a click becomes a drag (spec's Open Question default).
	DefaultDragThreshold = 4.0
	// DefaultEdgeThreshold is the viewport-edge trigger zone, in pixels,
	// for continuous edge-scroll.
	DefaultEdgeThreshold = 50.0
	// MaxZoomDeltaPerEvent clamps a single wheel/pinch event's zoom
	// contribution.
	MaxZoomDeltaPerEvent = 0.25
	// edgeScrollSpeed is the fixed world-agnostic pan magnitude (pixels
	// per second) applied while the pointer sits in the edge zone.
	edgeScrollSpeed = 600.0
	// wheelZoomSensitivity converts a wheel tick's deltaY into a zoom
	// delta before clamping.
	wheelZoomSensitivity = 0.001
)

// Aggregator accumulates RawEvents and produces the frame's Command queue.
type Aggregator struct {
	heldKeys    map[string]bool
	heldButtons map[Button]bool

	pointerX, pointerY         float64
	dragStartX, dragStartY     float64
	dragButtonDown             bool
	dragging                   bool
	dragThreshold, edgeThresh  float64
	screenW, screenH           int

	queue []Command
}

// NewAggregator creates an empty aggregator sized to a viewport.
func NewAggregator(screenW, screenH int) *Aggregator {
	return &Aggregator{
		heldKeys:      make(map[string]bool),
		heldButtons:   make(map[Button]bool),
		dragThreshold: DefaultDragThreshold,
		edgeThresh:    DefaultEdgeThreshold,
		screenW:       screenW,
		screenH:       screenH,
	}
}

// HeldKey reports whether a key is currently held.
func (a *Aggregator) HeldKey(code string) bool { return a.heldKeys[code] }

// HeldButton reports whether a pointer button is currently held.
func (a *Aggregator) HeldButton(b Button) bool { return a.heldButtons[b] }

// Feed processes one raw host event, queuing zero or more Commands.
func (a *Aggregator) Feed(ev RawEvent) {
	switch ev.Kind {
	case EvPointerMove:
		a.onPointerMove(ev)
	case EvPointerDown:
		a.onPointerDown(ev)
	case EvPointerUp:
		a.onPointerUp(ev)
	case EvWheel:
		a.onWheel(ev)
	case EvKeyDown:
		if !a.heldKeys[ev.Key] {
			a.queue = append(a.queue, Command{Kind: CmdHotkey, KeyCode: ev.Key})
		}
		a.heldKeys[ev.Key] = true
	case EvKeyUp:
		a.heldKeys[ev.Key] = false
	case EvFocusLost:
		a.clearHeldState()
	case EvResize:
		a.screenW, a.screenH = ev.W, ev.H
	}
}

func (a *Aggregator) onPointerMove(ev RawEvent) {
	dx := ev.X - a.pointerX
	dy := ev.Y - a.pointerY
	a.pointerX, a.pointerY = ev.X, ev.Y

	if a.heldButtons[ButtonRight] {
		// Camera-drag pan: move the world opposite the pointer delta.
		a.queue = append(a.queue, Command{Kind: CmdPan, DX: -dx, DY: -dy})
		return
	}
	if a.dragButtonDown && !a.dragging {
		ddx := ev.X - a.dragStartX
		ddy := ev.Y - a.dragStartY
		if ddx*ddx+ddy*ddy > a.dragThreshold*a.dragThreshold {
			a.dragging = true
		}
	}
}

func (a *Aggregator) onPointerDown(ev RawEvent) {
	a.heldButtons[ev.Button] = true
	if ev.Button == ButtonLeft {
		a.dragStartX, a.dragStartY = ev.X, ev.Y
		a.dragButtonDown = true
		a.dragging = false
	}
}

func (a *Aggregator) onPointerUp(ev RawEvent) {
	additive := a.heldKeys["ShiftLeft"] || a.heldKeys["ShiftRight"] || a.heldKeys["Shift"]

	switch ev.Button {
	case ButtonLeft:
		if a.dragging {
			a.queue = append(a.queue, Command{
				Kind:     CmdBoxSelect,
				ScreenX:  a.dragStartX,
				ScreenY:  a.dragStartY,
				X1:       ev.X,
				Y1:       ev.Y,
				Additive: additive,
			})
		} else {
			a.queue = append(a.queue, Command{
				Kind:     CmdSelectAtScreen,
				ScreenX:  ev.X,
				ScreenY:  ev.Y,
				Additive: additive,
			})
		}
		a.dragButtonDown = false
		a.dragging = false
	case ButtonRight:
		if !a.dragging {
			a.queue = append(a.queue, Command{
				Kind:       CmdCommandAtScreen,
				ScreenX:    ev.X,
				ScreenY:    ev.Y,
				TargetKind: TargetSmart,
			})
		}
	}
	a.heldButtons[ev.Button] = false
}

// onWheel classifies a wheel event as pinch-zoom, trackpad-pan, or
// mouse-wheel-zoom per spec §4.2: ctrlKey or a precise/continuous source
// means pinch-zoom; a delta with a nonzero horizontal component and no
// ctrl is a trackpad pan;
// otherwise it is an ordinary wheel-zoom tick.
func (a *Aggregator) onWheel(ev RawEvent) {
	if ev.Ctrl || ev.Precise {
		delta := clampZoomDelta(-ev.DeltaY * wheelZoomSensitivity)
		a.queue = append(a.queue, Command{
			Kind:    CmdZoomAtScreen,
			Delta:   delta,
			ScreenX: a.pointerX,
			ScreenY: a.pointerY,
		})
		return
	}
	if ev.DeltaX != 0 {
		a.queue = append(a.queue, Command{Kind: CmdPan, DX: -ev.DeltaX, DY: -ev.DeltaY})
		return
	}
	delta := clampZoomDelta(-ev.DeltaY * wheelZoomSensitivity)
	a.queue = append(a.queue, Command{
		Kind:    CmdZoomAtScreen,
		Delta:   delta,
		ScreenX: a.pointerX,
		ScreenY: a.pointerY,
	})
}

func clampZoomDelta(d float64) float64 {
	if d > MaxZoomDeltaPerEvent {
		return MaxZoomDeltaPerEvent
	}
	if d < -MaxZoomDeltaPerEvent {
		return -MaxZoomDeltaPerEvent
	}
	return d
}

func (a *Aggregator) clearHeldState() {
	a.heldKeys = make(map[string]bool)
	a.heldButtons = make(map[Button]bool)
	a.dragButtonDown = false
	a.dragging = false
}

// Tick runs once per frame independent of events: it emits a continuous
// edge-scroll Pan while the pointer sits within the viewport's edge zone,
// and a keyboard-driven Move while any WASD/arrow key is held (distinct
// from Pan since it is keyed, not pointer-driven, input).
func (a *Aggregator) Tick(dt float64) {
	var dx, dy float64
	if a.pointerX < a.edgeThresh {
		dx -= 1
	} else if float64(a.screenW)-a.pointerX < a.edgeThresh {
		dx += 1
	}
	if a.pointerY < a.edgeThresh {
		dy -= 1
	} else if float64(a.screenH)-a.pointerY < a.edgeThresh {
		dy += 1
	}
	if dx != 0 || dy != 0 {
		norm := math.Hypot(dx, dy)
		speed := edgeScrollSpeed * dt
		a.queue = append(a.queue, Command{Kind: CmdPan, DX: dx / norm * speed, DY: dy / norm * speed})
	}

	var mx, my float64
	if a.heldKeys["KeyA"] || a.heldKeys["ArrowLeft"] {
		mx -= 1
	}
	if a.heldKeys["KeyD"] || a.heldKeys["ArrowRight"] {
		mx += 1
	}
	if a.heldKeys["KeyW"] || a.heldKeys["ArrowUp"] {
		my -= 1
	}
	if a.heldKeys["KeyS"] || a.heldKeys["ArrowDown"] {
		my += 1
	}
	if mx != 0 || my != 0 {
		norm := math.Hypot(mx, my)
		speed := edgeScrollSpeed * dt
		a.queue = append(a.queue, Command{Kind: CmdMove, DX: mx / norm * speed, DY: my / norm * speed})
	}
}

// Drain returns the queued commands and clears the queue; call once per
// frame after Tick and after feeding every event the host reported.
func (a *Aggregator) Drain() []Command {
	cmds := a.queue
	a.queue = nil
	return cmds
}

// DragRect returns the in-progress box-select rectangle, if a left-button
// drag is active.
func (a *Aggregator) DragRect() (x0, y0, x1, y1 float64, active bool) {
	if !a.dragging {
		return 0, 0, 0, 0, false
	}
	return a.dragStartX, a.dragStartY, a.pointerX, a.pointerY, true
}
