package core

import "time"

// GameState represents the overall game loop state.
type GameState uint8

const (
	StateStopped GameState = iota
	StatePlaying
	StatePaused
)

const (
	// MaxFrameDT bounds a single wall-clock wake-up's contribution to the
	// accumulator, preventing a spiral of death after a long stall.
	MaxFrameDT = 0.25
	// MaxTicksPerWake bounds how much catch-up work one wake-up performs;
	// once a wake-up has run this many ticks, whatever time is left in the
	// accumulator is discarded rather than carried into the next wake-up.
	MaxTicksPerWake = 5
)

// ClockError reports a recoverable clock misuse, such as stopping a clock
// that was never started.
type ClockError struct {
	Op string
}

func (e *ClockError) Error() string { return "clock: " + e.Op }

// ErrAlreadyStopped is returned by GameLoop.Stop when the loop is not
// currently running. It is recoverable and meant only to be logged.
var ErrAlreadyStopped = &ClockError{Op: "already stopped"}

// GameLoop drives simulation at a fixed timestep while rendering can run as
// fast as the host wants, per spec §4.1. World.Tick is the "one simulation
// tick" it repeats; the returned alpha is the interpolation fraction for
// RenderingSystem.
type GameLoop struct {
	World    *World
	State    GameState
	TickRate float64 // fixed ticks per second

	accumulator float64
	lastTime    time.Time
	nowFunc     func() time.Time
}

// NewGameLoop creates a stopped game loop at the given fixed tick rate.
func NewGameLoop(tickRate float64) *GameLoop {
	return &GameLoop{
		World:    NewWorld(tickRate),
		State:    StateStopped,
		TickRate: tickRate,
		nowFunc:  time.Now,
	}
}

// SetTargetRate changes the fixed simulation rate. Takes effect on the next
// Advance/Update call; does not retroactively rescale the accumulator.
func (gl *GameLoop) SetTargetRate(hz float64) {
	gl.TickRate = hz
	gl.World.TickRate = hz
}

// Start begins or resumes the loop. Idempotent: calling Start while already
// playing just resets the wall-clock reference so the next frame's delta
// isn't inflated by time spent paused.
func (gl *GameLoop) Start() {
	gl.State = StatePlaying
	gl.lastTime = gl.nowFunc()
}

// Pause suspends ticking without resetting the accumulator; Start resumes
// from where it left off.
func (gl *GameLoop) Pause() {
	if gl.State == StatePlaying {
		gl.State = StatePaused
	}
}

// Stop halts the loop. Returns ErrAlreadyStopped (recoverable, log-only) if
// the loop was not running.
func (gl *GameLoop) Stop() error {
	if gl.State == StateStopped {
		return ErrAlreadyStopped
	}
	gl.State = StateStopped
	gl.accumulator = 0
	return nil
}

// Update should be called every render frame. It advances the wall clock,
// runs zero or more fixed ticks, and returns the render interpolation
// alpha. It is a no-op (alpha still computed) while paused or stopped.
func (gl *GameLoop) Update() float64 {
	now := gl.nowFunc()
	frameTime := now.Sub(gl.lastTime).Seconds()
	gl.lastTime = now
	return gl.Advance(frameTime)
}

// Advance runs the fixed-step accumulator loop for an explicit frame
// duration, bypassing the wall clock. Exposed for deterministic tests and
// for hosts that already own a frame-timing source.
func (gl *GameLoop) Advance(frameTime float64) float64 {
	if frameTime < 0 {
		frameTime = 0
	}
	if frameTime > MaxFrameDT {
		frameTime = MaxFrameDT
	}
	gl.accumulator += frameTime

	step := 1.0 / gl.TickRate
	ticks := 0
	for gl.accumulator >= step && ticks < MaxTicksPerWake {
		if gl.State == StatePlaying {
			gl.World.Tick(step)
		}
		gl.accumulator -= step
		ticks++
	}
	if ticks == MaxTicksPerWake {
		// Catch-up budget exhausted: discard the residual rather than let
		// it balloon the next wake-up's tick count.
		gl.accumulator = 0
	}
	return gl.accumulator / step
}

// CurrentTick returns the current simulation tick count.
func (gl *GameLoop) CurrentTick() uint64 {
	return gl.World.TickCount
}
