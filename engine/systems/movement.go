package systems

import (
	"math"

	"github.com/1siamBot/rts-engine/engine/core"
	"github.com/1siamBot/rts-engine/engine/maplib"
	"github.com/1siamBot/rts-engine/engine/pathfind"
)

// replanInterval is how long a still-moving entity waits before requesting
// a fresh path while its current one is stuck or stale (spec §4.5's
// "2 s since last replan while still moving" trigger).
const replanInterval = 2.0

// arrivalTolerance is the default distance (world units) within which an
// entity is considered to have reached its current waypoint.
const arrivalTolerance = 0.15

// goalMoveThreshold is how far (in cells) a tracked goal entity must have
// moved since the last plan before a PathFollower replans toward it.
const goalMoveThreshold = 2.0

// QueueAdapter wraps a pathfind.Queue as the PathRequester SelectionSystem
// and AISystem call to issue orders without importing pathfind directly.
type QueueAdapter struct {
	Queue *pathfind.Queue
}

// Request implements PathRequester.
func (a *QueueAdapter) Request(w *core.World, e core.Entity, goal core.Cell, priority int) {
	RequestPath(w, a.Queue, e, goal, priority, float64(w.TickCount)/w.TickRate)
}

// RequestPath enqueues a pathfinding request for e and records the
// planning bookkeeping on its PathFollower so PathfindingSystem and
// UnitMovementSystem can tell a fresh request from a stale one.
func RequestPath(w *core.World, q *pathfind.Queue, e core.Entity, goal core.Cell, priority int, nowSeconds float64) {
	pf, ok := w.Get(e, core.CompPathFollower)
	if !ok {
		return
	}
	tr, ok := w.Get(e, core.CompTransform)
	if !ok {
		return
	}
	p := pf.(*core.PathFollower)
	t := tr.(*core.Transform)
	start := core.Cell{X: int(t.X), Y: int(t.Y)}

	q.Enqueue(pathfind.Request{Entity: e, Start: start, Goal: goal, Flag: maplib.PassAll, Priority: priority})
	p.GoalCellAtPlan = goal
	p.LastReplanAt = nowSeconds
	p.ReplanCooldown = replanInterval
}

// PathfindingSystem drains the shared pathfinding Queue's per-tick budget
// and applies finished results onto each entity's PathFollower (spec §4.4
// system order, position 1).
type PathfindingSystem struct {
	Queue    *pathfind.Queue
	EventBus *core.EventBus
}

func (s *PathfindingSystem) Priority() int { return 0 }

func (s *PathfindingSystem) Update(w *core.World, dt float64) {
	s.Queue.Process()

	nowSeconds := float64(w.TickCount) / w.TickRate

	// Entities left over from a prior unreachable/budget-exhausted result
	// spend exactly one tick on the straight-line fallback before the
	// request is retried (spec §4.5).
	for _, e := range w.Query(core.CompPathFollower) {
		pfc, ok := w.Get(e, core.CompPathFollower)
		if !ok {
			continue
		}
		pf := pfc.(*core.PathFollower)
		if !pf.AwaitingRetry {
			continue
		}
		pf.ReplanCooldown -= dt
		if pf.ReplanCooldown <= 0 {
			pf.AwaitingRetry = false
			RequestPath(w, s.Queue, e, pf.GoalCellAtPlan, 0, nowSeconds)
		}
	}

	for _, e := range w.Query(core.CompPathFollower) {
		result, done := s.Queue.Poll(e)
		if !done {
			continue
		}
		pfc, _ := w.Get(e, core.CompPathFollower)
		pf := pfc.(*core.PathFollower)

		switch result.Status {
		case pathfind.StatusFound:
			pf.Path = result.Path
			pf.WaypointIndex = 0
			pf.AwaitingRetry = false
		case pathfind.StatusUnreachable, pathfind.StatusBudgetExhausted:
			// Fall back to a straight-line move toward the last
			// requested goal cell for one tick, then retry above.
			pf.Path = []core.Cell{pf.GoalCellAtPlan}
			pf.WaypointIndex = 0
			pf.AwaitingRetry = true
			pf.ReplanCooldown = dt
			if s.EventBus != nil {
				s.EventBus.Emit(core.Event{Type: core.EvtPathUnreachable, Tick: w.TickCount, Payload: e})
			}
		}
	}
}

// UnitMovementSystem advances entities along their current path at their
// configured speed (spec §4.6), running after PathfindingSystem so a path
// published this tick can be consumed the same tick.
type UnitMovementSystem struct {
	NavGrid *pathfind.NavGrid
	Queue   *pathfind.Queue
}

func (s *UnitMovementSystem) Priority() int { return 10 }

func (s *UnitMovementSystem) Update(w *core.World, dt float64) {
	s.NavGrid.ClearOccupants()

	ids := w.Query(core.CompTransform, core.CompVelocity, core.CompPathFollower)
	positions := make(map[core.Entity][3]float64, len(ids))
	for _, id := range ids {
		trc, _ := w.Get(id, core.CompTransform)
		tr := trc.(*core.Transform)
		positions[id] = [3]float64{tr.X, tr.Y, 0.5}
	}

	for _, id := range ids {
		trc, _ := w.Get(id, core.CompTransform)
		velc, _ := w.Get(id, core.CompVelocity)
		pfc, _ := w.Get(id, core.CompPathFollower)
		tr := trc.(*core.Transform)
		vel := velc.(*core.Velocity)
		pf := pfc.(*core.PathFollower)

		tr.PrevX, tr.PrevY = tr.X, tr.Y
		s.NavGrid.Reserve(int(tr.X), int(tr.Y), id)

		if pf.Done() {
			continue
		}

		target := pf.Path[pf.WaypointIndex]
		if !s.NavGrid.Passable(target.X, target.Y, maplib.PassAll) {
			// Next cell became blocked: hold position and ask for a
			// fresh path rather than walking into an obstacle.
			if pf.ReplanCooldown <= 0 {
				RequestPath(w, s.Queue, id, pf.GoalCellAtPlan, 0, float64(w.TickCount)/w.TickRate)
			} else {
				pf.ReplanCooldown -= dt
			}
			continue
		}

		var others [][3]float64
		for oid, op := range positions {
			if oid == id {
				continue
			}
			dx, dy := tr.X-op[0], tr.Y-op[1]
			if dx*dx+dy*dy < 9 {
				others = append(others, op)
			}
		}

		tx, ty := float64(target.X)+0.5, float64(target.Y)+0.5
		steer := pathfind.Steer(tr.X, tr.Y, vel.DesiredSpeed, tx, ty, others)
		step := arrivalTolerance
		if vel.ArrivalTolerance > 0 {
			step = vel.ArrivalTolerance
		}

		tr.X += steer.VX * dt
		tr.Y += steer.VY * dt
		if steer.VX != 0 || steer.VY != 0 {
			tr.Facing = core.FacingFromVector(steer.VX, steer.VY)
			vel.CurrentSpeed = math.Hypot(steer.VX, steer.VY)
		} else {
			vel.CurrentSpeed = 0
		}

		dx, dy := tx-tr.X, ty-tr.Y
		if dx*dx+dy*dy < step*step {
			pf.WaypointIndex++
		}

		if pf.ReplanCooldown > 0 {
			pf.ReplanCooldown -= dt
		}
	}
}
