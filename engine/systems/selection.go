package systems

import (
	"github.com/1siamBot/rts-engine/engine/camera"
	"github.com/1siamBot/rts-engine/engine/core"
	"github.com/1siamBot/rts-engine/engine/input"
	"github.com/1siamBot/rts-engine/engine/maplib"
	"github.com/1siamBot/rts-engine/engine/pathfind"
)

// groupMoveFlowFieldThreshold is the minimum number of units in one move
// order before SelectionSystem computes a single shared FlowField instead
// of enqueueing one A* request per unit (spec's supplemental group-movement
// fast path).
const groupMoveFlowFieldThreshold = 8

// flowFieldTraceCap bounds TracePath's walk length; a field this large
// covers any plausible map without risking a runaway trace on a malformed
// field.
const flowFieldTraceCap = 4096

// SelectionSystem translates the frame's input Commands into selection
// state and move/attack orders, per spec §4.9. It has no teacher
// ancestor: the teacher's selection logic lived inline in cmd/game/main.go
// rather than as its own system.
type SelectionSystem struct {
	Camera        *camera.Camera
	Queue         PathRequester
	NavGrid       *pathfind.NavGrid
	Factions      *core.FactionRegistry
	PlayerFaction string

	pending []input.Command
}

// PathRequester is the subset of pathfind.Queue-driven behavior Selection
// needs; satisfied by RequestPath's world+queue pairing at call sites.
type PathRequester interface {
	Request(w *core.World, e core.Entity, goal core.Cell, priority int)
}

func (s *SelectionSystem) Priority() int { return 15 }

// Feed queues this frame's input commands for the next Update call.
func (s *SelectionSystem) Feed(cmds []input.Command) {
	s.pending = append(s.pending, cmds...)
}

func (s *SelectionSystem) Update(w *core.World, dt float64) {
	cmds := s.pending
	s.pending = nil

	for _, cmd := range cmds {
		switch cmd.Kind {
		case input.CmdSelectAtScreen:
			s.selectAtScreen(w, cmd.ScreenX, cmd.ScreenY, cmd.Additive)
		case input.CmdBoxSelect:
			s.boxSelect(w, cmd.ScreenX, cmd.ScreenY, cmd.X1, cmd.Y1, cmd.Additive)
		case input.CmdCommandAtScreen:
			s.commandAtScreen(w, cmd.ScreenX, cmd.ScreenY, cmd.TargetKind)
		}
	}
}

func (s *SelectionSystem) selectAtScreen(w *core.World, sx, sy float64, additive bool) {
	wx, wy := s.Camera.ScreenToWorld(sx, sy)
	picked, ok := s.pickFrontmost(w, wx, wy)

	if !additive {
		s.clearSelection(w)
	}
	if !ok {
		return
	}
	selc, _ := w.Get(picked, core.CompSelectable)
	sel := selc.(*core.Selectable)
	if additive && sel.State == core.SelSelected {
		sel.State = core.SelUnselected
	} else {
		sel.State = core.SelSelected
	}
}

// pickFrontmost returns the Selectable whose circle contains (wx, wy),
// preferring the entity drawn on the greatest layer, then the smallest
// entity slot.
func (s *SelectionSystem) pickFrontmost(w *core.World, wx, wy float64) (core.Entity, bool) {
	var best core.Entity
	var bestLayer core.DrawLayer
	found := false

	for _, id := range w.Query(core.CompSelectable, core.CompTransform) {
		selc, _ := w.Get(id, core.CompSelectable)
		trc, _ := w.Get(id, core.CompTransform)
		sel := selc.(*core.Selectable)
		tr := trc.(*core.Transform)

		dx, dy := wx-tr.X, wy-tr.Y
		if dx*dx+dy*dy > sel.Radius*sel.Radius {
			continue
		}
		layer := core.LayerUnit
		if spc, ok := w.Get(id, core.CompSprite); ok {
			layer = spc.(*core.Sprite).Layer
		}
		if !found || layer > bestLayer || (layer == bestLayer && id.Slot < best.Slot) {
			best, bestLayer, found = id, layer, true
		}
	}
	return best, found
}

func (s *SelectionSystem) boxSelect(w *core.World, sx0, sy0, sx1, sy1 float64, additive bool) {
	wx0, wy0 := s.Camera.ScreenToWorld(sx0, sy0)
	wx1, wy1 := s.Camera.ScreenToWorld(sx1, sy1)
	if wx0 > wx1 {
		wx0, wx1 = wx1, wx0
	}
	if wy0 > wy1 {
		wy0, wy1 = wy1, wy0
	}

	if !additive {
		s.clearSelection(w)
	}
	for _, id := range w.Query(core.CompSelectable, core.CompTransform) {
		selc, _ := w.Get(id, core.CompSelectable)
		trc, _ := w.Get(id, core.CompTransform)
		sel := selc.(*core.Selectable)
		tr := trc.(*core.Transform)

		if sel.Faction != s.PlayerFaction {
			continue
		}
		if tr.X >= wx0 && tr.X <= wx1 && tr.Y >= wy0 && tr.Y <= wy1 {
			sel.State = core.SelSelected
		}
	}
}

func (s *SelectionSystem) clearSelection(w *core.World) {
	for _, id := range w.Query(core.CompSelectable) {
		selc, _ := w.Get(id, core.CompSelectable)
		sel := selc.(*core.Selectable)
		if sel.State == core.SelSelected {
			sel.State = core.SelUnselected
		}
	}
}

func (s *SelectionSystem) commandAtScreen(w *core.World, sx, sy float64, kind input.CommandTargetKind) {
	wx, wy := s.Camera.ScreenToWorld(sx, sy)
	goalCell := core.Cell{X: int(wx), Y: int(wy)}

	enemyAtPoint, hasEnemy := s.pickFrontmost(w, wx, wy)
	if hasEnemy {
		if selc, ok := w.Get(enemyAtPoint, core.CompSelectable); ok {
			if s.Factions.AreAllies(selc.(*core.Selectable).Faction, s.PlayerFaction) {
				hasEnemy = false
			}
		}
	}

	smartAttack := hasEnemy && (kind == input.TargetSmart || kind == input.TargetAttack)

	var movers []core.Entity
	for _, id := range w.Query(core.CompSelectable, core.CompTarget) {
		selc, _ := w.Get(id, core.CompSelectable)
		sel := selc.(*core.Selectable)
		if sel.Faction != s.PlayerFaction || sel.State != core.SelSelected {
			continue
		}
		tgc, _ := w.Get(id, core.CompTarget)
		tg := tgc.(*core.Target)

		if smartAttack {
			tg.Entity = enemyAtPoint
			tg.HasEntity = true
			tg.Kind = core.CommandAttackTarget
			if s.Queue != nil {
				s.Queue.Request(w, id, goalCell, 0)
			}
			continue
		}

		tg.HasEntity = false
		tg.Kind = core.CommandMove
		tg.CellX, tg.CellY = goalCell.X, goalCell.Y
		movers = append(movers, id)
	}

	if !smartAttack && len(movers) > 0 {
		s.issueMoveOrders(w, movers, goalCell)
	}
}

// issueMoveOrders dispatches the move goal to every mover, using a single
// shared FlowField trace for large groups instead of one A* request per
// unit (spec's supplemental group-movement fast path), falling back to
// per-unit A* requests below the threshold or when no NavGrid is wired.
func (s *SelectionSystem) issueMoveOrders(w *core.World, movers []core.Entity, goalCell core.Cell) {
	if s.NavGrid == nil || len(movers) < groupMoveFlowFieldThreshold {
		for _, id := range movers {
			if s.Queue != nil {
				s.Queue.Request(w, id, goalCell, 0)
			}
		}
		return
	}

	ff := pathfind.NewFlowField(s.NavGrid, goalCell, maplib.PassAll)
	for _, id := range movers {
		trc, ok := w.Get(id, core.CompTransform)
		if !ok {
			continue
		}
		pfc, ok := w.Get(id, core.CompPathFollower)
		if !ok {
			continue
		}
		tr := trc.(*core.Transform)
		pf := pfc.(*core.PathFollower)
		start := core.Cell{X: int(tr.X), Y: int(tr.Y)}

		path := ff.TracePath(start, goalCell, flowFieldTraceCap)
		if path == nil {
			// Unreachable via the flow field (e.g. isolated by a wall this
			// unit's footprint can't cross): fall back to its own A* search.
			if s.Queue != nil {
				s.Queue.Request(w, id, goalCell, 0)
			}
			continue
		}
		pf.Path = path
		pf.WaypointIndex = 0
		pf.GoalCellAtPlan = goalCell
	}
}
