// Package ai is the reactive per-unit AI system described in spec §4.8: an
// idle/pursue/engage/retreat state machine per entity. It replaces the
// teacher's AIController, which built base-building economy AI (build
// orders, production queues, attack waves) that this runtime's component
// set and scope do not carry.
package ai

import (
	"gonum.org/v1/gonum/floats"

	"github.com/1siamBot/rts-engine/engine/core"
	"github.com/1siamBot/rts-engine/engine/systems"
)

// defaultScanFraction bounds per-tick scan cost: each tick, AISystem
// re-evaluates roughly 1/N of its entities (spec's "amortized scanning"),
// so the total cost of N ticks covers every entity once.
const defaultScanFraction = 4

// leashArrival is how close (world units) a retreating unit must get to
// its leash origin before returning to Idle.
const leashArrival = 1.0

// loseTargetFactor scales AcquisitionRadius: a pursued enemy further than
// this multiple of the radius is considered lost.
const loseTargetFactor = 1.5

// AISystem runs the reactive state machine for every entity carrying
// AIState, amortizing the enemy-scan cost across ticks round-robin.
type AISystem struct {
	Factions     *core.FactionRegistry
	Queue        systems.PathRequester
	ScanFraction int // defaults to defaultScanFraction if <= 0

	offset int
}

func (s *AISystem) Priority() int { return 50 }

func (s *AISystem) Update(w *core.World, dt float64) {
	ids := w.Query(core.CompAIState, core.CompTransform, core.CompCombat, core.CompTarget, core.CompFaction)
	n := len(ids)
	if n == 0 {
		return
	}

	fraction := s.ScanFraction
	if fraction <= 0 {
		fraction = defaultScanFraction
	}
	batch := n/fraction + 1
	if batch > n {
		batch = n
	}

	for i := 0; i < batch; i++ {
		id := ids[(s.offset+i)%n]
		s.step(w, id)
	}
	s.offset = (s.offset + batch) % n
}

func (s *AISystem) step(w *core.World, id core.Entity) {
	aic, _ := w.Get(id, core.CompAIState)
	trc, _ := w.Get(id, core.CompTransform)
	cbc, _ := w.Get(id, core.CompCombat)
	tgc, _ := w.Get(id, core.CompTarget)
	facc, _ := w.Get(id, core.CompFaction)

	ai := aic.(*core.AIState)
	tr := trc.(*core.Transform)
	cb := cbc.(*core.Combat)
	tg := tgc.(*core.Target)
	fac := facc.(*core.Faction)

	switch ai.State {
	case core.AIIdle:
		s.tryAcquire(w, id, ai, tr, fac, tg)

	case core.AIPursuing:
		if !tg.HasEntity || !w.Alive(tg.Entity) {
			s.goIdle(ai, tg)
			return
		}
		ttr := mustTransform(w, tg.Entity)
		dist := tr.DistanceTo(ttr)
		switch {
		case dist <= cb.Weapon.Range:
			ai.State = core.AIEngaging
		case dist > ai.AcquisitionRadius*loseTargetFactor:
			s.goIdle(ai, tg)
		default:
			s.requestMoveToward(w, id, ttr)
		}

	case core.AIEngaging:
		if !tg.HasEntity || !w.Alive(tg.Entity) {
			s.goIdle(ai, tg)
			return
		}
		if cb.Ratio() < ai.RetreatThreshold {
			s.retreat(w, id, ai, tg)
			return
		}
		ttr := mustTransform(w, tg.Entity)
		if tr.DistanceTo(ttr) > cb.Weapon.Range {
			ai.State = core.AIPursuing
		}

	case core.AIRetreating:
		leash := core.Transform{X: ai.LeashOriginX, Y: ai.LeashOriginY}
		if tr.DistanceTo(&leash) <= leashArrival {
			ai.State = core.AIIdle
		}
	}
}

func (s *AISystem) tryAcquire(w *core.World, id core.Entity, ai *core.AIState, tr *core.Transform, fac *core.Faction, tg *core.Target) {
	enemy, found := s.nearestEnemy(w, id, tr, fac, ai.AcquisitionRadius)
	if !found {
		return
	}
	tg.Entity = enemy
	tg.HasEntity = true
	tg.Kind = core.CommandAttackTarget
	ai.State = core.AIPursuing
}

// nearestEnemy gathers every hostile candidate within radius and picks the
// closest via gonum/floats.MinIdx rather than a hand-rolled running-min
// loop, matching pthm-soup's use of gonum for this kind of vector reduction.
func (s *AISystem) nearestEnemy(w *core.World, self core.Entity, tr *core.Transform, fac *core.Faction, radius float64) (core.Entity, bool) {
	var candidates []core.Entity
	var dists []float64

	for _, id := range w.Query(core.CompTransform, core.CompFaction, core.CompCombat) {
		if id == self {
			continue
		}
		ofacc, _ := w.Get(id, core.CompFaction)
		ofac := ofacc.(*core.Faction)
		if s.Factions.AreAllies(fac.ID, ofac.ID) || fac.ID == ofac.ID {
			continue
		}
		otrc, _ := w.Get(id, core.CompTransform)
		otr := otrc.(*core.Transform)
		d := tr.DistanceTo(otr)
		if d <= radius {
			candidates = append(candidates, id)
			dists = append(dists, d)
		}
	}
	if len(dists) == 0 {
		return core.Entity{}, false
	}
	idx := floats.MinIdx(dists)
	return candidates[idx], true
}

func (s *AISystem) retreat(w *core.World, id core.Entity, ai *core.AIState, tg *core.Target) {
	ai.State = core.AIRetreating
	tg.HasEntity = false
	tg.Kind = core.CommandMove
	goal := core.Cell{X: int(ai.LeashOriginX), Y: int(ai.LeashOriginY)}
	tg.CellX, tg.CellY = goal.X, goal.Y
	if s.Queue != nil {
		s.Queue.Request(w, id, goal, 2)
	}
}

func (s *AISystem) requestMoveToward(w *core.World, id core.Entity, target *core.Transform) {
	if s.Queue == nil {
		return
	}
	s.Queue.Request(w, id, core.Cell{X: int(target.X), Y: int(target.Y)}, 1)
}

func (s *AISystem) goIdle(ai *core.AIState, tg *core.Target) {
	ai.State = core.AIIdle
	tg.HasEntity = false
	tg.Kind = core.CommandIdle
}

func mustTransform(w *core.World, e core.Entity) *core.Transform {
	c, _ := w.Get(e, core.CompTransform)
	return c.(*core.Transform)
}
