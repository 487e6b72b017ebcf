package systems

import (
	"math"

	"github.com/1siamBot/rts-engine/engine/core"
)

// projectileSpeed is the fixed travel speed (cells/sec) of a spawned
// projectile entity before it applies damage on arrival.
const projectileSpeed = 8.0

// hitscanRangeThreshold is the weapon range, in cells, at or under which a
// shot resolves instantly instead of spawning a travelling projectile.
const hitscanRangeThreshold = 1.5

// CombatSystem fires weapons on cooldown at a valid Target and resolves
// damage, deterministically, per spec §4.7.
type CombatSystem struct {
	Factions *core.FactionRegistry
	EventBus *core.EventBus
}

func (s *CombatSystem) Priority() int { return 20 }

func (s *CombatSystem) Update(w *core.World, dt float64) {
	now := float64(w.TickCount) * dt

	for _, id := range w.Query(core.CompCombat, core.CompTarget, core.CompTransform) {
		cbc, _ := w.Get(id, core.CompCombat)
		tgc, _ := w.Get(id, core.CompTarget)
		trc, _ := w.Get(id, core.CompTransform)
		cb := cbc.(*core.Combat)
		tg := tgc.(*core.Target)
		tr := trc.(*core.Transform)

		if !tg.HasEntity || tg.Kind == core.CommandIdle || tg.Kind == core.CommandMove {
			continue
		}
		if !w.Alive(tg.Entity) {
			tg.HasEntity = false
			tg.Kind = core.CommandIdle
			continue
		}
		ttrc, ok := w.Get(tg.Entity, core.CompTransform)
		if !ok {
			continue
		}
		ttr := ttrc.(*core.Transform)

		dist := chebyshev(tr.X, tr.Y, ttr.X, ttr.Y)
		if dist > cb.Weapon.Range {
			// Out of range: attack-move retargeting is AISystem's job
			// (it owns pathfinding requests); this system only fires.
			continue
		}
		if now-cb.LastFiredAt < cb.Weapon.Cooldown {
			continue
		}

		cb.LastFiredAt = now
		if cb.Weapon.Projectile == core.ProjectileNone || cb.Weapon.Range <= hitscanRangeThreshold {
			ApplyDamage(w, tg.Entity, cb.Weapon.Damage, s.EventBus, w.TickCount)
		} else {
			spawnProjectile(w, id, tg.Entity, tr, ttr, cb.Weapon)
		}
		if s.EventBus != nil {
			s.EventBus.Emit(core.Event{Type: core.EvtUnitAttack, Tick: w.TickCount, Payload: id})
		}
	}
}

func chebyshev(ax, ay, bx, by float64) float64 {
	return math.Max(math.Abs(ax-bx), math.Abs(ay-by))
}

func spawnProjectile(w *core.World, source, target core.Entity, sourceTr, targetTr *core.Transform, wep core.Weapon) {
	pid := w.Spawn()
	w.Attach(pid, &core.Transform{X: sourceTr.X, Y: sourceTr.Y})
	w.Attach(pid, &core.Target{Entity: target, HasEntity: true, Kind: core.CommandAttackTarget})
	w.Attach(pid, &core.Velocity{DesiredSpeed: projectileSpeed})
	w.Attach(pid, &core.Combat{Weapon: wep})
}

// ApplyDamage deducts damage from target's HP and despawns it at or below
// zero, emitting a death event for RenderingSystem to key an animation
// change off of.
func ApplyDamage(w *core.World, target core.Entity, damage int, bus *core.EventBus, tick uint64) {
	cbc, ok := w.Get(target, core.CompCombat)
	if !ok {
		return
	}
	cb := cbc.(*core.Combat)
	cb.CurrentHP -= damage
	if bus != nil {
		bus.Emit(core.Event{Type: core.EvtUnitDamaged, Tick: tick, Payload: target})
	}
	if cb.CurrentHP <= 0 {
		cb.CurrentHP = 0
		w.Despawn(target)
		if bus != nil {
			bus.Emit(core.Event{Type: core.EvtUnitDied, Tick: tick, Payload: target})
		}
	}
}
