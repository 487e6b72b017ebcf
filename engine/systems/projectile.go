package systems

import (
	"math"

	"github.com/1siamBot/rts-engine/engine/core"
)

// arrivalRadius is how close a projectile must get to its target's
// current position before it is treated as a hit.
const arrivalRadius = 0.3

// ProjectileSystem moves projectile entities (Transform + Velocity +
// Target + Combat, spawned by CombatSystem) toward their target each tick
// and applies damage on arrival, per spec §4.7's "projectile travels at
// fixed speed and applies damage on arrival".
type ProjectileSystem struct {
	EventBus *core.EventBus
}

func (s *ProjectileSystem) Priority() int { return 25 }

func (s *ProjectileSystem) Update(w *core.World, dt float64) {
	for _, id := range w.Query(core.CompTransform, core.CompVelocity, core.CompTarget, core.CompCombat) {
		trc, _ := w.Get(id, core.CompTransform)
		velc, _ := w.Get(id, core.CompVelocity)
		tgc, _ := w.Get(id, core.CompTarget)
		cbc, _ := w.Get(id, core.CompCombat)
		tr := trc.(*core.Transform)
		vel := velc.(*core.Velocity)
		tg := tgc.(*core.Target)
		cb := cbc.(*core.Combat)

		if !tg.HasEntity {
			w.Despawn(id)
			continue
		}
		if !w.Alive(tg.Entity) {
			w.Despawn(id)
			continue
		}
		ttrc, _ := w.Get(tg.Entity, core.CompTransform)
		ttr := ttrc.(*core.Transform)

		dx, dy := ttr.X-tr.X, ttr.Y-tr.Y
		dist := math.Sqrt(dx*dx + dy*dy)

		if dist < arrivalRadius {
			ApplyDamage(w, tg.Entity, cb.Weapon.Damage, s.EventBus, w.TickCount)
			if s.EventBus != nil {
				s.EventBus.Emit(core.Event{Type: core.EvtProjectileHit, Tick: w.TickCount, Payload: id})
			}
			w.Despawn(id)
			continue
		}

		speed := vel.DesiredSpeed * dt
		tr.X += dx / dist * speed
		tr.Y += dy / dist * speed
		tr.Facing = core.FacingFromVector(dx, dy)
	}
}
