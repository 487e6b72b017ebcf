package systems

import (
	"testing"

	"github.com/1siamBot/rts-engine/engine/core"
)

func spawnAttacker(w *core.World, x, y float64, weaponRange float64, projectile core.ProjectileKind) core.Entity {
	id := w.Spawn()
	w.Attach(id, &core.Transform{X: x, Y: y})
	w.Attach(id, &core.Combat{MaxHP: 100, CurrentHP: 100, Weapon: core.Weapon{Damage: 25, Range: weaponRange, Projectile: projectile}})
	w.Attach(id, &core.Target{})
	return id
}

func TestCombatSystemSkipsTargetsWithMoveOrIdleCommand(t *testing.T) {
	w := core.NewWorld(20)
	s := &CombatSystem{}

	attacker := spawnAttacker(w, 0, 0, 5, core.ProjectileNone)
	target := spawnAttacker(w, 1, 0, 5, core.ProjectileNone)

	tgc, _ := w.Get(attacker, core.CompTarget)
	tg := tgc.(*core.Target)
	tg.Entity = target
	tg.HasEntity = true
	tg.Kind = core.CommandMove

	s.Update(w, 0.05)

	tcbc, _ := w.Get(target, core.CompCombat)
	if tcbc.(*core.Combat).CurrentHP != 100 {
		t.Fatal("expected a CommandMove target not to take damage")
	}
}

func TestCombatSystemHitscanAppliesDamageInstantly(t *testing.T) {
	w := core.NewWorld(20)
	s := &CombatSystem{}

	attacker := spawnAttacker(w, 0, 0, 5, core.ProjectileNone)
	target := spawnAttacker(w, 1, 0, 5, core.ProjectileNone)

	tgc, _ := w.Get(attacker, core.CompTarget)
	tg := tgc.(*core.Target)
	tg.Entity = target
	tg.HasEntity = true
	tg.Kind = core.CommandAttackTarget

	s.Update(w, 0.05)

	tcbc, _ := w.Get(target, core.CompCombat)
	if tcbc.(*core.Combat).CurrentHP != 75 {
		t.Fatalf("expected a hitscan weapon to apply damage immediately, HP=%d want 75", tcbc.(*core.Combat).CurrentHP)
	}
}

func TestCombatSystemOutOfRangeDoesNotFire(t *testing.T) {
	w := core.NewWorld(20)
	s := &CombatSystem{}

	attacker := spawnAttacker(w, 0, 0, 2, core.ProjectileNone)
	target := spawnAttacker(w, 10, 0, 2, core.ProjectileNone)

	tgc, _ := w.Get(attacker, core.CompTarget)
	tg := tgc.(*core.Target)
	tg.Entity = target
	tg.HasEntity = true
	tg.Kind = core.CommandAttackTarget

	s.Update(w, 0.05)

	tcbc, _ := w.Get(target, core.CompCombat)
	if tcbc.(*core.Combat).CurrentHP != 100 {
		t.Fatal("expected an out-of-range attacker not to fire")
	}
}

// TestCombatSystemRespectsWeaponCooldown drives "now" via w.TickCount
// directly (Update derives it as TickCount*dt) rather than looping ticks,
// so the elapsed-time gap between shots is exact and not at the mercy of
// whatever tick the first shot happens to land on.
func TestCombatSystemRespectsWeaponCooldown(t *testing.T) {
	w := core.NewWorld(20)
	s := &CombatSystem{}

	attacker := spawnAttacker(w, 0, 0, 5, core.ProjectileNone)
	acbc, _ := w.Get(attacker, core.CompCombat)
	acbc.(*core.Combat).Weapon.Cooldown = 1.0
	target := spawnAttacker(w, 1, 0, 5, core.ProjectileNone)

	tgc, _ := w.Get(attacker, core.CompTarget)
	tg := tgc.(*core.Target)
	tg.Entity = target
	tg.HasEntity = true
	tg.Kind = core.CommandAttackTarget

	const dt = 0.05
	w.TickCount = 25 // now = 1.25s, past the 1s cooldown from LastFiredAt=0
	s.Update(w, dt)   // fires, LastFiredAt = 1.25

	w.TickCount = 26 // now = 1.30s, only 0.05s since the last shot
	s.Update(w, dt)

	tcbc, _ := w.Get(target, core.CompCombat)
	if tcbc.(*core.Combat).CurrentHP != 75 {
		t.Fatalf("expected exactly one shot to land while the weapon is on cooldown, HP=%d want 75", tcbc.(*core.Combat).CurrentHP)
	}
}

func TestCombatSystemProjectileWeaponSpawnsProjectileEntityBeyondHitscanThreshold(t *testing.T) {
	w := core.NewWorld(20)
	s := &CombatSystem{}

	attacker := spawnAttacker(w, 0, 0, 5, core.ProjectileBullet)
	target := spawnAttacker(w, 3, 0, 5, core.ProjectileBullet)

	tgc, _ := w.Get(attacker, core.CompTarget)
	tg := tgc.(*core.Target)
	tg.Entity = target
	tg.HasEntity = true
	tg.Kind = core.CommandAttackTarget

	before := w.EntityCount()
	s.Update(w, 0.05)
	after := w.EntityCount()

	if after != before+1 {
		t.Fatalf("expected a projectile entity to be spawned for a beyond-hitscan-range shot, entity count %d -> %d", before, after)
	}
	tcbc, _ := w.Get(target, core.CompCombat)
	if tcbc.(*core.Combat).CurrentHP != 100 {
		t.Fatal("expected a travelling projectile not to apply damage on the firing tick")
	}
}

func TestApplyDamageDespawnsAtZeroHPAndEmitsDeathEvent(t *testing.T) {
	w := core.NewWorld(20)
	bus := core.NewEventBus()

	var diedPayload interface{}
	bus.On(core.EvtUnitDied, func(e core.Event) { diedPayload = e.Payload })

	target := spawnAttacker(w, 0, 0, 5, core.ProjectileNone)
	ApplyDamage(w, target, 1000, bus, w.TickCount)
	bus.Dispatch()

	if w.Alive(target) {
		t.Fatal("expected a target reduced to zero HP to be despawned")
	}
	if diedPayload != target {
		t.Fatalf("expected the death event payload to name the despawned entity, got %v", diedPayload)
	}
}

func TestApplyDamageLeavesSurvivorAlive(t *testing.T) {
	w := core.NewWorld(20)
	target := spawnAttacker(w, 0, 0, 5, core.ProjectileNone)

	ApplyDamage(w, target, 10, nil, w.TickCount)

	if !w.Alive(target) {
		t.Fatal("expected a target above zero HP to remain alive")
	}
	cbc, _ := w.Get(target, core.CompCombat)
	if cbc.(*core.Combat).CurrentHP != 90 {
		t.Fatalf("expected HP to be reduced by the damage amount, got %d", cbc.(*core.Combat).CurrentHP)
	}
}
