package systems

import (
	"testing"

	"github.com/1siamBot/rts-engine/engine/core"
)

func spawnProjectileEntity(w *core.World, x, y float64, target core.Entity, speed float64, damage int) core.Entity {
	id := w.Spawn()
	w.Attach(id, &core.Transform{X: x, Y: y})
	w.Attach(id, &core.Velocity{DesiredSpeed: speed})
	w.Attach(id, &core.Target{Entity: target, HasEntity: true, Kind: core.CommandAttackTarget})
	w.Attach(id, &core.Combat{Weapon: core.Weapon{Damage: damage}})
	return id
}

func spawnStationaryTarget(w *core.World, x, y float64) core.Entity {
	id := w.Spawn()
	w.Attach(id, &core.Transform{X: x, Y: y})
	w.Attach(id, &core.Combat{MaxHP: 100, CurrentHP: 100})
	return id
}

func TestProjectileSystemMovesTowardTargetEachTick(t *testing.T) {
	w := core.NewWorld(20)
	s := &ProjectileSystem{}

	target := spawnStationaryTarget(w, 10, 0)
	proj := spawnProjectileEntity(w, 0, 0, target, 8.0, 25)

	s.Update(w, 0.05) // 8 * 0.05 = 0.4 cells traveled

	trc, _ := w.Get(proj, core.CompTransform)
	tr := trc.(*core.Transform)
	if tr.X < 0.39 || tr.X > 0.41 {
		t.Fatalf("expected the projectile to move ~0.4 cells toward its target, got X=%.4f", tr.X)
	}
}

func TestProjectileSystemAppliesDamageAndDespawnsOnArrival(t *testing.T) {
	w := core.NewWorld(20)
	s := &ProjectileSystem{}

	target := spawnStationaryTarget(w, 1, 0)
	proj := spawnProjectileEntity(w, 0.8, 0, target, 8.0, 25) // within arrivalRadius of target

	s.Update(w, 0.05)

	if w.Alive(proj) {
		t.Fatal("expected the projectile to despawn on arrival")
	}
	tcbc, _ := w.Get(target, core.CompCombat)
	if tcbc.(*core.Combat).CurrentHP != 75 {
		t.Fatalf("expected the target to take the projectile's damage on arrival, HP=%d want 75", tcbc.(*core.Combat).CurrentHP)
	}
}

func TestProjectileSystemDespawnsWhenTargetDies(t *testing.T) {
	w := core.NewWorld(20)
	s := &ProjectileSystem{}

	target := spawnStationaryTarget(w, 10, 0)
	proj := spawnProjectileEntity(w, 0, 0, target, 8.0, 25)
	w.Despawn(target)

	s.Update(w, 0.05)

	if w.Alive(proj) {
		t.Fatal("expected a projectile whose target died mid-flight to despawn harmlessly")
	}
}

func TestProjectileSystemUpdatesFacingTowardTravelDirection(t *testing.T) {
	w := core.NewWorld(20)
	s := &ProjectileSystem{}

	target := spawnStationaryTarget(w, 0, 10)
	proj := spawnProjectileEntity(w, 0, 0, target, 8.0, 25)

	s.Update(w, 0.05)

	trc, _ := w.Get(proj, core.CompTransform)
	want := core.FacingFromVector(0, 10)
	if trc.(*core.Transform).Facing != want {
		t.Fatalf("expected Facing to track the travel direction, got %d want %d", trc.(*core.Transform).Facing, want)
	}
}
