package core

import "testing"

func TestSpawnDespawnStaleHandle(t *testing.T) {
	w := NewWorld(20)
	e := w.Spawn()
	if !w.Alive(e) {
		t.Fatal("expected freshly spawned entity to be alive")
	}

	if err := w.Despawn(e); err != nil {
		t.Fatalf("Despawn returned error on live entity: %v", err)
	}
	if w.Alive(e) {
		t.Fatal("expected entity to be dead after Despawn")
	}

	// Despawning again is a stale-handle error, not a silent no-op.
	if err := w.Despawn(e); err == nil {
		t.Fatal("expected EcsError when despawning an already-stale handle")
	}
}

func TestSlotReuseBumpsGeneration(t *testing.T) {
	w := NewWorld(20)
	first := w.Spawn()
	if err := w.Despawn(first); err != nil {
		t.Fatalf("Despawn: %v", err)
	}

	second := w.Spawn()
	if second.Slot != first.Slot {
		t.Fatalf("expected freed slot %d to be reused, got %d", first.Slot, second.Slot)
	}
	if second.Generation == first.Generation {
		t.Fatal("expected generation to change on slot reuse")
	}
	if w.Alive(first) {
		t.Fatal("stale handle into a reused slot must not read as alive")
	}
	if !w.Alive(second) {
		t.Fatal("the new handle into the reused slot must be alive")
	}
}

type fakeTransform struct{ X float64 }

func (fakeTransform) Type() ComponentType { return CompTransform }

func TestAttachDetachAndQuery(t *testing.T) {
	w := NewWorld(20)
	e := w.Spawn()

	if err := w.Attach(e, fakeTransform{X: 1}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !w.Has(e, CompTransform) {
		t.Fatal("expected CompTransform to be present after Attach")
	}
	got := w.Query(CompTransform)
	if len(got) != 1 || got[0] != e {
		t.Fatalf("expected Query to return [%v], got %v", e, got)
	}

	if err := w.Detach(e, CompTransform); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if w.Has(e, CompTransform) {
		t.Fatal("expected CompTransform to be gone after Detach")
	}
}

func TestAttachOnStaleEntityErrors(t *testing.T) {
	w := NewWorld(20)
	e := w.Spawn()
	if err := w.Despawn(e); err != nil {
		t.Fatalf("Despawn: %v", err)
	}
	if err := w.Attach(e, fakeTransform{}); err == nil {
		t.Fatal("expected Attach on a stale entity to return EcsError")
	}
}

// countingSystem records how many times Update ran and optionally spawns an
// entity, to verify command-buffer deferral: a system must never observe the
// effects of its own Spawn/Despawn calls mid-update.
type countingSystem struct {
	prio     int
	runs     int
	spawnNew bool
	world    *World
	sawNew   bool
}

func (s *countingSystem) Priority() int { return s.prio }

func (s *countingSystem) Update(w *World, dt float64) {
	before := w.EntityCount()
	if s.spawnNew {
		w.Spawn()
	}
	after := w.EntityCount()
	if after != before {
		s.sawNew = true
	}
	s.runs++
}

func TestTickRunsSystemsInPriorityOrder(t *testing.T) {
	w := NewWorld(20)
	var order []int
	record := func(p int) *recordingSystem { return &recordingSystem{prio: p, order: &order} }
	w.AddSystem(record(10))
	w.AddSystem(record(0))
	w.AddSystem(record(5))

	w.Tick(0.05)

	want := []int{0, 5, 10}
	if len(order) != len(want) {
		t.Fatalf("expected %d system runs, got %d (%v)", len(want), len(order), order)
	}
	for i, p := range want {
		if order[i] != p {
			t.Fatalf("expected system priority order %v, got %v", want, order)
		}
	}
	if w.TickCount != 1 {
		t.Fatalf("expected TickCount 1 after one Tick, got %d", w.TickCount)
	}
}

type recordingSystem struct {
	prio  int
	order *[]int
}

func (s *recordingSystem) Priority() int { return s.prio }
func (s *recordingSystem) Update(w *World, dt float64) {
	*s.order = append(*s.order, s.prio)
}

func TestCommandBufferDeferredUntilSystemEnd(t *testing.T) {
	w := NewWorld(20)
	s := &countingSystem{spawnNew: true}
	w.AddSystem(s)
	w.Tick(0.05)
	if s.sawNew {
		t.Fatal("system observed its own mid-update Spawn before the command buffer flushed")
	}
	if w.EntityCount() != 1 {
		t.Fatalf("expected the spawn to have applied by end of tick, got %d entities", w.EntityCount())
	}
}

// panicSystem always panics, exercising safeUpdate's recover path and the
// three-consecutive-failure degraded threshold.
type panicSystem struct{}

func (panicSystem) Priority() int             { return 0 }
func (panicSystem) Update(w *World, dt float64) { panic("boom") }

func TestSystemPanicMarksDegradedAfterThreeTicks(t *testing.T) {
	w := NewWorld(20)
	w.AddSystem(panicSystem{})

	var gotErrs int
	w.OnSystemError = func(tick uint64, priority int, err error) { gotErrs++ }

	for i := 0; i < 3; i++ {
		w.Tick(0.05)
	}
	if gotErrs != 3 {
		t.Fatalf("expected 3 OnSystemError calls, got %d", gotErrs)
	}
	if !w.SystemDegraded(0) {
		t.Fatal("expected system at priority 0 to be degraded after 3 consecutive panics")
	}
}
