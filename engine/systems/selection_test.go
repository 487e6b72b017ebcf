package systems

import (
	"testing"

	"github.com/1siamBot/rts-engine/engine/camera"
	"github.com/1siamBot/rts-engine/engine/core"
	"github.com/1siamBot/rts-engine/engine/input"
	"github.com/1siamBot/rts-engine/engine/maplib"
	"github.com/1siamBot/rts-engine/engine/pathfind"
)

// countingRequester satisfies PathRequester and records how many times
// Request was called, so tests can assert the group-move flow-field fast
// path bypasses per-unit A* requests above the threshold.
type countingRequester struct{ calls int }

func (c *countingRequester) Request(w *core.World, e core.Entity, goal core.Cell, priority int) {
	c.calls++
}

func newSelectionTestSystem(w *core.World, cam *camera.Camera, q PathRequester, ng *pathfind.NavGrid) *SelectionSystem {
	factions := core.NewFactionRegistry()
	factions.SetTeam("allied", 0)
	factions.SetTeam("soviet", 1)
	return &SelectionSystem{
		Camera:        cam,
		Queue:         q,
		NavGrid:       ng,
		Factions:      factions,
		PlayerFaction: "allied",
	}
}

func spawnSelectableUnit(w *core.World, x, y float64, faction string) core.Entity {
	id := w.Spawn()
	w.Attach(id, &core.Transform{X: x, Y: y})
	w.Attach(id, &core.Selectable{Radius: 0.5, Faction: faction})
	w.Attach(id, &core.Target{})
	w.Attach(id, &core.PathFollower{})
	return id
}

func TestSelectAtScreenTogglesAdditive(t *testing.T) {
	w := core.NewWorld(20)
	cam := camera.New(800, 600)
	s := newSelectionTestSystem(w, cam, nil, nil)

	id := spawnSelectableUnit(w, 0, 0, "allied")
	sx, sy := cam.WorldToScreen(0, 0)

	s.Feed([]input.Command{{Kind: input.CmdSelectAtScreen, ScreenX: sx, ScreenY: sy}})
	s.Update(w, 0.05)

	selc, _ := w.Get(id, core.CompSelectable)
	if selc.(*core.Selectable).State != core.SelSelected {
		t.Fatal("expected unit under the click point to become selected")
	}

	// Additive click on the same already-selected unit toggles it off.
	s.Feed([]input.Command{{Kind: input.CmdSelectAtScreen, ScreenX: sx, ScreenY: sy, Additive: true}})
	s.Update(w, 0.05)
	if selc.(*core.Selectable).State != core.SelUnselected {
		t.Fatal("expected an additive click on an already-selected unit to deselect it")
	}
}

func TestSelectAtScreenMissClearsSelectionUnlessAdditive(t *testing.T) {
	w := core.NewWorld(20)
	cam := camera.New(800, 600)
	s := newSelectionTestSystem(w, cam, nil, nil)

	id := spawnSelectableUnit(w, 0, 0, "allied")
	selc, _ := w.Get(id, core.CompSelectable)
	selc.(*core.Selectable).State = core.SelSelected

	farX, farY := cam.WorldToScreen(500, 500)
	s.Feed([]input.Command{{Kind: input.CmdSelectAtScreen, ScreenX: farX, ScreenY: farY}})
	s.Update(w, 0.05)

	if selc.(*core.Selectable).State != core.SelUnselected {
		t.Fatal("expected a non-additive miss-click to clear existing selection")
	}
}

func TestBoxSelectOnlySelectsOwnFaction(t *testing.T) {
	w := core.NewWorld(20)
	cam := camera.New(800, 600)
	s := newSelectionTestSystem(w, cam, nil, nil)

	ally := spawnSelectableUnit(w, 1, 1, "allied")
	enemy := spawnSelectableUnit(w, 2, 2, "soviet")

	sx0, sy0 := cam.WorldToScreen(0, 0)
	sx1, sy1 := cam.WorldToScreen(5, 5)
	s.Feed([]input.Command{{Kind: input.CmdBoxSelect, ScreenX: sx0, ScreenY: sy0, X1: sx1, Y1: sy1}})
	s.Update(w, 0.05)

	allyc, _ := w.Get(ally, core.CompSelectable)
	enemyc, _ := w.Get(enemy, core.CompSelectable)
	if allyc.(*core.Selectable).State != core.SelSelected {
		t.Fatal("expected the allied unit inside the box to be selected")
	}
	if enemyc.(*core.Selectable).State == core.SelSelected {
		t.Fatal("expected the enemy unit not to be selected by a box-select")
	}
}

func TestCommandAtScreenBelowThresholdUsesPerUnitRequest(t *testing.T) {
	w := core.NewWorld(20)
	cam := camera.New(800, 600)
	req := &countingRequester{}
	tm := maplib.NewTileMap("t", 20, 20)
	ng := pathfind.NewNavGrid(tm)
	s := newSelectionTestSystem(w, cam, req, ng)

	var ids []core.Entity
	for i := 0; i < 3; i++ { // below groupMoveFlowFieldThreshold
		id := spawnSelectableUnit(w, float64(i), 0, "allied")
		selc, _ := w.Get(id, core.CompSelectable)
		selc.(*core.Selectable).State = core.SelSelected
		ids = append(ids, id)
	}

	sx, sy := cam.WorldToScreen(10, 10)
	s.Feed([]input.Command{{Kind: input.CmdCommandAtScreen, ScreenX: sx, ScreenY: sy, TargetKind: input.TargetMove}})
	s.Update(w, 0.05)

	if req.calls != len(ids) {
		t.Fatalf("expected one Request call per selected unit below threshold, got %d want %d", req.calls, len(ids))
	}
}

func TestCommandAtScreenAboveThresholdUsesFlowFieldFastPath(t *testing.T) {
	w := core.NewWorld(20)
	cam := camera.New(800, 600)
	req := &countingRequester{}
	tm := maplib.NewTileMap("t", 30, 30)
	ng := pathfind.NewNavGrid(tm)
	s := newSelectionTestSystem(w, cam, req, ng)

	for i := 0; i < groupMoveFlowFieldThreshold; i++ {
		id := spawnSelectableUnit(w, float64(i), 0, "allied")
		selc, _ := w.Get(id, core.CompSelectable)
		selc.(*core.Selectable).State = core.SelSelected
	}

	sx, sy := cam.WorldToScreen(15, 15)
	s.Feed([]input.Command{{Kind: input.CmdCommandAtScreen, ScreenX: sx, ScreenY: sy, TargetKind: input.TargetMove}})
	s.Update(w, 0.05)

	if req.calls != 0 {
		t.Fatalf("expected the flow-field fast path to avoid per-unit A* requests on an open reachable grid, got %d calls", req.calls)
	}
}

func TestClearSelectionIdempotent(t *testing.T) {
	w := core.NewWorld(20)
	cam := camera.New(800, 600)
	s := newSelectionTestSystem(w, cam, nil, nil)

	id := spawnSelectableUnit(w, 0, 0, "allied")
	selc, _ := w.Get(id, core.CompSelectable)
	selc.(*core.Selectable).State = core.SelSelected

	s.clearSelection(w)
	s.clearSelection(w)
	if selc.(*core.Selectable).State != core.SelUnselected {
		t.Fatal("expected clearSelection to be idempotent and leave the unit unselected")
	}
}
