package pathfind

import (
	"github.com/1siamBot/rts-engine/engine/core"
	"github.com/1siamBot/rts-engine/engine/maplib"
)

// NavGrid is the navigation view over the tile map: static passability and
// cost plus a dynamic per-cell occupant set. Movement writes occupancy
// before pathfinding reads it within a tick, per spec §5's ordering note —
// NavGrid itself does no locking, it just holds the data both systems
// share on the single simulation thread.
type NavGrid struct {
	Width, Height int
	Costs         []float64 // movement cost per cell (0 = impassable)
	passFlags     []maplib.PassFlag
	occupants     [][]core.Entity
}

// NewNavGrid builds a navigation grid from a tile map snapshot.
func NewNavGrid(tm *maplib.TileMap) *NavGrid {
	ng := &NavGrid{
		Width:     tm.Width,
		Height:    tm.Height,
		Costs:     make([]float64, tm.Width*tm.Height),
		passFlags: make([]maplib.PassFlag, tm.Width*tm.Height),
		occupants: make([][]core.Entity, tm.Width*tm.Height),
	}
	for i, t := range tm.Tiles {
		ng.passFlags[i] = t.Passable
		if t.Passable == 0 || t.Occupied {
			ng.Costs[i] = 0
			continue
		}
		switch t.Terrain {
		case maplib.TerrainRoad, maplib.TerrainBridge:
			ng.Costs[i] = 0.7
		case maplib.TerrainForest:
			ng.Costs[i] = 1.5
		case maplib.TerrainSand:
			ng.Costs[i] = 1.3
		case maplib.TerrainRock:
			ng.Costs[i] = 2.0
		default:
			ng.Costs[i] = 1.0
		}
	}
	return ng
}

// Passable reports whether a cell can be entered by a given movement class:
// in bounds, statically passable, and not zero-cost (blocked).
func (ng *NavGrid) Passable(x, y int, flag maplib.PassFlag) bool {
	if x < 0 || y < 0 || x >= ng.Width || y >= ng.Height {
		return false
	}
	i := y*ng.Width + x
	return ng.passFlags[i]&flag != 0 && ng.Costs[i] > 0
}

// Cost returns the movement cost at (x, y), or 0 if out of bounds.
func (ng *NavGrid) Cost(x, y int) float64 {
	if x < 0 || y < 0 || x >= ng.Width || y >= ng.Height {
		return 0
	}
	return ng.Costs[y*ng.Width+x]
}

// SetBlocked marks a cell as statically impassable (e.g. building
// placement).
func (ng *NavGrid) SetBlocked(x, y int) {
	if x >= 0 && y >= 0 && x < ng.Width && y < ng.Height {
		ng.Costs[y*ng.Width+x] = 0
	}
}

// Reserve records that e occupies (x, y) this tick.
func (ng *NavGrid) Reserve(x, y int, e core.Entity) {
	if x < 0 || y < 0 || x >= ng.Width || y >= ng.Height {
		return
	}
	i := y*ng.Width + x
	ng.occupants[i] = append(ng.occupants[i], e)
}

// ClearOccupants drops every recorded occupant, called once per tick before
// UnitMovementSystem re-populates it.
func (ng *NavGrid) ClearOccupants() {
	for i := range ng.occupants {
		if len(ng.occupants[i]) > 0 {
			ng.occupants[i] = ng.occupants[i][:0]
		}
	}
}

// Occupants returns the entities currently reserved on (x, y).
func (ng *NavGrid) Occupants(x, y int) []core.Entity {
	if x < 0 || y < 0 || x >= ng.Width || y >= ng.Height {
		return nil
	}
	return ng.occupants[y*ng.Width+x]
}

// Refresh rebuilds the static nav grid from a tile map, preserving no
// dynamic occupancy (callers re-populate it on the next movement pass).
func (ng *NavGrid) Refresh(tm *maplib.TileMap) {
	*ng = *NewNavGrid(tm)
}
