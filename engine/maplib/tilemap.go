// Package maplib holds the tile grid the pathfinding and rendering layers
// both read: per-cell terrain, passability, and movement cost.
package maplib

import (
	"encoding/json"
	"os"
)

// TerrainType classifies a tile for cost and rendering purposes.
type TerrainType uint8

const (
	TerrainGrass TerrainType = iota
	TerrainDirt
	TerrainSand
	TerrainWater
	TerrainRock
	TerrainRoad
	TerrainBridge
	TerrainForest
)

// PassFlag is a bitmask of movement classes that can cross a tile.
type PassFlag uint8

const (
	PassInfantry PassFlag = 1 << iota
	PassVehicle
	PassNaval
	PassAir
	PassAll PassFlag = PassInfantry | PassVehicle | PassNaval | PassAir
)

// DefaultCellSize is the world-unit edge length of one grid cell (spec §4.5:
// "24 units/cell").
const DefaultCellSize = 24

// Tile is a single grid cell.
type Tile struct {
	Terrain  TerrainType `json:"terrain"`
	Passable PassFlag    `json:"passable"`
	Variant  uint8       `json:"variant"` // visual variant index
	Occupied bool        `json:"-"`       // runtime: building/unit reservation
}

// TileMap is the game map's terrain grid.
type TileMap struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tiles  []Tile `json:"tiles"`

	CellSize int `json:"cell_size"` // world units per cell
}

// NewTileMap creates an empty, fully passable grass map.
func NewTileMap(name string, width, height int) *TileMap {
	tm := &TileMap{
		Name:     name,
		Width:    width,
		Height:   height,
		Tiles:    make([]Tile, width*height),
		CellSize: DefaultCellSize,
	}
	for i := range tm.Tiles {
		tm.Tiles[i] = Tile{Terrain: TerrainGrass, Passable: PassAll}
	}
	return tm
}

// At returns a pointer to the tile at (x, y), or nil if out of bounds.
func (tm *TileMap) At(x, y int) *Tile {
	if !tm.InBounds(x, y) {
		return nil
	}
	return &tm.Tiles[y*tm.Width+x]
}

// InBounds reports whether (x, y) is within the grid.
func (tm *TileMap) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < tm.Width && y < tm.Height
}

// IsPassable reports whether a tile can be traversed by a given movement
// class and is not currently occupied.
func (tm *TileMap) IsPassable(x, y int, flag PassFlag) bool {
	t := tm.At(x, y)
	if t == nil {
		return false
	}
	return t.Passable&flag != 0 && !t.Occupied
}

// SetOccupied marks a tile as occupied or free, e.g. for building placement
// or a reserved destination cell.
func (tm *TileMap) SetOccupied(x, y int, occupied bool) {
	if t := tm.At(x, y); t != nil {
		t.Occupied = occupied
	}
}

// SetTerrain paints a rectangular region with a terrain type and updates
// its default passability.
func (tm *TileMap) SetTerrain(x1, y1, x2, y2 int, terrain TerrainType) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			t := tm.At(x, y)
			if t == nil {
				continue
			}
			t.Terrain = terrain
			switch terrain {
			case TerrainWater:
				t.Passable = PassNaval | PassAir
			case TerrainRock:
				t.Passable = PassInfantry | PassAir
			default:
				t.Passable = PassAll
			}
		}
	}
}

// WorldToCell converts a world-space coordinate to its containing cell.
func (tm *TileMap) WorldToCell(wx, wy float64) (int, int) {
	cs := float64(tm.CellSize)
	if cs <= 0 {
		cs = DefaultCellSize
	}
	return int(wx / cs), int(wy / cs)
}

// CellCenterWorld returns the world-space center of a cell.
func (tm *TileMap) CellCenterWorld(x, y int) (float64, float64) {
	cs := float64(tm.CellSize)
	if cs <= 0 {
		cs = DefaultCellSize
	}
	return (float64(x) + 0.5) * cs, (float64(y) + 0.5) * cs
}

// SaveJSON writes the map to path as JSON.
func (tm *TileMap) SaveJSON(path string) error {
	data, err := json.MarshalIndent(tm, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadJSON reads a map from path.
func LoadJSON(path string) (*TileMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tm TileMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, err
	}
	return &tm, nil
}
