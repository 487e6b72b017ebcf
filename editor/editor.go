package editor

import (
	"github.com/1siamBot/rts-engine/engine/maplib"
)

// Action represents one undoable brush stroke over a single tile.
type Action struct {
	X, Y    int
	OldTile maplib.Tile
	NewTile maplib.Tile
}

// EditorTool selects what Paint does at the hovered cell.
type EditorTool int

const (
	ToolPaint EditorTool = iota
	ToolErase
	ToolVariant
	ToolBlock
)

// Editor holds map editor state: the tilemap under edit, current brush, and
// an undo/redo stack of tile-level Actions grouped per stroke.
type Editor struct {
	TileMap   *maplib.TileMap
	Brush     maplib.TerrainType
	BrushSize int
	Tool      EditorTool
	UndoStack [][]Action
	RedoStack [][]Action
	FilePath  string
	Modified  bool
	ShowGrid  bool
}

// NewEditor creates a new map editor over a blank grass tilemap.
func NewEditor(width, height int) *Editor {
	return &Editor{
		TileMap:   maplib.NewTileMap("Untitled", width, height),
		Brush:     maplib.TerrainGrass,
		BrushSize: 1,
		ShowGrid:  true,
	}
}

// LoadMap loads a map file, replacing the current tilemap and clearing undo
// history.
func (e *Editor) LoadMap(path string) error {
	tm, err := maplib.LoadJSON(path)
	if err != nil {
		return err
	}
	e.TileMap = tm
	e.FilePath = path
	e.Modified = false
	e.UndoStack = nil
	e.RedoStack = nil
	return nil
}

// SaveMap saves the current map, defaulting to the last loaded/saved path.
func (e *Editor) SaveMap(path string) error {
	if path == "" {
		path = e.FilePath
	}
	if path == "" {
		path = "untitled.rtsmap"
	}
	e.FilePath = path
	e.Modified = false
	return e.TileMap.SaveJSON(path)
}

// Paint applies the current brush at (cx, cy) across a square centered on
// it, 2*(BrushSize/2)+1 tiles wide (BrushSize itself when odd), recording
// one grouped undo action per stroke.
func (e *Editor) Paint(cx, cy int) {
	var actions []Action
	r := e.BrushSize / 2
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			x, y := cx+dx, cy+dy
			t := e.TileMap.At(x, y)
			if t == nil {
				continue
			}
			old := *t
			switch e.Tool {
			case ToolPaint:
				e.TileMap.SetTerrain(x, y, x, y, e.Brush)
			case ToolErase:
				e.TileMap.SetTerrain(x, y, x, y, maplib.TerrainGrass)
			case ToolVariant:
				t.Variant = (t.Variant + 1) % 4
			case ToolBlock:
				if t.Passable == 0 {
					t.Passable = maplib.PassAll
				} else {
					t.Passable = 0
				}
			}
			newTile := *e.TileMap.At(x, y)
			actions = append(actions, Action{X: x, Y: y, OldTile: old, NewTile: newTile})
		}
	}
	if len(actions) > 0 {
		e.UndoStack = append(e.UndoStack, actions)
		e.RedoStack = nil
		e.Modified = true
	}
}

// Undo reverts the last painted stroke.
func (e *Editor) Undo() {
	if len(e.UndoStack) == 0 {
		return
	}
	actions := e.UndoStack[len(e.UndoStack)-1]
	e.UndoStack = e.UndoStack[:len(e.UndoStack)-1]
	for _, a := range actions {
		t := e.TileMap.At(a.X, a.Y)
		if t != nil {
			*t = a.OldTile
		}
	}
	e.RedoStack = append(e.RedoStack, actions)
	e.Modified = true
}

// Redo re-applies the last undone stroke.
func (e *Editor) Redo() {
	if len(e.RedoStack) == 0 {
		return
	}
	actions := e.RedoStack[len(e.RedoStack)-1]
	e.RedoStack = e.RedoStack[:len(e.RedoStack)-1]
	for _, a := range actions {
		t := e.TileMap.At(a.X, a.Y)
		if t != nil {
			*t = a.NewTile
		}
	}
	e.UndoStack = append(e.UndoStack, actions)
	e.Modified = true
}

// NewMap replaces the current tilemap with a fresh blank one.
func (e *Editor) NewMap(name string, w, h int) {
	e.TileMap = maplib.NewTileMap(name, w, h)
	e.FilePath = ""
	e.Modified = false
	e.UndoStack = nil
	e.RedoStack = nil
}
