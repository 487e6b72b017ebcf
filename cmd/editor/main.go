package main

import (
	"fmt"
	"image/color"
	"log"
	"math"
	"os"

	"github.com/1siamBot/rts-engine/editor"
	"github.com/1siamBot/rts-engine/engine/camera"
	"github.com/1siamBot/rts-engine/engine/maplib"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720
)

var terrainColors = map[maplib.TerrainType]color.RGBA{
	maplib.TerrainGrass:  {34, 139, 34, 255},
	maplib.TerrainDirt:   {139, 119, 101, 255},
	maplib.TerrainSand:   {238, 214, 175, 255},
	maplib.TerrainWater:  {30, 144, 255, 255},
	maplib.TerrainRock:   {128, 128, 128, 255},
	maplib.TerrainRoad:   {169, 169, 169, 255},
	maplib.TerrainBridge: {139, 90, 43, 255},
	maplib.TerrainForest: {0, 100, 0, 255},
}

var terrainNames = []string{"Grass", "Dirt", "Sand", "Water", "Rock", "Road", "Bridge", "Forest"}
var terrainOrder = []maplib.TerrainType{
	maplib.TerrainGrass, maplib.TerrainDirt, maplib.TerrainSand, maplib.TerrainWater,
	maplib.TerrainRock, maplib.TerrainRoad, maplib.TerrainBridge, maplib.TerrainForest,
}

// EditorApp is a standalone ebiten.Game driving the tile editor: it owns the
// camera and translates raw device polling directly into Editor brush
// strokes and camera motion, the same direct-polling idiom cmd/game's host
// layer uses for its own input.Aggregator feed.
type EditorApp struct {
	editor *editor.Editor
	cam    *camera.Camera
	hoverX int
	hoverY int
	selIdx int

	lastMX, lastMY int
}

func NewEditorApp() *EditorApp {
	a := &EditorApp{
		editor: editor.NewEditor(64, 64),
		cam:    camera.New(ScreenWidth, ScreenHeight),
	}
	a.cam.Pos = camera.Vec2{X: 32, Y: 32}
	a.cam.TargetPos = a.cam.Pos
	a.cam.SnapToTarget()

	if len(os.Args) > 1 {
		if err := a.editor.LoadMap(os.Args[1]); err != nil {
			log.Printf("editor: failed to load map %q: %v", os.Args[1], err)
		}
	}
	return a
}

func (a *EditorApp) Update() error {
	const panSpeed = 20.0
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyUp) {
		a.cam.Pan(0, -panSpeed/60.0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyDown) {
		a.cam.Pan(0, panSpeed/60.0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyLeft) {
		a.cam.Pan(-panSpeed/60.0, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyRight) {
		a.cam.Pan(panSpeed/60.0, 0)
	}

	mx, my := ebiten.CursorPosition()
	if _, wy := ebiten.Wheel(); wy != 0 {
		a.cam.ZoomAtScreenPoint(wy*0.1, float64(mx), float64(my))
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) {
		a.cam.Pan(float64(a.lastMX-mx)/a.cam.Scale, float64(a.lastMY-my)/a.cam.Scale)
	}
	a.lastMX, a.lastMY = mx, my
	a.cam.Update(1.0 / 60.0)

	wx, wy := a.cam.ScreenToWorld(float64(mx), float64(my))
	a.hoverX = int(math.Floor(wx))
	a.hoverY = int(math.Floor(wy))

	for i := 0; i < len(terrainOrder) && i < 9; i++ {
		if inpututil.IsKeyJustPressed(ebiten.Key1 + ebiten.Key(i)) {
			a.selIdx = i
			a.editor.Brush = terrainOrder[i]
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.editor.Tool = editor.ToolPaint
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		a.editor.Tool = editor.ToolErase
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		a.editor.Tool = editor.ToolVariant
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		a.editor.Tool = editor.ToolBlock
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		a.editor.BrushSize++
		if a.editor.BrushSize > 5 {
			a.editor.BrushSize = 1
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		a.editor.ShowGrid = !a.editor.ShowGrid
	}

	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && mx < ScreenWidth-200 {
		a.editor.Paint(a.hoverX, a.hoverY)
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl)
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyZ) {
		if shift {
			a.editor.Redo()
		} else {
			a.editor.Undo()
		}
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyS) {
		path := a.editor.FilePath
		if path == "" {
			path = "map.rtsmap"
		}
		if err := a.editor.SaveMap(path); err != nil {
			log.Printf("editor: save failed: %v", err)
		} else {
			log.Printf("editor: saved to %s", path)
		}
	}

	return nil
}

func (a *EditorApp) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{30, 30, 40, 255})

	tm := a.editor.TileMap
	minX, minY, maxX, maxY := a.cam.VisibleWorldBounds()
	for y := int(math.Floor(minY)); y <= int(math.Ceil(maxY)); y++ {
		for x := int(math.Floor(minX)); x <= int(math.Ceil(maxX)); x++ {
			t := tm.At(x, y)
			if t == nil {
				continue
			}
			clr, ok := terrainColors[t.Terrain]
			if !ok {
				clr = color.RGBA{80, 80, 80, 255}
			}
			sx0, sy0 := a.cam.WorldToScreen(float64(x), float64(y))
			sx1, sy1 := a.cam.WorldToScreen(float64(x+1), float64(y+1))
			vector.DrawFilledRect(screen, float32(sx0), float32(sy0), float32(sx1-sx0), float32(sy1-sy0), clr, false)
			if a.editor.ShowGrid {
				gridColor := color.RGBA{255, 255, 255, 40}
				vector.StrokeRect(screen, float32(sx0), float32(sy0), float32(sx1-sx0), float32(sy1-sy0), 1, gridColor, false)
			}
		}
	}

	if tm.InBounds(a.hoverX, a.hoverY) {
		sx0, sy0 := a.cam.WorldToScreen(float64(a.hoverX), float64(a.hoverY))
		sx1, sy1 := a.cam.WorldToScreen(float64(a.hoverX+1), float64(a.hoverY+1))
		hoverColor := color.RGBA{255, 255, 0, 180}
		vector.StrokeRect(screen, float32(sx0), float32(sy0), float32(sx1-sx0), float32(sy1-sy0), 2, hoverColor, false)
	}

	a.drawSidebar(screen)

	tile := tm.At(a.hoverX, a.hoverY)
	tn := "OOB"
	if tile != nil {
		tn = terrainNames[int(tile.Terrain)%len(terrainNames)]
	}
	info := fmt.Sprintf("Tile(%d,%d) %s | Brush:%s Size:%d | [1-8]Terrain [P]aint [O]erase [V]ariant [B]lock [Tab]Size [G]rid [Ctrl+Z]Undo [Ctrl+S]Save",
		a.hoverX, a.hoverY, tn, terrainNames[a.selIdx%len(terrainNames)], a.editor.BrushSize)
	ebitenutil.DebugPrintAt(screen, info, 5, ScreenHeight-20)
}

func (a *EditorApp) drawSidebar(screen *ebiten.Image) {
	sx := float32(ScreenWidth - 200)
	vector.DrawFilledRect(screen, sx, 0, 200, float32(ScreenHeight), color.RGBA{20, 20, 40, 220}, false)

	y := 10
	ebitenutil.DebugPrintAt(screen, "=== TERRAIN ===", int(sx)+10, y)
	y += 20
	for i, name := range terrainNames {
		clr := color.RGBA{50, 50, 80, 255}
		if i == a.selIdx {
			clr = color.RGBA{100, 100, 200, 255}
		}
		vector.DrawFilledRect(screen, sx+10, float32(y), 180, 20, clr, false)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("[%d] %s", i+1, name), int(sx)+15, y+3)
		y += 22
	}

	y += 10
	for _, t := range []string{"[P] Paint", "[O] Erase", "[V] Variant", "[B] Block toggle"} {
		ebitenutil.DebugPrintAt(screen, t, int(sx)+10, y)
		y += 18
	}

	if a.editor.Modified {
		ebitenutil.DebugPrintAt(screen, "* MODIFIED *", int(sx)+10, y+20)
	}
}

func (a *EditorApp) Layout(_, _ int) (int, int) {
	a.cam.Resize(ScreenWidth, ScreenHeight)
	return ScreenWidth, ScreenHeight
}

func main() {
	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("RTS Map Editor")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	app := NewEditorApp()
	if err := ebiten.RunGame(app); err != nil {
		log.Fatal(err)
	}
}
