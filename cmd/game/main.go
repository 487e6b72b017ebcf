package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"net/http"
	"time"

	"github.com/1siamBot/rts-engine/engine/ai"
	"github.com/1siamBot/rts-engine/engine/atlas"
	"github.com/1siamBot/rts-engine/engine/camera"
	"github.com/1siamBot/rts-engine/engine/catalog"
	"github.com/1siamBot/rts-engine/engine/config"
	"github.com/1siamBot/rts-engine/engine/core"
	"github.com/1siamBot/rts-engine/engine/diag"
	"github.com/1siamBot/rts-engine/engine/input"
	"github.com/1siamBot/rts-engine/engine/maplib"
	"github.com/1siamBot/rts-engine/engine/pathfind"
	"github.com/1siamBot/rts-engine/engine/render"
	"github.com/1siamBot/rts-engine/engine/systems"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720
	MapSize      = 64

	factionAllied = "allied"
	factionSoviet = "soviet"
)

// Game implements ebiten.Game, wiring every engine package into one running
// session: config/catalog load, map and nav grid generation, the fixed
// GameLoop's World and its registered systems, input aggregation, camera,
// and the render facade/batcher/scene.
type Game struct {
	cfg     config.Config
	catalog *catalog.Catalog

	tileMap *maplib.TileMap
	navGrid *pathfind.NavGrid
	queue   *pathfind.Queue

	gameLoop *core.GameLoop
	factions *core.FactionRegistry
	eventBus *core.EventBus
	diagBus  *diag.Bus

	cam     *camera.Camera
	agg     *input.Aggregator
	sel     *systems.SelectionSystem
	atlas   *atlas.Atlas
	backend *render.EbitenBackend
	facade  *render.Facade
	scene   *render.Scene

	playerFaction string
	showGrid      bool
	paused        bool

	lastFrame time.Time
	lastAlpha float64
	lastDT    float64
	lastMX    int
	lastMY    int
}

// NewGame constructs a fully wired Game from a loaded config, failing only
// if the asset catalog cannot be read and parsed (spec §4.10's fatal init
// error).
func NewGame(cfg config.Config) (*Game, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}

	g := &Game{
		cfg:           cfg,
		catalog:       cat,
		tileMap:       generateDemoMap(),
		gameLoop:      core.NewGameLoop(cfg.TickRateHz),
		factions:      core.NewFactionRegistry(),
		eventBus:      core.NewEventBus(),
		diagBus:       diag.NewBus(),
		cam:           camera.New(ScreenWidth, ScreenHeight),
		agg:           input.NewAggregator(ScreenWidth, ScreenHeight),
		playerFaction: factionAllied,
		showGrid:      true,
		lastFrame:     time.Now(),
	}

	g.factions.SetTeam(factionAllied, 0)
	g.factions.SetTeam(factionSoviet, 1)

	g.navGrid = pathfind.NewNavGrid(g.tileMap)
	g.queue = pathfind.NewQueue(g.navGrid)
	g.queue.SetBudget(g.cfg.PathExpansionBudgetPerTick)

	g.diagBus.Subscribe(&logSink{})
	if g.cfg.DiagnosticsAddr != "" {
		ws := diag.NewWSServer()
		g.diagBus.Subscribe(ws)
		mux := http.NewServeMux()
		mux.Handle("/diagnostics", ws.Handler())
		addr := g.cfg.DiagnosticsAddr
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("diag: websocket listener stopped: %v", err)
			}
		}()
	}

	g.backend = render.NewEbitenBackend()
	g.atlas = atlas.New(g.backend.NewPage, atlas.DirFrameSource{Dir: g.cfg.FramesDir})
	g.atlas.SetUnitCap(g.cfg.TextureUnitCap)
	g.atlas.SetUploadBudget(g.cfg.UploadBudgetBytesPerFrame)
	g.facade = render.NewFacade(g.backend, g.atlas)
	g.scene = render.NewScene()

	queueAdapter := &systems.QueueAdapter{Queue: g.queue}

	g.sel = &systems.SelectionSystem{
		Camera:        g.cam,
		Queue:         queueAdapter,
		NavGrid:       g.navGrid,
		Factions:      g.factions,
		PlayerFaction: g.playerFaction,
	}

	w := g.gameLoop.World
	w.OnSystemError = func(tick uint64, priority int, err error) {
		g.diagBus.Emit(diag.Event{
			Kind: diag.EventSystemDegraded,
			Tick: tick,
			Fields: map[string]interface{}{
				"priority": priority,
				"error":    err.Error(),
			},
		})
	}
	w.AddSystem(&systems.PathfindingSystem{Queue: g.queue, EventBus: g.eventBus})
	w.AddSystem(g.sel)
	w.AddSystem(&systems.UnitMovementSystem{NavGrid: g.navGrid, Queue: g.queue})
	w.AddSystem(&systems.CombatSystem{Factions: g.factions, EventBus: g.eventBus})
	w.AddSystem(&systems.ProjectileSystem{EventBus: g.eventBus})
	w.AddSystem(&ai.AISystem{Factions: g.factions, Queue: queueAdapter})
	w.AddSystem(&systems.AnimationSystem{})

	g.spawnInitialEntities()

	g.cam.Pos = camera.Vec2{X: 12, Y: 12}
	g.cam.TargetPos = g.cam.Pos
	g.cam.SnapToTarget()

	g.gameLoop.Start()
	return g, nil
}

// spawnInitialEntities populates a small demo skirmish: a handful of units
// and one command post per faction, built from catalog entries rather than
// the teacher's hardcoded component literals.
func (g *Game) spawnInitialEntities() {
	w := g.gameLoop.World

	for i := 0; i < 5; i++ {
		g.spawnUnit(w, "allied_rifle", factionAllied, float64(8+i), 13, 0x2060FFFF)
	}
	g.spawnUnit(w, "allied_rocket", factionAllied, 10, 15, 0x2060FFFF)
	g.spawnBuilding(w, "allied_command", factionAllied, 10, 10, 0x2060FFFF)

	for i := 0; i < 5; i++ {
		g.spawnUnit(w, "soviet_conscript", factionSoviet, float64(52+i), 52, 0xC02020FF)
	}
	g.spawnUnit(w, "soviet_flak", factionSoviet, 54, 50, 0xC02020FF)
	g.spawnBuilding(w, "soviet_command", factionSoviet, 54, 54, 0xC02020FF)
}

func (g *Game) spawnUnit(w *core.World, key, faction string, x, y float64, teamColor uint32) core.Entity {
	entry, ok := g.catalog.Get(key)
	if !ok {
		log.Fatalf("game: catalog missing unit %q", key)
	}

	id := w.Spawn()
	w.Attach(id, &core.Transform{X: x, Y: y, PrevX: x, PrevY: y})
	w.Attach(id, &core.Velocity{DesiredSpeed: entry.Speed, ArrivalTolerance: 0.15})
	w.Attach(id, &core.PathFollower{})
	w.Attach(id, &core.Sprite{
		Key:         entry.SpriteKey,
		FrameCount:  entry.FrameCount,
		FrameRate:   entry.FrameRate,
		Loop:        core.LoopRepeat,
		Layer:       core.LayerUnit,
		TintFaction: faction,
	})
	w.Attach(id, &core.Selectable{Radius: 0.5, Faction: faction})
	w.Attach(id, &core.Combat{
		MaxHP:     entry.HP,
		CurrentHP: entry.HP,
		Weapon: core.Weapon{
			Damage:     entry.Weapon.Damage,
			Cooldown:   entry.Weapon.Cooldown,
			Range:      entry.Weapon.Range,
			Projectile: projectileKindFromCatalog(entry.Weapon.Projectile),
		},
	})
	w.Attach(id, &core.Target{})
	w.Attach(id, &core.Faction{ID: faction, TeamColor: teamColor})
	w.Attach(id, &core.AIState{
		AcquisitionRadius: 7.0,
		RetreatThreshold:  g.cfg.RetreatHPFraction,
		LeashOriginX:      x,
		LeashOriginY:      y,
	})
	return id
}

func (g *Game) spawnBuilding(w *core.World, key, faction string, x, y float64, teamColor uint32) core.Entity {
	entry, ok := g.catalog.Get(key)
	if !ok {
		log.Fatalf("game: catalog missing building %q", key)
	}
	fw, fh := 3, 3
	if entry.Footprint != nil {
		fw, fh = entry.Footprint.W, entry.Footprint.H
	}

	id := w.Spawn()
	w.Attach(id, &core.Transform{X: x, Y: y, PrevX: x, PrevY: y})
	w.Attach(id, &core.Sprite{
		Key:         entry.SpriteKey,
		FrameCount:  entry.FrameCount,
		FrameRate:   entry.FrameRate,
		Loop:        core.LoopHoldLast,
		Layer:       core.LayerBuilding,
		TintFaction: faction,
	})
	w.Attach(id, &core.Selectable{Radius: float64(fw), Faction: faction})
	w.Attach(id, &core.Combat{MaxHP: entry.HP, CurrentHP: entry.HP})
	w.Attach(id, &core.Faction{ID: faction, TeamColor: teamColor})
	w.Attach(id, &core.Building{
		Width: fw, Height: fh,
		ConstructionProgress: 1.0,
		ExitCellX:            int(x) + fw,
		ExitCellY:            int(y) + fh,
	})
	return id
}

func projectileKindFromCatalog(k catalog.ProjectileKind) core.ProjectileKind {
	switch k {
	case catalog.ProjectileBullet:
		return core.ProjectileBullet
	case catalog.ProjectileMissile:
		return core.ProjectileMissile
	default:
		return core.ProjectileNone
	}
}

// Update pumps host input into the Aggregator, classifies this frame's
// Commands into camera motion vs. SelectionSystem orders, and advances the
// fixed-timestep simulation.
func (g *Game) Update() error {
	now := time.Now()
	dt := now.Sub(g.lastFrame).Seconds()
	g.lastFrame = now
	g.lastDT = dt

	g.pumpInput()
	g.agg.Tick(dt)

	var selCmds []input.Command
	for _, cmd := range g.agg.Drain() {
		switch cmd.Kind {
		case input.CmdPan, input.CmdMove:
			g.cam.Pan(cmd.DX/g.cam.Scale, cmd.DY/g.cam.Scale)
		case input.CmdZoomAtScreen:
			g.cam.ZoomAtScreenPoint(cmd.Delta, cmd.ScreenX, cmd.ScreenY)
		case input.CmdSelectAtScreen, input.CmdBoxSelect, input.CmdCommandAtScreen:
			selCmds = append(selCmds, cmd)
		}
	}
	if len(selCmds) > 0 {
		g.sel.Feed(selCmds)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.paused = !g.paused
		if g.paused {
			g.gameLoop.Pause()
		} else {
			g.gameLoop.Start()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		g.showGrid = !g.showGrid
	}

	g.cam.Update(dt)
	alpha := g.gameLoop.Update()
	g.lastAlpha = alpha

	g.eventBus.Dispatch()
	g.diagBus.Dispatch()

	fps := 0.0
	if dt > 0 {
		fps = 1.0 / dt
	}
	g.diagBus.SampleCounters(diag.Counters{
		FPS:                   fps,
		Ticks:                 g.gameLoop.CurrentTick(),
		AtlasPages:            g.atlas.PageCount(),
		PendingUploads:        g.atlas.PendingCount(),
		AtlasPressure:         g.atlas.PressureLevel(),
		PathBudgetUtilization: g.queue.Utilization(),
	}, now)

	return nil
}

// pumpInput polls ebiten's current device state and feeds the deltas as
// RawEvents, the host-side half of the Aggregator contract (spec §4.2):
// the engine never polls ebiten directly past this function.
func (g *Game) pumpInput() {
	mx, my := ebiten.CursorPosition()
	if mx != g.lastMX || my != g.lastMY {
		g.agg.Feed(input.RawEvent{Kind: input.EvPointerMove, X: float64(mx), Y: float64(my)})
		g.lastMX, g.lastMY = mx, my
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.agg.Feed(input.RawEvent{Kind: input.EvPointerDown, X: float64(mx), Y: float64(my), Button: input.ButtonLeft})
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.agg.Feed(input.RawEvent{Kind: input.EvPointerUp, X: float64(mx), Y: float64(my), Button: input.ButtonLeft})
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		g.agg.Feed(input.RawEvent{Kind: input.EvPointerDown, X: float64(mx), Y: float64(my), Button: input.ButtonRight})
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonRight) {
		g.agg.Feed(input.RawEvent{Kind: input.EvPointerUp, X: float64(mx), Y: float64(my), Button: input.ButtonRight})
	}

	if _, dy := ebiten.Wheel(); dy != 0 {
		g.agg.Feed(input.RawEvent{Kind: input.EvWheel, DeltaY: dy * -100})
	}

	for code, key := range keyCodes {
		if inpututil.IsKeyJustPressed(key) {
			g.agg.Feed(input.RawEvent{Kind: input.EvKeyDown, Key: code})
		}
		if inpututil.IsKeyJustReleased(key) {
			g.agg.Feed(input.RawEvent{Kind: input.EvKeyUp, Key: code})
		}
	}
}

// keyCodes maps the movement/modifier keys the Aggregator recognizes by
// exact string code to their ebiten key constant.
var keyCodes = map[string]ebiten.Key{
	"KeyW":       ebiten.KeyW,
	"KeyA":       ebiten.KeyA,
	"KeyS":       ebiten.KeyS,
	"KeyD":       ebiten.KeyD,
	"ArrowUp":    ebiten.KeyUp,
	"ArrowDown":  ebiten.KeyDown,
	"ArrowLeft":  ebiten.KeyLeft,
	"ArrowRight": ebiten.KeyRight,
	"Shift":      ebiten.KeyShift,
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{12, 12, 20, 255})
	g.backend.Screen = screen

	if g.showGrid {
		g.drawGrid(screen)
	}

	minX, minY, maxX, maxY := g.cam.VisibleWorldBounds()
	sprites := g.scene.Build(g.gameLoop.World, g.lastAlpha, g.lastDT)
	sprites = render.CullToView(sprites, minX, minY, maxX, maxY, 1.0)
	drawCalls := g.facade.Render(sprites)

	if x0, y0, x1, y1, active := g.agg.DragRect(); active {
		drawSelectionBox(screen, x0, y0, x1, y1)
	}

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("tick %d  draws %d  pages %d", g.gameLoop.CurrentTick(), drawCalls, g.atlas.PageCount()), 8, 8)
	if g.paused {
		ebitenutil.DebugPrintAt(screen, "PAUSED", ScreenWidth/2-24, 8)
	}
}

func (g *Game) drawGrid(screen *ebiten.Image) {
	gridColor := color.RGBA{255, 255, 255, 40}
	for x := 0; x <= g.tileMap.Width; x++ {
		sx0, sy0 := g.cam.WorldToScreen(float64(x), 0)
		sx1, sy1 := g.cam.WorldToScreen(float64(x), float64(g.tileMap.Height))
		vector.StrokeLine(screen, float32(sx0), float32(sy0), float32(sx1), float32(sy1), 1, gridColor, false)
	}
	for y := 0; y <= g.tileMap.Height; y++ {
		sx0, sy0 := g.cam.WorldToScreen(0, float64(y))
		sx1, sy1 := g.cam.WorldToScreen(float64(g.tileMap.Width), float64(y))
		vector.StrokeLine(screen, float32(sx0), float32(sy0), float32(sx1), float32(sy1), 1, gridColor, false)
	}
}

func drawSelectionBox(screen *ebiten.Image, x0, y0, x1, y1 float64) {
	c := color.RGBA{80, 255, 80, 200}
	vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y0), 1, c, false)
	vector.StrokeLine(screen, float32(x1), float32(y0), float32(x1), float32(y1), 1, c, false)
	vector.StrokeLine(screen, float32(x1), float32(y1), float32(x0), float32(y1), 1, c, false)
	vector.StrokeLine(screen, float32(x0), float32(y1), float32(x0), float32(y0), 1, c, false)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.cam.Resize(ScreenWidth, ScreenHeight)
	return ScreenWidth, ScreenHeight
}

// generateDemoMap builds a small battlefield: open grass, a river crossed
// by one bridge, two forest patches, and a road, against the current
// (post-distillation) terrain vocabulary.
func generateDemoMap() *maplib.TileMap {
	tm := maplib.NewTileMap("Demo Battlefield", MapSize, MapSize)
	tm.SetTerrain(0, 0, MapSize-1, MapSize-1, maplib.TerrainGrass)

	tm.SetTerrain(0, MapSize/2-1, MapSize-1, MapSize/2+1, maplib.TerrainWater)
	tm.SetTerrain(MapSize/2-1, MapSize/2-2, MapSize/2+1, MapSize/2+2, maplib.TerrainBridge)
	for x := MapSize/2 - 1; x <= MapSize/2+1; x++ {
		for y := MapSize/2 - 2; y <= MapSize/2+2; y++ {
			if t := tm.At(x, y); t != nil {
				t.Passable = maplib.PassAll
			}
		}
	}

	tm.SetTerrain(5, 5, 14, 12, maplib.TerrainForest)
	tm.SetTerrain(48, 50, 58, 58, maplib.TerrainForest)
	tm.SetTerrain(25, 30, 40, 32, maplib.TerrainRoad)

	return tm
}

// logSink forwards diagnostic events to the process log, per spec §7's
// "structured events, not free-form strings" (the formatting here is a
// log-line convenience, not the wire representation — a WSServer sink
// forwards the structured Event/Counters JSON verbatim instead).
type logSink struct{}

func (logSink) Event(e diag.Event) {
	log.Printf("diag[%s] tick=%d fields=%v", e.Kind, e.Tick, e.Fields)
}

func (logSink) Counters(diag.Counters) {}

func main() {
	configPath := flag.String("config", "", "path to a YAML runtime config file")
	catalogPath := flag.String("catalog", "assets/catalog.json", "path to the asset catalog JSON")
	framesDir := flag.String("frames", "assets/frames", "directory of sprite frame PNGs")
	diagnosticsAddr := flag.String("diagnostics-addr", "", "if set, serve the diagnostics websocket on this address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = *catalogPath
	}
	if cfg.FramesDir == "" {
		cfg.FramesDir = *framesDir
	}
	if cfg.DiagnosticsAddr == "" {
		cfg.DiagnosticsAddr = *diagnosticsAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	game, err := NewGame(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("RTS Engine")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(true)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
