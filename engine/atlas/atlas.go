// Package atlas packs per-sprite-frame PNGs into fixed-size GPU atlas
// pages, tracks which pages are bound to a small pool of texture units
// under LRU eviction, and streams not-yet-uploaded frames under a
// per-frame byte budget, per spec §4.11. Frame discovery's naming
// convention and file loading (image.Decode + log.Printf diagnostics) is
// grounded on the teacher's engine/render/sprites.go SpriteManager, which
// loaded sprite PNGs from a flat assets directory the same way.
package atlas

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
)

// DefaultPageSize is the default atlas page dimension in pixels (spec
// §4.11: "bin-packs frames into fixed-size atlases (e.g. 2048x2048)").
const DefaultPageSize = 2048

// ShrinkPageSize is the reduced page size adopted under aggressive (90%)
// memory pressure.
const ShrinkPageSize = 1024

// DefaultUnitCap is the default number of texture units the allocator
// manages (spec §6 texture_unit_cap).
const DefaultUnitCap = 16

// DefaultUploadBudgetBytes is the per-frame streaming upload budget (spec
// §6 upload_budget_bytes_per_frame: 4 MiB).
const DefaultUploadBudgetBytes = 4 * 1 << 20

// Pressure thresholds, as a fraction of the estimated GPU memory budget
// (spec §4.11).
const (
	WarnPressure      = 0.70
	AggressivePressure = 0.90
)

// UVRect is a frame's normalized texture coordinates within its page.
type UVRect struct {
	U0, V0, U1, V1 float32
}

// Image is the minimal pixel-source surface atlas needs from a decoded
// sprite frame or a GPU page; engine/render's backend tiers supply the
// concrete type (an *ebiten.Image in tiers 1/2, a software *image.RGBA in
// tier 3) via the Page interface below, so this package stays
// backend-agnostic exactly as the teacher's SpriteManager was GPU-library
// specific but this spec explicitly calls for tier independence.
type Image interface {
	Bounds() image.Rectangle
}

// Page is one fixed-size atlas texture a backend allocates and draws
// sub-rectangles of frames into. Backends implement this over their own
// GPU or CPU surface type.
type Page interface {
	Image
	// Upload blits src into this page at (x, y) in pixels.
	Upload(src image.Image, x, y int)
	// Release frees the page's backing GPU/CPU memory (called on evict or
	// context loss).
	Release()
}

// PageFactory constructs a new, blank Page of the given size; supplied by
// the active rendering backend tier.
type PageFactory func(size int) Page

// FrameKey identifies one sprite frame, e.g. "tank-0003".
type FrameKey string

// frameSlot is where a frame lives once uploaded.
type frameSlot struct {
	pageID int
	uv     UVRect
	bytes  int
}

// shelf is one bin-packing row within a page (simple shelf packer: good
// enough for mostly-uniform sprite-frame sizes, unlike a full guillotine
// packer a static tool would use offline).
type shelf struct {
	y, h    int
	cursorX int
}

type page struct {
	id       int
	size     int
	surface  Page
	shelves  []shelf
	lastUsed uint64 // atlas-wide use counter, for LRU
	locked   bool   // priority-locked: exempt from eviction while drawing
}

// PendingUpload is a decoded frame awaiting a pack+upload pass, queued
// when a frame is requested before it has been packed.
type pendingUpload struct {
	key  FrameKey
	img  image.Image
	size int // byte size estimate (w*h*4)
}

// Atlas manages texture memory for the sprite batcher: packing frames
// into pages, allocating a bounded pool of "texture units" (page-to-unit
// bindings) under LRU eviction, and rate-limiting streaming uploads.
type Atlas struct {
	newPage PageFactory
	pageSize int

	pages   []*page
	frames  map[FrameKey]frameSlot
	pending []pendingUpload

	unitCap      int
	boundUnits   []int // page ids currently bound to a unit, index = unit
	useCounter   uint64

	uploadBudget int
	uploadedThisFrame int

	totalBytes    int
	estimatedCap  int // total GPU memory budget estimate, bytes

	// Source provides decoded frame images by key, on first reference.
	Source FrameSource
}

// FrameSource resolves a FrameKey to its decoded source image, typically
// backed by a directory of "<sprite_key>-<NNNN>.png" files (spec §6).
type FrameSource interface {
	Load(key FrameKey) (image.Image, error)
}

// DirFrameSource discovers frames in a flat directory named per spec §6:
// "<sprite_key>-<NNNN>.png" where NNNN is a zero-padded frame index.
type DirFrameSource struct {
	Dir string
}

func (d DirFrameSource) Load(key FrameKey) (image.Image, error) {
	path := filepath.Join(d.Dir, string(key)+".png")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("atlas: open frame %q: %w", key, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("atlas: decode frame %q: %w", key, err)
	}
	return img, nil
}

// FrameName builds the spec §6 file-name convention for a sprite key and
// zero-padded frame index.
func FrameName(spriteKey string, frameIndex int) FrameKey {
	return FrameKey(fmt.Sprintf("%s-%04d", spriteKey, frameIndex))
}

// New creates an atlas backed by newPage for allocating page surfaces and
// src for resolving frame pixels, at spec-default page size, unit cap,
// and upload budget.
func New(newPage PageFactory, src FrameSource) *Atlas {
	return &Atlas{
		newPage:      newPage,
		pageSize:     DefaultPageSize,
		frames:       make(map[FrameKey]frameSlot),
		unitCap:      DefaultUnitCap,
		uploadBudget: DefaultUploadBudgetBytes,
		estimatedCap: DefaultUnitCap * DefaultPageSize * DefaultPageSize * 4 * 11 / 10,
		Source:       src,
	}
}

// SetUnitCap overrides the texture-unit pool size (spec §6
// texture_unit_cap, default min(max-units-reported, cap, 16)).
func (a *Atlas) SetUnitCap(n int) {
	if n > 0 {
		a.unitCap = n
	}
}

// SetUploadBudget overrides the per-frame streaming byte budget.
func (a *Atlas) SetUploadBudget(n int) {
	if n > 0 {
		a.uploadBudget = n
	}
}

// Lookup returns a frame's atlas page id and UV rectangle if it has
// already been packed and uploaded. If not yet resolved, it queues the
// frame for streaming (via BeginFrame/Drain) and returns ok=false; callers
// should fall back to not drawing that frame this tick, per spec's
// streaming-queue behavior.
func (a *Atlas) Lookup(key FrameKey) (pageID int, uv UVRect, ok bool) {
	slot, found := a.frames[key]
	if found {
		a.touch(slot.pageID)
		return slot.pageID, slot.uv, true
	}
	a.enqueue(key)
	return 0, UVRect{}, false
}

func (a *Atlas) enqueue(key FrameKey) {
	for _, p := range a.pending {
		if p.key == key {
			return
		}
	}
	if a.Source == nil {
		return
	}
	img, err := a.Source.Load(key)
	if err != nil {
		return
	}
	b := img.Bounds()
	a.pending = append(a.pending, pendingUpload{key: key, img: img, size: b.Dx() * b.Dy() * 4})
}

// BeginFrame resets the per-frame upload budget counter; call once before
// a frame's Drain.
func (a *Atlas) BeginFrame() {
	a.uploadedThisFrame = 0
}

// Drain packs and uploads queued pending frames until the per-frame byte
// budget (spec §6 upload_budget_bytes_per_frame) is exhausted or the
// queue empties, rate-limiting streaming uploads so a burst of newly
// visible sprites never stalls a frame.
func (a *Atlas) Drain() {
	budget := a.uploadBudget - a.uploadedThisFrame
	for budget > 0 && len(a.pending) > 0 {
		up := a.pending[0]
		if up.size > budget && a.uploadedThisFrame > 0 {
			// Don't starve every other pending frame behind one big one;
			// leave it queued for next frame's fresh budget.
			break
		}
		a.pending = a.pending[1:]
		if err := a.pack(up); err == nil {
			a.uploadedThisFrame += up.size
			budget -= up.size
		}
	}
}

func (a *Atlas) pack(up pendingUpload) error {
	b := up.img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > a.pageSize || h > a.pageSize {
		return fmt.Errorf("atlas: frame %q (%dx%d) exceeds page size %d", up.key, w, h, a.pageSize)
	}

	for _, p := range a.pages {
		if x, y, ok := p.place(w, h); ok {
			p.surface.Upload(up.img, x, y)
			a.finishPack(up, p, x, y, w, h)
			return nil
		}
	}

	p := a.newPageFor()
	x, y, ok := p.place(w, h)
	if !ok {
		return fmt.Errorf("atlas: frame %q does not fit a fresh page", up.key)
	}
	p.surface.Upload(up.img, x, y)
	a.finishPack(up, p, x, y, w, h)
	return nil
}

func (a *Atlas) finishPack(up pendingUpload, p *page, x, y, w, h int) {
	size := float32(p.size)
	a.frames[up.key] = frameSlot{
		pageID: p.id,
		uv: UVRect{
			U0: float32(x) / size, V0: float32(y) / size,
			U1: float32(x+w) / size, V1: float32(y+h) / size,
		},
		bytes: w * h * 4,
	}
	a.totalBytes += w * h * 4
	a.touch(p.id)
	a.evictIfOverPressure()
}

func (a *Atlas) newPageFor() *page {
	id := len(a.pages)
	p := &page{id: id, size: a.pageSize, surface: a.newPage(a.pageSize)}
	a.pages = append(a.pages, p)
	return p
}

// place finds room for a w x h rect in an existing shelf or opens a new
// one, shelf-packer style: good enough when frames are roughly uniform
// height (a single unit's directional/animation frames), which sprite
// sheets in this domain always are.
func (p *page) place(w, h int) (x, y int, ok bool) {
	for i := range p.shelves {
		s := &p.shelves[i]
		if h <= s.h && s.cursorX+w <= p.size {
			x, y = s.cursorX, s.y
			s.cursorX += w
			return x, y, true
		}
	}
	lastY := 0
	if n := len(p.shelves); n > 0 {
		lastY = p.shelves[n-1].y + p.shelves[n-1].h
	}
	if lastY+h > p.size {
		return 0, 0, false
	}
	p.shelves = append(p.shelves, shelf{y: lastY, h: h, cursorX: w})
	return 0, lastY, true
}

// touch marks a page as most-recently-used and binds it to a texture
// unit, evicting the least-recently-used unlocked unit if the pool is
// full (spec §4.11's "LRU eviction when all units occupied and a new
// atlas must bind").
func (a *Atlas) touch(pageID int) {
	a.useCounter++
	a.pages[pageID].lastUsed = a.useCounter

	for _, bound := range a.boundUnits {
		if bound == pageID {
			return
		}
	}
	if len(a.boundUnits) < a.unitCap {
		a.boundUnits = append(a.boundUnits, pageID)
		return
	}
	evictIdx := -1
	var oldest uint64 = ^uint64(0)
	for i, bound := range a.boundUnits {
		if a.pages[bound].locked {
			continue
		}
		if a.pages[bound].lastUsed < oldest {
			oldest = a.pages[bound].lastUsed
			evictIdx = i
		}
	}
	if evictIdx >= 0 {
		a.boundUnits[evictIdx] = pageID
	}
}

// Lock pins a page's texture unit so it cannot be evicted while it is
// actively being drawn this frame (spec's "optional priority lock").
func (a *Atlas) Lock(pageID int)   { a.pages[pageID].locked = true }
func (a *Atlas) Unlock(pageID int) { a.pages[pageID].locked = false }

// MemoryEstimateBytes returns the estimated total GPU memory currently
// held by all packed pages.
func (a *Atlas) MemoryEstimateBytes() int { return a.totalBytes }

// PressureLevel reports the current fraction of the estimated capacity in
// use, for diagnostics and the warn/aggressive eviction thresholds.
func (a *Atlas) PressureLevel() float64 {
	if a.estimatedCap <= 0 {
		return 0
	}
	return float64(a.totalBytes) / float64(a.estimatedCap)
}

// evictIfOverPressure implements spec §4.11's two-tier memory pressure
// response: at 70% start evicting least-recently-used pages; at 90%
// evict aggressively and shrink the page size new pages are allocated at.
func (a *Atlas) evictIfOverPressure() {
	level := a.PressureLevel()
	if level < WarnPressure {
		return
	}
	target := 1
	if level >= AggressivePressure {
		target = 3
		a.pageSize = ShrinkPageSize
	}
	a.evictLRUPages(target)
}

// evictLRUPages releases up to n least-recently-used, unlocked pages and
// drops their packed frames so they re-queue as pending on next Lookup.
func (a *Atlas) evictLRUPages(n int) {
	candidates := make([]*page, 0, len(a.pages))
	for _, p := range a.pages {
		if !p.locked {
			candidates = append(candidates, p)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].lastUsed < candidates[j].lastUsed })
	for i := 0; i < n && i < len(candidates); i++ {
		a.releasePage(candidates[i])
	}
}

func (a *Atlas) releasePage(p *page) {
	p.surface.Release()
	for key, slot := range a.frames {
		if slot.pageID == p.id {
			a.totalBytes -= slot.bytes
			delete(a.frames, key)
		}
	}
	for i, bound := range a.boundUnits {
		if bound == p.id {
			a.boundUnits = append(a.boundUnits[:i], a.boundUnits[i+1:]...)
			break
		}
	}
}

// Reset releases every page and clears all packed/pending state, for GPU
// context loss (spec §4.11: "on loss, clear all atlas/GPU state"). Frames
// are re-queued lazily on the next Lookup once the backend calls Reset
// after establishing a restored context.
func (a *Atlas) Reset() {
	for _, p := range a.pages {
		p.surface.Release()
	}
	a.pages = nil
	a.frames = make(map[FrameKey]frameSlot)
	a.pending = nil
	a.boundUnits = nil
	a.totalBytes = 0
	a.pageSize = DefaultPageSize
}

// PendingCount reports how many frames are queued for streaming upload,
// for diagnostics.
func (a *Atlas) PendingCount() int { return len(a.pending) }

// PageCount reports how many atlas pages currently exist.
func (a *Atlas) PageCount() int { return len(a.pages) }

// PageSize returns the pixel edge length of the given page id, so a
// backend can convert a Quad's normalized UVRect back to source pixels
// when building a vertex buffer.
func (a *Atlas) PageSize(pageID int) int {
	if pageID < 0 || pageID >= len(a.pages) {
		return 0
	}
	return a.pages[pageID].size
}

// PageSurface returns the concrete backend Page for pageID, so a backend
// can bind it as the texture for a draw call.
func (a *Atlas) PageSurface(pageID int) Page {
	if pageID < 0 || pageID >= len(a.pages) {
		return nil
	}
	return a.pages[pageID].surface
}
