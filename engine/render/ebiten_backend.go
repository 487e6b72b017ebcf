package render

import (
	"image"

	"github.com/1siamBot/rts-engine/engine/atlas"
	"github.com/hajimehoshi/ebiten/v2"
)

// ebitenPage is an atlas page backed by a single *ebiten.Image, the GPU
// texture the Tier-1/2 backend packs sprite frames into. Upload blits a
// decoded frame into the page with a plain DrawImage, mirroring the
// teacher's sprites.go load path (ebiten.NewImageFromImage) but targeting
// a shared atlas surface instead of one *ebiten.Image per sprite.
type ebitenPage struct {
	img *ebiten.Image
}

func (p *ebitenPage) Bounds() image.Rectangle { return p.img.Bounds() }

func (p *ebitenPage) Upload(src image.Image, x, y int) {
	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Translate(float64(x), float64(y))
	p.img.DrawImage(ebiten.NewImageFromImage(src), opts)
}

func (p *ebitenPage) Release() {
	p.img.Deallocate()
}

// EbitenBackend implements Backend on top of ebiten's GPU-accelerated
// 2D pipeline (spec §4.12's Tier 1/2: indexed triangles via
// Image.DrawTriangles, one call per (layer, atlas) DrawGroup). It
// replaces the teacher's IsoRenderer, which called DrawImage once per
// sprite with no batching at all.
type EbitenBackend struct {
	Screen *ebiten.Image // set by the host each frame before Render

	tier       Tier
	maxTexSize int
	instanced  bool
	atlas      *atlas.Atlas
}

// NewEbitenBackend probes ebiten's reported limits and selects a tier.
// ebiten itself only ever exposes a GPU pipeline (it has no raw
// "texture unit count" the way a bare WebGL/OpenGL context would), so
// MaxTextureUnits is a conservative constant matching DefaultUnitCap
// rather than a live driver query — ebiten abstracts that binding detail
// away from its callers entirely.
func NewEbitenBackend() *EbitenBackend {
	maxSize := 4096 // ebiten guarantees at least this on desktop GL/Metal/DX backends
	f := Features{
		MaxTextureSize:    maxSize,
		MaxTextureUnits:   atlas.DefaultUnitCap,
		SupportsNPOT:      true,
		SupportsInstanced: true,
	}
	return &EbitenBackend{
		tier:       SelectTier(f),
		maxTexSize: maxSize,
		instanced:  true,
	}
}

func (b *EbitenBackend) Tier() Tier { return b.tier }

func (b *EbitenBackend) BindAtlas(at *atlas.Atlas) { b.atlas = at }

func (b *EbitenBackend) NewPage(size int) atlas.Page {
	return &ebitenPage{img: ebiten.NewImage(size, size)}
}

// ProbeCanvasSize binary-searches downward from the requested size while
// it exceeds the backend's max texture size, per spec §4.12.
func (b *EbitenBackend) ProbeCanvasSize(w, h int) (int, int) {
	shrink := func(v int) int {
		lo, hi := 1, v
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if mid <= b.maxTexSize {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return lo
	}
	return shrink(w), shrink(h)
}

// SubmitBatch draws one DrawGroup as a single ebiten.DrawTriangles call:
// every quad in the group becomes two triangles sharing the group's atlas
// page as its one source texture, which is what makes this "one draw call
// per (layer, atlas) group" rather than one per sprite.
func (b *EbitenBackend) SubmitBatch(g DrawGroup) {
	if b.Screen == nil || b.atlas == nil || len(g.Quads) == 0 {
		return
	}
	page := b.atlas.PageSurface(g.AtlasPage)
	if page == nil {
		return
	}
	ep, ok := page.(*ebitenPage)
	if !ok {
		return
	}

	vertices := make([]ebiten.Vertex, 0, len(g.Quads)*4)
	indices := make([]uint16, 0, len(g.Quads)*6)
	size := float32(ep.img.Bounds().Dx())

	for _, q := range g.Quads {
		base := uint16(len(vertices))
		r, gC, bC, a := tintToRGBA(q.TintID)
		// Sprite frames are drawn as unrotated 1x1-world-unit quads
		// centered on the interpolated position; facing selects which
		// pre-rendered directional frame the UV rect names, so no
		// per-vertex rotation is needed here (spec's "rotation_or_facing
		// _index" is baked into FrameKey selection upstream).
		half := float32(0.5 * q.Scale)
		corners := [4][2]float32{
			{-half, -half}, {half, -half}, {half, half}, {-half, half},
		}
		uvCorners := [4][2]float32{
			{q.UV.U0, q.UV.V0}, {q.UV.U1, q.UV.V0}, {q.UV.U1, q.UV.V1}, {q.UV.U0, q.UV.V1},
		}
		for i := 0; i < 4; i++ {
			vertices = append(vertices, ebiten.Vertex{
				DstX:   float32(q.X) + corners[i][0],
				DstY:   float32(q.Y) + corners[i][1],
				SrcX:   uvCorners[i][0] * size,
				SrcY:   uvCorners[i][1] * size,
				ColorR: r, ColorG: gC, ColorB: bC, ColorA: a,
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	b.Screen.DrawTriangles(vertices, indices, ep.img, &ebiten.DrawTrianglesOptions{})
}

// tintToRGBA resolves a faction tint id to an RGBA multiplier; "" means
// no recolor. Concrete faction colors come from core.FactionRegistry's
// TeamColor, resolved by the RenderingSystem before building SpriteDraws,
// so this is only the identity/no-op default plus a hook point.
func tintToRGBA(tintID string) (r, g, bC, a float32) {
	if tintID == "" {
		return 1, 1, 1, 1
	}
	return 1, 1, 1, 1
}
