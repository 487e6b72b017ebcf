package render

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/1siamBot/rts-engine/engine/atlas"
)

// softwarePage is a CPU-side atlas page: a plain *image.RGBA, since the
// software tier never uploads to a GPU texture at all.
type softwarePage struct {
	img *image.RGBA
}

func (p *softwarePage) Bounds() image.Rectangle { return p.img.Bounds() }

func (p *softwarePage) Upload(src image.Image, x, y int) {
	b := src.Bounds()
	dstRect := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(p.img, dstRect, src, b.Min, draw.Src)
}

func (p *softwarePage) Release() { p.img = nil }

// SoftwareBackend is spec §4.12's Tier 3: a per-sprite CPU blit into a
// framebuffer, with no batching at all, used when no GPU context can be
// obtained after the retry schedule in §4.11 is exhausted. Correctness is
// preserved; performance is not a goal at this tier.
type SoftwareBackend struct {
	Framebuffer *image.RGBA
	atlas       *atlas.Atlas
}

// NewSoftwareBackend creates a CPU rasterizer targeting an image of the
// given size.
func NewSoftwareBackend(w, h int) *SoftwareBackend {
	return &SoftwareBackend{Framebuffer: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (b *SoftwareBackend) Tier() Tier { return TierSoftware }

func (b *SoftwareBackend) BindAtlas(at *atlas.Atlas) { b.atlas = at }

func (b *SoftwareBackend) NewPage(size int) atlas.Page {
	return &softwarePage{img: image.NewRGBA(image.Rect(0, 0, size, size))}
}

// ProbeCanvasSize always accepts the requested size: a software
// framebuffer has no texture-size ceiling, only host memory limits.
func (b *SoftwareBackend) ProbeCanvasSize(w, h int) (int, int) { return w, h }

// SubmitBatch blits each quad in the group individually (no batching),
// the deliberate performance/correctness tradeoff spec §4.12 names for
// this tier.
func (b *SoftwareBackend) SubmitBatch(g DrawGroup) {
	if b.atlas == nil || b.Framebuffer == nil {
		return
	}
	page := b.atlas.PageSurface(g.AtlasPage)
	if page == nil {
		return
	}
	sp, ok := page.(*softwarePage)
	if !ok || sp.img == nil {
		return
	}
	size := float64(sp.img.Bounds().Dx())

	for _, q := range g.Quads {
		srcRect := image.Rect(
			int(float64(q.UV.U0)*size), int(float64(q.UV.V0)*size),
			int(float64(q.UV.U1)*size), int(float64(q.UV.V1)*size),
		)
		scale := q.Scale
		if scale == 0 {
			scale = 1.0
		}
		w := int(float64(srcRect.Dx()) * scale)
		h := int(float64(srcRect.Dy()) * scale)
		dstX, dstY := int(q.X)-w/2, int(q.Y)-h/2
		dstRect := image.Rect(dstX, dstY, dstX+w, dstY+h)
		if scale == 1.0 {
			draw.Draw(b.Framebuffer, dstRect, sp.img, srcRect.Min, draw.Over)
		} else {
			// Pulsing highlight quads resize their source rect rather than
			// just translate it, so they need a resampling scaler
			// (image/draw only translates, it never stretches).
			xdraw.ApproxBiLinear.Scale(b.Framebuffer, dstRect, sp.img, srcRect, xdraw.Over, nil)
		}
	}
}
