package render

import (
	"sort"

	"github.com/1siamBot/rts-engine/engine/atlas"
	"github.com/1siamBot/rts-engine/engine/core"
)

// SpriteDraw is one entity's renderable state for this frame, already
// interpolated by the caller (spec §3: "renderable position is derived as
// lerp(prev, position, alpha)"). RenderingSystem builds these from the
// ECS World; Batcher never touches the World directly.
type SpriteDraw struct {
	Entity Entity

	X, Y     float64 // interpolated world position
	Scale    float64 // quad size multiplier; 0 treated as 1.0
	Facing   int
	Layer    core.DrawLayer
	TintID   string
	FrameKey atlas.FrameKey
}

// Entity is the subset of core.Entity Batcher needs for stable sort
// tie-breaking without importing core's full ECS surface beyond
// components.go's DrawLayer.
type Entity struct {
	Slot uint32
}

// Quad is one sprite's packed vertex data within a DrawGroup's shared
// vertex buffer: position, UV rectangle, tint, and facing/rotation,
// matching spec §4.11's "(pos_interpolated, uv_rect, tint,
// rotation_or_facing_index)".
type Quad struct {
	X, Y     float64
	Scale    float64
	UV       atlas.UVRect
	TintID   string
	Facing   int
}

// DrawGroup is every quad sharing one (layer, atlas page), submitted to
// the backend as a single draw call (spec's batching invariant).
type DrawGroup struct {
	Layer     core.DrawLayer
	AtlasPage int
	Quads     []Quad
}

// Batcher groups a frame's visible sprites into per-(layer, atlas) draw
// groups. It has no teacher ancestor: the teacher's IsoRenderer issued one
// ebiten.DrawImage call per sprite with no grouping at all, which is
// exactly the unbounded per-sprite-bind behavior spec §4.11 requires this
// runtime to amortize away.
type Batcher struct {
	Atlas *atlas.Atlas
}

// NewBatcher creates a Batcher reading frame placement from at.
func NewBatcher(at *atlas.Atlas) *Batcher {
	return &Batcher{Atlas: at}
}

// Batch culls nothing itself (the caller is expected to have already
// culled to the camera's expanded view per spec §4.11); it resolves each
// sprite's atlas placement, sorts by (layer, atlas id, y), and folds
// consecutive same-(layer, atlas) sprites into one DrawGroup. Sprites
// whose frame isn't packed yet (atlas.Lookup returns ok=false, meaning
// it was just queued for streaming) are skipped this frame rather than
// drawn with a stale or blank texture.
func (b *Batcher) Batch(sprites []SpriteDraw) []DrawGroup {
	type placed struct {
		SpriteDraw
		pageID int
		uv     atlas.UVRect
	}
	resolved := make([]placed, 0, len(sprites))
	for _, s := range sprites {
		pageID, uv, ok := b.Atlas.Lookup(s.FrameKey)
		if !ok {
			continue
		}
		resolved = append(resolved, placed{SpriteDraw: s, pageID: pageID, uv: uv})
	}

	sort.Slice(resolved, func(i, j int) bool {
		a, c := resolved[i], resolved[j]
		if a.Layer != c.Layer {
			return a.Layer < c.Layer
		}
		if a.pageID != c.pageID {
			return a.pageID < c.pageID
		}
		if a.Y != c.Y {
			return a.Y < c.Y
		}
		return a.Entity.Slot < c.Entity.Slot
	})

	var groups []DrawGroup
	for _, p := range resolved {
		n := len(groups)
		if n == 0 || groups[n-1].Layer != p.Layer || groups[n-1].AtlasPage != p.pageID {
			groups = append(groups, DrawGroup{Layer: p.Layer, AtlasPage: p.pageID})
			n++
		}
		scale := p.Scale
		if scale == 0 {
			scale = 1.0
		}
		groups[n-1].Quads = append(groups[n-1].Quads, Quad{
			X: p.X, Y: p.Y, Scale: scale, UV: p.uv, TintID: p.TintID, Facing: p.Facing,
		})
	}
	return groups
}

// CullToView drops sprites outside the camera's visible world bounds
// expanded by one grid cell margin (spec §4.11: "culled to camera view
// expanded by one cell"), so a sprite mid-walk into frame isn't popped.
func CullToView(sprites []SpriteDraw, minX, minY, maxX, maxY float64, cellSize float64) []SpriteDraw {
	minX -= cellSize
	minY -= cellSize
	maxX += cellSize
	maxY += cellSize
	out := sprites[:0:0]
	for _, s := range sprites {
		if s.X < minX || s.X > maxX || s.Y < minY || s.Y > maxY {
			continue
		}
		out = append(out, s)
	}
	return out
}
