// Package render is the rendering backend facade and sprite batcher (spec
// §4.11, §4.12): it abstracts the GPU context behind a capability-checked
// tier interface, handles context loss/restore with exponential backoff,
// falls back to a CPU rasterizer when no GPU tier is available, and
// batches per-frame sprite draws by (layer, atlas) group. It replaces the
// teacher's engine/render/{isorenderer,entityrender,camera,sprites}.go,
// which drew one isometric tile-and-sprite scene directly against ebiten
// with no tiering, batching, or atlas-memory-pressure handling at all.
package render

import (
	"time"

	"github.com/1siamBot/rts-engine/engine/atlas"
)

// Tier identifies a capability level the Facade may select, per spec
// §4.12.
type Tier uint8

const (
	// TierModernGPU: indexed triangles, large vertex buffers, uniform
	// buffer objects.
	TierModernGPU Tier = iota
	// TierBaselineGPU: indexed triangles, smaller buffers, per-draw
	// uniforms.
	TierBaselineGPU
	// TierSoftware: per-sprite CPU blit into a framebuffer, no batching.
	TierSoftware
)

// Features is the result of probing a backend's capabilities at init
// (spec §4.12).
type Features struct {
	MaxTextureSize    int
	MaxTextureUnits   int
	SupportsNPOT      bool
	SupportsInstanced bool
}

// SelectTier chooses the highest tier whose requirements Features
// satisfies. Modern GPU needs a reasonably large texture budget, NPOT
// support, and instanced draws; baseline needs a usable texture
// size and at least two texture units; anything short of that falls back to software.
func SelectTier(f Features) Tier {
	switch {
	case f.MaxTextureSize >= 2048 && f.MaxTextureUnits >= 8 && f.SupportsNPOT && f.SupportsInstanced:
		return TierModernGPU
	case f.MaxTextureSize >= 1024 && f.MaxTextureUnits >= 2:
		return TierBaselineGPU
	default:
		return TierSoftware
	}
}

// Backend is what a concrete rendering tier must supply: an atlas page
// factory and a way to submit one batched draw group (or, in the
// software tier, a blit list) to the screen.
type Backend interface {
	Tier() Tier
	NewPage(size int) atlas.Page
	SubmitBatch(group DrawGroup)
	// ProbeCanvasSize binary-searches for the largest drawable surface at
	// or below (w, h) the backend actually supports (spec §4.12's
	// canvas-size probe), returning the accepted size.
	ProbeCanvasSize(w, h int) (int, int)
	// BindAtlas tells the backend which Atlas its DrawGroups' AtlasPage
	// ids resolve against, so SubmitBatch can fetch the concrete Page
	// surface to bind as a draw call's texture.
	BindAtlas(at *atlas.Atlas)
}

// ContextLossState tracks the Facade's recovery schedule after a reported
// GPU context loss (spec §4.11).
type ContextLossState struct {
	Lost        bool
	RetryCount  int
	NextRetryAt time.Time
}

const (
	// MaxContextRetries bounds the reconnect attempts before giving up and
	// staying on the software fallback for the rest of the session.
	MaxContextRetries = 5
	// maxBackoff caps the exponential backoff delay (spec: "capped at 5s").
	maxBackoff = 5 * time.Second
	// baseBackoff is the first retry's delay (spec: "100ms x 2^n").
	baseBackoff = 100 * time.Millisecond
)

// Facade owns backend selection, context-loss recovery, and dispatches to
// the Batcher. The simulation never touches it directly (spec §5): only
// the host's render step calls Render, once per frame, after the ECS tick
// has advanced.
type Facade struct {
	Backend Backend
	Atlas   *atlas.Atlas
	Batcher *Batcher

	loss ContextLossState

	nowFunc func() time.Time
}

// NewFacade wires a Facade to a concrete backend and the atlas it feeds.
func NewFacade(backend Backend, at *atlas.Atlas) *Facade {
	backend.BindAtlas(at)
	return &Facade{
		Backend: backend,
		Atlas:   at,
		Batcher: NewBatcher(at),
		nowFunc: time.Now,
	}
}

// ReportContextLost transitions the Facade into the lost state: clears
// atlas/GPU state and schedules the first backoff retry. The simulation
// keeps ticking while lost (spec §5); only Render becomes a no-op.
func (f *Facade) ReportContextLost() {
	if f.loss.Lost {
		return
	}
	f.loss = ContextLossState{Lost: true, RetryCount: 0, NextRetryAt: f.now().Add(baseBackoff)}
	f.Atlas.Reset()
}

// TryRestore attempts to recover from a lost context if the backoff
// schedule says it's time. Returns true once restored (the backend is
// responsible for actually reacquiring its context before calling this
// with reacquired=true). Atlases rebuild lazily: Reset already
// cleared packed state, so the very next Lookup just re-queues frames.
func (f *Facade) TryRestore(reacquired bool) bool {
	if !f.loss.Lost {
		return true
	}
	if !reacquired {
		return false
	}
	if f.now().Before(f.loss.NextRetryAt) {
		return false
	}
	if f.loss.RetryCount >= MaxContextRetries {
		return false
	}
	f.loss = ContextLossState{}
	return true
}

// NoteFailedRetry advances the backoff schedule after an attempted
// restore still failed (context still unavailable).
func (f *Facade) NoteFailedRetry() {
	f.loss.RetryCount++
	delay := baseBackoff << uint(f.loss.RetryCount)
	if delay > maxBackoff {
		delay = maxBackoff
	}
	f.loss.NextRetryAt = f.now().Add(delay)
}

// ContextLost reports whether the backend is currently in the lost state
// (Render is a no-op while true).
func (f *Facade) ContextLost() bool { return f.loss.Lost }

// ExhaustedRetries reports whether the backoff schedule has given up,
// meaning the host should permanently fall back to the software tier.
func (f *Facade) ExhaustedRetries() bool {
	return f.loss.Lost && f.loss.RetryCount >= MaxContextRetries
}

func (f *Facade) now() time.Time {
	if f.nowFunc != nil {
		return f.nowFunc()
	}
	return time.Now()
}

// Render submits the frame's visible sprites to the backend, grouped and
// batched per spec §4.11. It is a no-op while the context is lost.
// Returns the number of draw calls emitted, for diagnostics.
func (f *Facade) Render(sprites []SpriteDraw) int {
	if f.loss.Lost {
		return 0
	}
	f.Atlas.BeginFrame()
	f.Atlas.Drain()

	groups := f.Batcher.Batch(sprites)
	for _, g := range groups {
		f.Atlas.Lock(g.AtlasPage)
		f.Backend.SubmitBatch(g)
		f.Atlas.Unlock(g.AtlasPage)
	}
	return len(groups)
}
