package render

import (
	"github.com/1siamBot/rts-engine/engine/atlas"
	"github.com/1siamBot/rts-engine/engine/core"
)

// Scene turns the ECS World into this frame's SpriteDraw list, the step
// between simulation state and Batcher.Batch. It owns no simulation state
// itself (mirrors spec §3: interpolation alpha is a draw-time concern, never
// fed back into the fixed-timestep World), only the per-entity Pulse
// animations selection highlights need across frames.
type Scene struct {
	pulses map[core.Entity]*Pulse
}

// NewScene creates an empty Scene.
func NewScene() *Scene {
	return &Scene{pulses: make(map[core.Entity]*Pulse)}
}

// Build walks every CompTransform+CompSprite entity, lerps its render
// position from (PrevX,PrevY) to (X,Y) by alpha (spec §3's renderable
// position), and appends one extra pulsing highlight quad per selected
// entity, drawn with the shared "selection-ring" frame on the UI layer.
func (sc *Scene) Build(w *core.World, alpha, dt float64) []SpriteDraw {
	ids := w.Query(core.CompTransform, core.CompSprite)
	draws := make([]SpriteDraw, 0, len(ids)*2)

	live := make(map[core.Entity]bool, len(ids))
	for _, id := range ids {
		trc, _ := w.Get(id, core.CompTransform)
		spc, _ := w.Get(id, core.CompSprite)
		tr := trc.(*core.Transform)
		sp := spc.(*core.Sprite)

		x := tr.PrevX + (tr.X-tr.PrevX)*alpha
		y := tr.PrevY + (tr.Y-tr.PrevY)*alpha

		draws = append(draws, SpriteDraw{
			Entity:   Entity{Slot: id.Slot},
			X:        x,
			Y:        y,
			Scale:    1.0,
			Facing:   tr.Facing,
			Layer:    sp.Layer,
			TintID:   sp.TintFaction,
			FrameKey: atlas.FrameName(sp.Key, sp.FrameIndex),
		})

		selc, ok := w.Get(id, core.CompSelectable)
		if !ok || selc.(*core.Selectable).State != core.SelSelected {
			continue
		}
		live[id] = true
		pulse, ok := sc.pulses[id]
		if !ok {
			pulse = NewPulse()
			sc.pulses[id] = pulse
		}
		draws = append(draws, SpriteDraw{
			Entity:   Entity{Slot: id.Slot},
			X:        x,
			Y:        y,
			Scale:    pulse.Value(dt),
			Facing:   tr.Facing,
			Layer:    core.LayerUI,
			FrameKey: atlas.FrameName("selection-ring", 0),
		})
	}

	for id := range sc.pulses {
		if !live[id] {
			delete(sc.pulses, id)
		}
	}
	return draws
}
