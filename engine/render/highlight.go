package render

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// selectionPulsePeriod is the duration of one grow-or-shrink half-cycle of
// the selection-highlight pulse.
const selectionPulsePeriod = 0.6

// selectionPulseScale is how large the highlight ring grows at the top of
// its pulse, relative to its resting 1.0 scale.
const selectionPulseScale = 1.15

// Pulse drives the selection-highlight scale animation via tanema/gween
// rather than a hand-rolled sine wave, matching phanxgames-willow's
// TweenGroup pattern of owning a *gween.Tween and re-creating it when
// Update reports finished. RenderingSystem keeps one Pulse per selected
// entity so the ping-pong phase persists across frames.
type Pulse struct {
	tween   *gween.Tween
	growing bool
}

// NewPulse starts a pulse at its resting scale, growing.
func NewPulse() *Pulse {
	return &Pulse{
		tween:   gween.New(1.0, selectionPulseScale, selectionPulsePeriod, ease.Linear),
		growing: true,
	}
}

// Value advances the pulse by dt seconds and returns the current scale
// multiplier to apply to the highlight quad.
func (p *Pulse) Value(dt float64) float64 {
	v, finished := p.tween.Update(float32(dt))
	if finished {
		p.growing = !p.growing
		if p.growing {
			p.tween = gween.New(1.0, selectionPulseScale, selectionPulsePeriod, ease.Linear)
		} else {
			p.tween = gween.New(selectionPulseScale, 1.0, selectionPulsePeriod, ease.Linear)
		}
		v, _ = p.tween.Update(0)
	}
	return float64(v)
}
