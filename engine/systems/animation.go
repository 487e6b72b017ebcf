package systems

import "github.com/1siamBot/rts-engine/engine/core"

// AnimationSystem advances each Sprite's frame index at its configured
// frame rate, honoring its loop policy, generalizing the teacher's
// fixed-8-frame AnimationSystem to the catalog-driven FrameCount/FrameRate
// carried on Sprite itself.
type AnimationSystem struct{}

func (s *AnimationSystem) Priority() int { return 60 }

func (s *AnimationSystem) Update(w *core.World, dt float64) {
	for _, id := range w.Query(core.CompSprite) {
		spc, _ := w.Get(id, core.CompSprite)
		sp := spc.(*core.Sprite)

		if sp.Finished || sp.FrameRate <= 0 || sp.FrameCount <= 0 {
			continue
		}

		sp.Phase += dt
		frameDur := 1.0 / sp.FrameRate
		for sp.Phase >= frameDur {
			sp.Phase -= frameDur
			sp.FrameIndex++
			if sp.FrameIndex >= sp.FrameCount {
				switch sp.Loop {
				case core.LoopRepeat:
					sp.FrameIndex = 0
				case core.LoopHoldLast:
					sp.FrameIndex = sp.FrameCount - 1
					sp.Finished = true
				default: // LoopOnce
					sp.FrameIndex = sp.FrameCount - 1
					sp.Finished = true
				}
			}
		}
	}
}
