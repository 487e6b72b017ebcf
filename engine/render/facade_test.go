package render

import (
	"testing"
	"time"

	"github.com/1siamBot/rts-engine/engine/atlas"
)

type stubBackend struct {
	tier       Tier
	submitted  int
	boundAtlas *atlas.Atlas
}

func (b *stubBackend) Tier() Tier                         { return b.tier }
func (b *stubBackend) NewPage(size int) atlas.Page        { return &stubPage{img: nil} }
func (b *stubBackend) SubmitBatch(g DrawGroup)            { b.submitted++ }
func (b *stubBackend) ProbeCanvasSize(w, h int) (int, int) { return w, h }
func (b *stubBackend) BindAtlas(at *atlas.Atlas)          { b.boundAtlas = at }

func newTestFacade() (*Facade, *stubBackend, *fakeClock) {
	backend := &stubBackend{tier: TierModernGPU}
	at := newTestAtlas()
	f := NewFacade(backend, at)
	clock := &fakeClock{t: time.Unix(0, 0)}
	f.nowFunc = clock.Now
	return f, backend, clock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSelectTierPicksModernGPUWhenFullySupported(t *testing.T) {
	tier := SelectTier(Features{MaxTextureSize: 4096, MaxTextureUnits: 16, SupportsNPOT: true, SupportsInstanced: true})
	if tier != TierModernGPU {
		t.Fatalf("expected TierModernGPU, got %v", tier)
	}
}

func TestSelectTierFallsBackToBaselineThenSoftware(t *testing.T) {
	baseline := SelectTier(Features{MaxTextureSize: 1024, MaxTextureUnits: 4})
	if baseline != TierBaselineGPU {
		t.Fatalf("expected TierBaselineGPU for a modest GPU, got %v", baseline)
	}
	software := SelectTier(Features{MaxTextureSize: 256, MaxTextureUnits: 1})
	if software != TierSoftware {
		t.Fatalf("expected TierSoftware when even baseline requirements aren't met, got %v", software)
	}
}

func TestRenderIsNoOpWhileContextLost(t *testing.T) {
	f, backend, _ := newTestFacade()
	f.ReportContextLost()

	n := f.Render(nil)
	if n != 0 || backend.submitted != 0 {
		t.Fatalf("expected Render to be a no-op while context is lost, got %d draw calls, %d submits", n, backend.submitted)
	}
}

func TestTryRestoreWaitsForBackoffWindow(t *testing.T) {
	f, _, clock := newTestFacade()
	f.ReportContextLost()

	if f.TryRestore(true) {
		t.Fatal("expected TryRestore to fail before the first backoff window elapses")
	}

	clock.advance(baseBackoff)
	if !f.TryRestore(true) {
		t.Fatal("expected TryRestore to succeed once the backoff window has elapsed and the backend reacquired its context")
	}
	if f.ContextLost() {
		t.Fatal("expected the facade to leave the lost state once restored")
	}
}

func TestTryRestoreRequiresBackendReacquisition(t *testing.T) {
	f, _, clock := newTestFacade()
	f.ReportContextLost()
	clock.advance(baseBackoff)

	if f.TryRestore(false) {
		t.Fatal("expected TryRestore to refuse to clear the lost state when the backend hasn't reacquired its context")
	}
}

func TestNoteFailedRetryBacksOffExponentiallyUpToCap(t *testing.T) {
	f, _, clock := newTestFacade()
	f.ReportContextLost()

	// Backend repeatedly fails to reacquire its context; each failed
	// attempt backs off further until the retry budget is exhausted.
	for i := 0; i < MaxContextRetries; i++ {
		if f.TryRestore(false) {
			t.Fatalf("did not expect TryRestore to succeed when the backend failed to reacquire, retry %d", i)
		}
		f.NoteFailedRetry()
		want := baseBackoff << uint(i+1)
		if want > maxBackoff {
			want = maxBackoff
		}
		if got := f.loss.NextRetryAt.Sub(clock.Now()); got != want {
			t.Fatalf("expected failed retry %d to back off %v, got %v", i, want, got)
		}
	}

	if !f.ExhaustedRetries() {
		t.Fatal("expected ExhaustedRetries to report true once RetryCount reaches MaxContextRetries")
	}

	clock.advance(maxBackoff)
	if f.TryRestore(true) {
		t.Fatal("expected TryRestore to refuse recovery once the retry budget is exhausted")
	}
}

func TestReportContextLostResetsAtlas(t *testing.T) {
	f, _, _ := newTestFacade()
	f.Atlas.Lookup(atlas.FrameName("rifle", 0))
	f.Atlas.BeginFrame()
	f.Atlas.Drain()
	if f.Atlas.PageCount() == 0 {
		t.Fatal("expected at least one packed page before context loss")
	}

	f.ReportContextLost()
	if f.Atlas.PageCount() != 0 {
		t.Fatal("expected ReportContextLost to reset the atlas, clearing all packed pages")
	}
}
