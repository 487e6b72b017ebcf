package atlas

import (
	"image"
	"testing"
)

type memPage struct {
	img     *image.RGBA
	released bool
}

func (p *memPage) Bounds() image.Rectangle         { return p.img.Bounds() }
func (p *memPage) Upload(src image.Image, x, y int) {}
func (p *memPage) Release()                        { p.released = true }

type solidSource struct{ size int }

func (s solidSource) Load(key FrameKey) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, s.size, s.size)), nil
}

func newAtlas(frameSize int) *Atlas {
	return New(func(size int) Page {
		return &memPage{img: image.NewRGBA(image.Rect(0, 0, size, size))}
	}, solidSource{size: frameSize})
}

func TestLookupQueuesThenResolvesAfterDrain(t *testing.T) {
	at := newAtlas(32)
	if _, _, ok := at.Lookup(FrameName("rifle", 0)); ok {
		t.Fatal("expected the first Lookup of an unseen frame to queue it rather than resolve")
	}
	if at.PendingCount() != 1 {
		t.Fatalf("expected one pending frame after the initial Lookup, got %d", at.PendingCount())
	}

	at.BeginFrame()
	at.Drain()

	_, _, ok := at.Lookup(FrameName("rifle", 0))
	if !ok {
		t.Fatal("expected the frame to resolve once packed by Drain")
	}
	if at.PendingCount() != 0 {
		t.Fatalf("expected no pending frames after a successful drain, got %d", at.PendingCount())
	}
}

func TestDrainRespectsPerFrameUploadBudget(t *testing.T) {
	at := newAtlas(1000) // 1000*1000*4 = 4,000,000 bytes per frame
	at.SetUploadBudget(5_000_000)

	at.Lookup(FrameName("a", 0))
	at.Lookup(FrameName("b", 0))
	at.Lookup(FrameName("c", 0))
	if at.PendingCount() != 3 {
		t.Fatalf("expected 3 frames queued, got %d", at.PendingCount())
	}

	at.BeginFrame()
	at.Drain()

	if at.PendingCount() != 2 {
		t.Fatalf("expected only one frame to fit the 5MB budget this drain, got %d pending (want 2 remaining)", at.PendingCount())
	}

	at.BeginFrame()
	at.Drain()
	if at.PendingCount() != 1 {
		t.Fatalf("expected one more frame to drain on the next frame's fresh budget, got %d pending (want 1 remaining)", at.PendingCount())
	}
}

func TestTouchEvictsLeastRecentlyUsedUnitWhenPoolFull(t *testing.T) {
	at := newAtlas(32)
	at.SetUnitCap(2)

	p0 := at.newPageFor()
	p1 := at.newPageFor()
	p2 := at.newPageFor()
	at.touch(p0.id)
	at.touch(p1.id)
	at.touch(p2.id) // pool full (cap 2), evicts page 0 (least recently used)

	found0, found2 := false, false
	for _, bound := range at.boundUnits {
		if bound == 0 {
			found0 = true
		}
		if bound == 2 {
			found2 = true
		}
	}
	if found0 {
		t.Fatal("expected the least-recently-used page to be evicted from its texture unit")
	}
	if !found2 {
		t.Fatal("expected the newly touched page to occupy a texture unit")
	}
}

func TestLockedPageSurvivesEviction(t *testing.T) {
	at := newAtlas(32)
	at.SetUnitCap(2)

	at.newPageFor()
	at.newPageFor()
	at.newPageFor()
	at.Lock(0)
	at.touch(0)
	at.touch(1)
	at.touch(2) // would evict 0 except it is locked; must evict 1 instead

	foundLocked := false
	for _, bound := range at.boundUnits {
		if bound == 0 {
			foundLocked = true
		}
	}
	if !foundLocked {
		t.Fatal("expected a locked page to survive eviction even as the least recently used")
	}
}

func TestEvictIfOverPressureReclaimsLRUPagesAtWarnThreshold(t *testing.T) {
	at := newAtlas(32)
	p0 := at.newPageFor()
	p1 := at.newPageFor()
	at.frames["p0frame"] = frameSlot{pageID: p0.id, bytes: 10}
	at.frames["p1frame"] = frameSlot{pageID: p1.id, bytes: 10}
	at.touch(p0.id)
	at.touch(p1.id) // p1 more recently used than p0

	at.estimatedCap = 100
	at.totalBytes = 75 // 0.75 pressure, above WarnPressure (0.70) but below AggressivePressure (0.90)

	at.evictIfOverPressure()

	mp0 := p0.surface.(*memPage)
	if !mp0.released {
		t.Fatal("expected the least-recently-used page to be released under warn-level pressure")
	}
	mp1 := p1.surface.(*memPage)
	if mp1.released {
		t.Fatal("expected the more-recently-used page to survive a single-page warn-level eviction")
	}
	if _, ok := at.frames["p0frame"]; ok {
		t.Fatal("expected the evicted page's frames to be dropped so they re-queue on next Lookup")
	}
}

func TestEvictIfOverPressureShrinksPageSizeAtAggressiveThreshold(t *testing.T) {
	at := newAtlas(32)
	at.estimatedCap = 100
	at.totalBytes = 95 // 0.95, above AggressivePressure

	at.evictIfOverPressure()

	if at.pageSize != ShrinkPageSize {
		t.Fatalf("expected aggressive pressure to shrink new-page size to %d, got %d", ShrinkPageSize, at.pageSize)
	}
}

func TestResetClearsAllStateForContextLoss(t *testing.T) {
	at := newAtlas(32)
	at.Lookup(FrameName("rifle", 0))
	at.BeginFrame()
	at.Drain()

	if at.PageCount() == 0 {
		t.Fatal("expected at least one page before Reset")
	}

	at.Reset()

	if at.PageCount() != 0 || at.PendingCount() != 0 || at.MemoryEstimateBytes() != 0 {
		t.Fatal("expected Reset to clear all pages, pending uploads, and memory accounting")
	}
	if at.pageSize != DefaultPageSize {
		t.Fatalf("expected Reset to restore the default page size, got %d", at.pageSize)
	}
}
