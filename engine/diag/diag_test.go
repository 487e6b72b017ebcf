package diag

import (
	"encoding/json"
	"testing"
	"time"
)

type recordingSink struct {
	events   []Event
	counters []Counters
}

func (s *recordingSink) Event(e Event)       { s.events = append(s.events, e) }
func (s *recordingSink) Counters(c Counters) { s.counters = append(s.counters, c) }

func TestDispatchDeliversQueuedEventsToAllSinks(t *testing.T) {
	b := NewBus()
	a, c := &recordingSink{}, &recordingSink{}
	b.Subscribe(a)
	b.Subscribe(c)

	b.Emit(Event{Kind: EventSystemDegraded, Tick: 5})
	b.Emit(Event{Kind: EventInputDropped, Tick: 6})
	b.Dispatch()

	if len(a.events) != 2 || len(c.events) != 2 {
		t.Fatalf("expected both sinks to receive both events, got %d and %d", len(a.events), len(c.events))
	}
	if a.events[0].Kind != EventSystemDegraded || a.events[1].Kind != EventInputDropped {
		t.Fatalf("expected events delivered in emission order, got %v", a.events)
	}
}

func TestDispatchClearsQueueAfterFlushing(t *testing.T) {
	b := NewBus()
	s := &recordingSink{}
	b.Subscribe(s)

	b.Emit(Event{Kind: EventCanvasShrunk})
	b.Dispatch()
	b.Dispatch() // nothing queued the second time

	if len(s.events) != 1 {
		t.Fatalf("expected exactly one delivered event across both dispatches, got %d", len(s.events))
	}
}

func TestEmitStampsAtWhenZero(t *testing.T) {
	b := NewBus()
	s := &recordingSink{}
	b.Subscribe(s)

	b.Emit(Event{Kind: EventCommandIgnored})
	b.Dispatch()

	if s.events[0].At.IsZero() {
		t.Fatal("expected Emit to stamp a zero-valued At with the current time")
	}
}

func TestSampleCountersThrottlesToSampleRate(t *testing.T) {
	b := NewBus()
	b.SetSampleRate(10) // one sample per 100ms
	s := &recordingSink{}
	b.Subscribe(s)

	base := time.Unix(0, 0)
	if !b.SampleCounters(Counters{FPS: 60}, base) {
		t.Fatal("expected the first sample to always be taken")
	}
	if b.SampleCounters(Counters{FPS: 60}, base.Add(50*time.Millisecond)) {
		t.Fatal("expected a sample within the 100ms window to be dropped")
	}
	if !b.SampleCounters(Counters{FPS: 60}, base.Add(100*time.Millisecond)) {
		t.Fatal("expected a sample exactly at the window boundary to be taken")
	}
	if len(s.counters) != 2 {
		t.Fatalf("expected exactly 2 delivered counter samples, got %d", len(s.counters))
	}
}

func TestSetSampleRateIgnoresNonPositiveValues(t *testing.T) {
	b := NewBus()
	before := b.sampleEvery
	b.SetSampleRate(0)
	b.SetSampleRate(-5)
	if b.sampleEvery != before {
		t.Fatal("expected a non-positive sample rate to be ignored")
	}
}

func TestEventMarshalJSONRoundTripsKind(t *testing.T) {
	e := Event{Kind: EventContextLost, Tick: 42}
	data, err := e.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty JSON output")
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if decoded["kind"] != string(EventContextLost) {
		t.Fatalf("expected kind %q to round-trip, got %v", EventContextLost, decoded["kind"])
	}
}
