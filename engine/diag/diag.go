// Package diag is the host-facing structured diagnostics channel spec §7
// and §9 describe: degraded-system notices, dropped-input counts, budget
// exhaustion, and sampled performance counters (FPS, sprite count, draw
// calls) delivered as typed events rather than free-form log strings.
// Modeled on the teacher's engine/core.EventBus queue-then-dispatch shape
// (engine/core/events.go), generalized from gameplay events to
// operator/host-facing ones, per spec §9's "replace UI-update throttling...
// the runtime exposes sampled counters at a rate it controls".
package diag

import (
	"encoding/json"
	"sync"
	"time"
)

// EventKind tags a diagnostic Event's variant.
type EventKind string

const (
	EventSystemDegraded   EventKind = "system_degraded"
	EventInputDropped     EventKind = "input_dropped"
	EventBudgetExhausted  EventKind = "budget_exhausted"
	EventContextLost      EventKind = "context_lost"
	EventContextRestored  EventKind = "context_restored"
	EventCanvasShrunk     EventKind = "canvas_shrunk"
	EventCommandIgnored   EventKind = "command_ignored"
)

// Event is one structured diagnostic notice (spec §7: "User-visible
// failures surface through the host's diagnostic channel (structured
// events, not free-form strings)").
type Event struct {
	Kind    EventKind              `json:"kind"`
	Tick    uint64                 `json:"tick"`
	At      time.Time              `json:"at"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Counters is the sampled performance snapshot: FPS, sprite count, draw
// calls, sampled at a runtime-controlled rate (default 10 Hz) rather than
// pushed every frame.
type Counters struct {
	FPS                   float64 `json:"fps"`
	Ticks                 uint64  `json:"ticks"`
	SpriteCount           int     `json:"sprite_count"`
	DrawCalls             int     `json:"draw_calls"`
	AtlasPages            int     `json:"atlas_pages"`
	PendingUploads        int     `json:"pending_uploads"`
	AtlasPressure         float64 `json:"atlas_pressure"`
	PathBudgetUtilization float64 `json:"path_budget_utilization"`
}

// DefaultSampleRateHz is spec §9's default counter sampling rate.
const DefaultSampleRateHz = 10.0

// Sink receives diagnostic events and counter samples; a host implements
// this to route them wherever it likes (log line, devtools panel,
// websocket frame). Bus.Subscribe takes one of these.
type Sink interface {
	Event(e Event)
	Counters(c Counters)
}

// Bus queues diagnostic events and dispatches them to subscribed sinks,
// plus throttles counter samples to SampleRateHz. Safe for concurrent use:
// unlike engine/core.EventBus (single-threaded simulation caller only),
// diag.Bus may be read by a websocket goroutine concurrently with the
// simulation thread emitting events, so it holds a mutex.
type Bus struct {
	mu          sync.Mutex
	sinks       []Sink
	queue       []Event
	sampleEvery time.Duration
	lastSample  time.Time
}

// NewBus creates a diagnostics bus sampling counters at the default rate.
func NewBus() *Bus {
	return &Bus{sampleEvery: time.Duration(float64(time.Second) / DefaultSampleRateHz)}
}

// SetSampleRate overrides the counters sampling rate.
func (b *Bus) SetSampleRate(hz float64) {
	if hz <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sampleEvery = time.Duration(float64(time.Second) / hz)
}

// Subscribe registers a sink to receive every dispatched event and
// counters sample.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Emit queues a diagnostic event for the next Dispatch.
func (b *Bus) Emit(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.Lock()
	b.queue = append(b.queue, e)
	b.mu.Unlock()
}

// Dispatch flushes every queued event to subscribed sinks. Call once per
// tick, after the death sweep, matching core.EventBus's dispatch timing.
func (b *Bus) Dispatch() {
	b.mu.Lock()
	queued := b.queue
	b.queue = nil
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.Unlock()

	for _, e := range queued {
		for _, s := range sinks {
			s.Event(e)
		}
	}
}

// SampleCounters reports c to every sink if at least one sample interval
// has elapsed since the last report, implementing the runtime-controlled
// sampling rate rather than pushing on every render frame. Returns
// whether it actually sampled this call.
func (b *Bus) SampleCounters(c Counters, now time.Time) bool {
	b.mu.Lock()
	due := now.Sub(b.lastSample) >= b.sampleEvery
	if due {
		b.lastSample = now
	}
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.Unlock()

	if !due {
		return false
	}
	for _, s := range sinks {
		s.Counters(c)
	}
	return true
}

// MarshalJSON is exposed for sinks (e.g. the websocket server) that want
// to forward an Event or Counters verbatim as a JSON text frame.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(alias(e))
}
