package pathfind

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/1siamBot/rts-engine/engine/core"
	"github.com/1siamBot/rts-engine/engine/maplib"
)

// PathErrorKind classifies why a Queue could not produce a path.
type PathErrorKind uint8

const (
	// ErrOutOfBounds: start or goal cell is outside the nav grid.
	ErrOutOfBounds PathErrorKind = iota
	// ErrUnreachable: the search exhausted its open set before reaching
	// the goal; no path exists given current occupancy/passability.
	ErrUnreachable
	// ErrBudgetExhausted: the request went three consecutive ticks
	// without a single node expansion (starved by higher-priority
	// requests) and was abandoned rather than held indefinitely.
	ErrBudgetExhausted
)

// PathError reports a request that will never yield a path this attempt.
type PathError struct {
	Kind   PathErrorKind
	Entity core.Entity
}

func (e *PathError) Error() string {
	switch e.Kind {
	case ErrOutOfBounds:
		return "pathfind: start or goal out of bounds"
	case ErrBudgetExhausted:
		return "pathfind: request starved of search budget"
	default:
		return "pathfind: no path to goal"
	}
}

// DefaultBudgetPerTick is the total node-expansion allowance shared by every
// in-flight request on a single tick (spec §4.5: B_steps).
const DefaultBudgetPerTick = 20000

// TicksWithoutProgressLimit is how many consecutive ticks a request may go
// without a single expansion before it is abandoned as starved (spec's
// B_requests_abandon).
const TicksWithoutProgressLimit = 3

// Request asks the Queue to find a path for an entity between two cells.
type Request struct {
	Entity   core.Entity
	Start    core.Cell
	Goal     core.Cell
	Flag     maplib.PassFlag
	Priority int // higher runs first within a tick's round-robin
}

// ResultStatus is the terminal state of a resolved request.
type ResultStatus uint8

const (
	StatusFound ResultStatus = iota
	StatusUnreachable
	StatusBudgetExhausted
)

// Result is a finished search's outcome. Path excludes the start cell and
// is strictly cell-adjacent step to step (no smoothing is applied: movement
// consumes it directly and the adjacency invariant must hold end to end).
type Result struct {
	Status ResultStatus
	Path   []core.Cell
	Cost   float64
}

// entry is one request's resumable search state, carried across ticks
// until it finishes or is abandoned.
type entry struct {
	req    Request
	open   nodeHeap
	came   map[core.Cell]core.Cell
	gScore map[core.Cell]float64
	closed map[core.Cell]bool

	ticksWithoutProgress int
	done                 bool
	result               Result
}

// Queue is the per-tick resumable A* scheduler described in spec §4.5: a
// round-robin pool of in-flight searches sharing one node-expansion budget
// per tick, so no single request can stall every other unit's order.
type Queue struct {
	ng      *NavGrid
	budget  int
	entries []*entry
	byEnt   map[core.Entity]*entry

	// spentHistory is a rolling window of per-tick expansion counts,
	// exposed via Utilization for diagnostics (engine/diag Counters).
	spentHistory []float64
}

// utilizationWindow bounds how many recent ticks Utilization averages over.
const utilizationWindow = 30

// NewQueue creates a pathfinding queue bound to a nav grid with the default
// per-tick expansion budget.
func NewQueue(ng *NavGrid) *Queue {
	return &Queue{
		ng:     ng,
		budget: DefaultBudgetPerTick,
		byEnt:  make(map[core.Entity]*entry),
	}
}

// Utilization reports the rolling-average fraction of the per-tick
// expansion budget actually spent over the last utilizationWindow ticks
// that called Process, as a diagnostics signal for how close the shared
// search budget is to saturating. Returns 0 before any tick has run.
func (q *Queue) Utilization() float64 {
	if len(q.spentHistory) == 0 || q.budget <= 0 {
		return 0
	}
	mean := floats.Sum(q.spentHistory) / float64(len(q.spentHistory))
	return mean / float64(q.budget)
}

// SetBudget overrides the per-tick node-expansion allowance.
func (q *Queue) SetBudget(n int) { q.budget = n }

// Enqueue admits a new request. Replaces any in-flight request already
// queued for the same entity. Returns PathError{ErrOutOfBounds} immediately
// if start or goal falls outside the grid; never touches the search budget.
func (q *Queue) Enqueue(req Request) error {
	if !inBounds(q.ng, req.Start) || !inBounds(q.ng, req.Goal) {
		return &PathError{Kind: ErrOutOfBounds, Entity: req.Entity}
	}
	if old, ok := q.byEnt[req.Entity]; ok {
		q.remove(old)
	}
	if req.Start == req.Goal {
		e := &entry{req: req, done: true, result: Result{Status: StatusFound}}
		q.entries = append(q.entries, e)
		q.byEnt[req.Entity] = e
		return nil
	}
	e := &entry{
		req:    req,
		came:   make(map[core.Cell]core.Cell),
		gScore: map[core.Cell]float64{req.Start: 0},
		closed: make(map[core.Cell]bool),
	}
	heap.Push(&e.open, &node{c: req.Start, g: 0, f: heuristic(req.Start, req.Goal)})
	q.entries = append(q.entries, e)
	q.byEnt[req.Entity] = e
	return nil
}

// Cancel drops a pending or in-flight request for an entity.
func (q *Queue) Cancel(e core.Entity) {
	if ent, ok := q.byEnt[e]; ok {
		q.remove(ent)
	}
}

func (q *Queue) remove(target *entry) {
	delete(q.byEnt, target.req.Entity)
	for i, e := range q.entries {
		if e == target {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// Poll returns the result for an entity's request if it has finished, and
// whether it has finished at all. A pending (still searching) request
// reports ok=false.
func (q *Queue) Poll(e core.Entity) (Result, bool) {
	ent, ok := q.byEnt[e]
	if !ok || !ent.done {
		return Result{}, false
	}
	return ent.result, true
}

// Process spends up to the queue's per-tick budget expanding every pending
// search round-robin, in descending request priority. Call once per
// simulation tick. Finished entries are removed from the pool; callers
// retrieve their outcome via Poll before the next Enqueue reuses the slot.
func (q *Queue) Process() {
	if len(q.entries) == 0 {
		q.recordSpent(0)
		return
	}
	insertionSortByPriorityDesc(q.entries)

	remaining := q.budget
	progressed := make(map[*entry]bool, len(q.entries))

	for remaining > 0 {
		advanced := false
		for _, e := range q.entries {
			if e.done || remaining <= 0 {
				continue
			}
			if e.stepOnce(q.ng) {
				progressed[e] = true
			}
			remaining--
			advanced = true
		}
		if !advanced {
			break
		}
	}

	var finished []*entry
	for _, e := range q.entries {
		if e.done {
			finished = append(finished, e)
			continue
		}
		if progressed[e] {
			e.ticksWithoutProgress = 0
			continue
		}
		e.ticksWithoutProgress++
		if e.ticksWithoutProgress >= TicksWithoutProgressLimit {
			e.done = true
			e.result = Result{Status: StatusBudgetExhausted}
			finished = append(finished, e)
		}
	}
	for _, e := range finished {
		// Kept in byEnt until Poll/Enqueue supersedes it; only drop from
		// the active round-robin list.
		q.removeFromEntries(e)
	}
	q.recordSpent(float64(q.budget - remaining))
}

func (q *Queue) recordSpent(spent float64) {
	q.spentHistory = append(q.spentHistory, spent)
	if len(q.spentHistory) > utilizationWindow {
		q.spentHistory = q.spentHistory[len(q.spentHistory)-utilizationWindow:]
	}
}

func (q *Queue) removeFromEntries(target *entry) {
	for i, e := range q.entries {
		if e == target {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// stepOnce pops and expands a single node. Returns false only if the open
// set was already empty (search exhausted: unreachable); popping the goal
// finishes the search and returns true.
func (e *entry) stepOnce(ng *NavGrid) bool {
	if e.open.Len() == 0 {
		e.done = true
		e.result = Result{Status: StatusUnreachable}
		return false
	}
	cur := heap.Pop(&e.open).(*node)
	if e.closed[cur.c] {
		return true
	}
	e.closed[cur.c] = true

	if cur.c == e.req.Goal {
		e.done = true
		e.result = Result{
			Status: StatusFound,
			Path:   reconstructPath(e.came, e.req.Goal),
			Cost:   e.gScore[cur.c],
		}
		return true
	}

	for _, d := range neighborDirs {
		nc := core.Cell{X: cur.c.X + d[0], Y: cur.c.Y + d[1]}
		if !ng.Passable(nc.X, nc.Y, e.req.Flag) {
			continue
		}
		if d[0] != 0 && d[1] != 0 {
			if !ng.Passable(cur.c.X+d[0], cur.c.Y, e.req.Flag) || !ng.Passable(cur.c.X, cur.c.Y+d[1], e.req.Flag) {
				continue
			}
		}
		moveCost := ng.Cost(nc.X, nc.Y)
		if d[0] != 0 && d[1] != 0 {
			moveCost *= math.Sqrt2
		}
		tentG := e.gScore[cur.c] + moveCost
		if old, ok := e.gScore[nc]; ok && tentG >= old {
			continue
		}
		e.gScore[nc] = tentG
		e.came[nc] = cur.c
		heap.Push(&e.open, &node{c: nc, g: tentG, f: tentG + heuristic(nc, e.req.Goal)})
	}
	return true
}

func inBounds(ng *NavGrid, c core.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < ng.Width && c.Y < ng.Height
}

func insertionSortByPriorityDesc(entries []*entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].req.Priority > entries[j-1].req.Priority; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

var neighborDirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// heuristic is the octile distance: admissible and consistent for an
// 8-directional grid with sqrt(2)-cost diagonals.
func heuristic(a, b core.Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
}

func reconstructPath(came map[core.Cell]core.Cell, goal core.Cell) []core.Cell {
	path := []core.Cell{goal}
	cur := goal
	for {
		prev, ok := came[cur]
		if !ok {
			break
		}
		path = append(path, prev)
		cur = prev
	}
	// The chain always ends at the start cell, which Result.Path excludes.
	path = path[:len(path)-1]
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// --- Priority queue ---

type node struct {
	c    core.Cell
	g, f float64
}

type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }

// Less ties on f-score toward the larger g-score, per spec's tie-break
// rule: prefer nodes already deeper into the search over ones that are
// merely closer to the heuristic's estimate.
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f == h[j].f {
		return h[i].g > h[j].g
	}
	return h[i].f < h[j].f
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) {
	*h = append(*h, x.(*node))
}
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
