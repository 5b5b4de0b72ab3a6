// Package sched implements the frame-budgeted round-robin Scheduler of
// spec §4.7: a pre-tick ZoneStore flush followed by fairness-preserving,
// budget-truncated entity visitation. It knows nothing about zones,
// entities, or observers directly — it drives whatever implements
// Flusher/GroupHandle, which the root facade wires to the zone/track/observe
// packages. This mirrors the teacher's redstone.Scheduler, which drives
// ChunkWorker without knowing what a block graph is, but runs single
// threaded (spec §5: "single-threaded cooperative" — no goroutines, no
// channels, no worker inboxes).
package sched

import (
	"log/slog"
	"time"
)

// Clock returns the current time; tests substitute a fake one.
type Clock func() time.Time

// Config holds the scheduler's tunables.
type Config struct {
	// Logger receives a Warn when a tick's flush alone consumes the whole
	// budget (queries are skipped entirely that tick, spec §4.7 step 2).
	Logger *slog.Logger
	// Budget is the wall-clock ceiling per tick (spec §6 setFrameBudget,
	// default 1ms).
	Budget time.Duration
	// Clock supplies the monotonic time source. Defaults to time.Now.
	Clock Clock
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Budget <= 0 {
		c.Budget = time.Millisecond
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// GroupHandle is the round-robin unit the Scheduler drives (spec §4.5
// Group, §4.7 steps 3-4). Quota computes this tick's visitation budget for
// the group; Next yields the next slot to visit (consuming one unit of
// quota) until the group's quota for this tick is exhausted; VisitOne
// performs the probe/filter/query/dispatch work for that slot.
type GroupHandle interface {
	Quota(dt float64) int
	Next() (idx int, ok bool)
	VisitOne(idx int, tick int64, bypassFilter bool)
}

// Flusher performs the pre-tick ZoneStore flush (spec §4.4, §4.7 step 2)
// and reports which tree(s) rebuilt this tick — a rebuild forces the
// movement filter to be bypassed for every entity touching that tree (spec
// §4.5).
type Flusher interface {
	Flush() (staticRebuilt, dynamicRebuilt bool)
}

// Scheduler implements spec §4.7's algorithm end to end.
type Scheduler struct {
	cfg      Config
	tick     int64
	lastTick time.Time
	hasLast  bool
}

// New returns a Scheduler with cfg's defaults applied.
func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg.withDefaults()}
}

// SetBudget implements the facade's setFrameBudget (spec §6). Non-positive
// values are ignored, matching the teacher's withDefaults() guard style.
func (s *Scheduler) SetBudget(d time.Duration) {
	if d > 0 {
		s.cfg.Budget = d
	}
}

// Result reports what one Scheduler.Tick call did, for callers and tests.
type Result struct {
	// Skipped is true when the pre-tick flush alone consumed the whole
	// budget; no entity was visited this tick (spec §4.7 step 2).
	Skipped                      bool
	StaticRebuilt, DynamicRebuilt bool
	Processed                    int
	Elapsed                      time.Duration
}

// Tick runs one scheduler invocation (spec §4.7). groups must be supplied
// in the engine's stable registration order — the same slice order every
// tick — so that round-robin fairness (guarantee ii: "every group is
// visited before any group is visited twice") holds across ticks, not just
// within one.
func (s *Scheduler) Tick(flusher Flusher, groups []GroupHandle, drain func()) Result {
	t0 := s.cfg.Clock()
	s.tick++

	var res Result
	res.StaticRebuilt, res.DynamicRebuilt = flusher.Flush()
	if elapsed := s.cfg.Clock().Sub(t0); elapsed >= s.cfg.Budget {
		s.cfg.Logger.Warn("zoneward: tick budget exhausted by flush, skipping queries this tick",
			"tick", s.tick, "elapsed", elapsed, "budget", s.cfg.Budget)
		res.Skipped = true
		drain()
		res.Elapsed = s.cfg.Clock().Sub(t0)
		s.recordTick(t0)
		return res
	}

	dt := s.deltaSeconds(t0)
	bypass := res.StaticRebuilt || res.DynamicRebuilt
	for _, g := range groups {
		g.Quota(dt)
	}

	budgetHit := false
	for !budgetHit {
		progressed := false
		for _, g := range groups {
			idx, ok := g.Next()
			if !ok {
				continue
			}
			progressed = true
			g.VisitOne(idx, s.tick, bypass)
			res.Processed++
			if s.cfg.Clock().Sub(t0) >= s.cfg.Budget {
				budgetHit = true
				break
			}
		}
		if !progressed {
			break
		}
	}

	// Dispatcher drain is inside the budget accounting but is never itself
	// preempted mid-drain (spec §4.7 step 5).
	drain()
	res.Elapsed = s.cfg.Clock().Sub(t0)
	s.recordTick(t0)
	return res
}

func (s *Scheduler) recordTick(t0 time.Time) {
	s.lastTick = t0
	s.hasLast = true
}

const (
	minDt = 1.0 / 240
	maxDt = 1.0 / 15
)

func (s *Scheduler) deltaSeconds(now time.Time) float64 {
	if !s.hasLast {
		return maxDt
	}
	dt := now.Sub(s.lastTick).Seconds()
	if dt < minDt {
		dt = minDt
	}
	if dt > maxDt {
		dt = maxDt
	}
	return dt
}
