// Package track implements the EntityStore/Group component of spec §4.5:
// struct-of-arrays entity storage per group, the movement-threshold filter,
// and the update-rate scheduling bookkeeping each group carries.
package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// EntityID is an entity's stable identifier (spec §3 Entity), unique across
// every group in a Registry.
type EntityID int64

// Probe returns an entity's current world position. The engine invokes it
// every tick the entity is scheduled; it must be pure with respect to
// engine state (spec §5).
type Probe func() mgl64.Vec3

// Kind distinguishes the two host-lifecycle-managed group flavors from a
// plain application-managed group (spec §6 Group.players/Group.localPlayer).
type Kind uint8

const (
	Generic Kind = iota
	Players
	LocalPlayer
)

const (
	defaultUpdateRate = 30.0 // Hz, spec §6 Group.new default.
	defaultPrecision  = 0.0  // world units, spec §6 Group.new default.
)

type entityRow struct {
	id         EntityID
	handle     uuid.UUID
	probe      Probe
	lastPos    mgl64.Vec3
	hasLastPos bool
	lastTick   int64
	metadata   any
}

// Group is a homogeneous, contiguous collection of entities sharing
// performance parameters (spec §3 Group). The entity array has no holes;
// removal is swap-with-last.
type Group struct {
	id         int64
	kind       Kind
	updateRate float64 // Hz
	precision2 float64 // precision, squared, per spec §3 Group attributes.

	rows  []entityRow
	index map[EntityID]int

	cursor int
	// quota is the number of entities this group may still surface this
	// tick; the scheduler sets it at tick start and drains it as it visits
	// entities (spec §4.5, §4.7).
	quota int

	observerRefs int // count of observers currently subscribed (spec §3 Group invariant).
}

// Params configures a new Group (spec §6 Group.new).
type Params struct {
	Kind       Kind
	UpdateRate float64 // Hz; <= 0 uses the default of 30.
	Precision  float64 // world units; 0 disables the filter. A negative value is not rejected: the filter uses its square.
}

func newGroup(id int64, p Params) *Group {
	rate := p.UpdateRate
	if rate <= 0 {
		rate = defaultUpdateRate
	}
	return &Group{
		id:         id,
		kind:       p.Kind,
		updateRate: rate,
		precision2: p.Precision * p.Precision,
		index:      make(map[EntityID]int),
	}
}

// ID returns the group's identifier, stable for its lifetime.
func (g *Group) ID() int64 { return g.id }

// Kind reports whether this is a plain, players, or local-player group.
func (g *Group) Kind() Kind { return g.kind }

// Count returns the number of entities currently in the group.
func (g *Group) Count() int { return len(g.rows) }

// UpdateRate returns the group's configured queries-per-entity-per-second.
func (g *Group) UpdateRate() float64 { return g.updateRate }

// add appends a new row and indexes it. Callers (Registry) own id
// allocation so that ids stay unique across every group.
func (g *Group) add(id EntityID, handle uuid.UUID, probe Probe, metadata any) {
	g.rows = append(g.rows, entityRow{id: id, handle: handle, probe: probe, metadata: metadata})
	g.index[id] = len(g.rows) - 1
}

// remove swaps the target row with the last and truncates (spec §3 Group
// invariant: no holes, swap-with-last removal). It returns false if id is
// not a member.
func (g *Group) remove(id EntityID) bool {
	idx, ok := g.index[id]
	if !ok {
		return false
	}
	last := len(g.rows) - 1
	if idx != last {
		g.rows[idx] = g.rows[last]
		g.index[g.rows[idx].id] = idx
	}
	g.rows = g.rows[:last]
	delete(g.index, id)
	if g.cursor >= last {
		g.cursor = 0
	}
	return true
}

// Has reports whether id currently belongs to this group.
func (g *Group) Has(id EntityID) bool {
	_, ok := g.index[id]
	return ok
}

// SetProbe replaces the position probe for an existing entity without
// disturbing its id, slot, or observer membership state — used for the
// local-player respawn case (spec §6 Group.localPlayer) where the
// identity persists across a new underlying position source.
func (g *Group) SetProbe(id EntityID, probe Probe) bool {
	idx, ok := g.index[id]
	if !ok {
		return false
	}
	g.rows[idx].probe = probe
	return true
}

// onlyEntity returns the id of this group's sole entity, for the
// local-player respawn path (spec §6 Group.localPlayer), where the group by
// construction never holds more than one.
func (g *Group) onlyEntity() (EntityID, bool) {
	if len(g.rows) == 0 {
		return 0, false
	}
	return g.rows[0].id, true
}

// Metadata returns the opaque metadata attached to id, if any.
func (g *Group) Metadata(id EntityID) (any, bool) {
	idx, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.rows[idx].metadata, true
}

// Handle returns the opaque host handle for id, if any.
func (g *Group) Handle(id EntityID) (uuid.UUID, bool) {
	idx, ok := g.index[id]
	if !ok {
		return uuid.UUID{}, false
	}
	return g.rows[idx].handle, true
}

// Quota computes ceil(count * rate * dt), clamped to a sane tick-length
// range per spec §4.5, and stores it as the group's remaining per-tick
// budget for the round robin to drain.
func (g *Group) Quota(dt float64) int {
	const minDt, maxDt = 1.0 / 240, 1.0 / 15
	if dt < minDt {
		dt = minDt
	}
	if dt > maxDt {
		dt = maxDt
	}
	q := int(math.Ceil(float64(len(g.rows)) * g.updateRate * dt))
	g.quota = q
	return q
}

// RemainingQuota reports how much of this tick's quota is left.
func (g *Group) RemainingQuota() int { return g.quota }

// Next returns the index of the next entity to visit in round-robin order
// and advances the cursor, consuming one unit of quota. It returns false
// once the quota for this tick is exhausted or the group is empty.
func (g *Group) Next() (idx int, ok bool) {
	if len(g.rows) == 0 || g.quota <= 0 {
		return 0, false
	}
	idx = g.cursor
	g.cursor = (g.cursor + 1) % len(g.rows)
	g.quota--
	return idx, true
}

// Visit probes the entity at idx, applies the movement-threshold filter
// (spec §4.5), and reports whether a containment query should run this
// tick. bypassFilter must be true when any attached zone of any subscribed
// observer had its tree rebuilt this tick (spec §4.5 exception).
func (g *Group) Visit(idx int, tick int64, bypassFilter bool) (id EntityID, pos mgl64.Vec3, shouldQuery bool) {
	row := &g.rows[idx]
	pos = row.probe()
	shouldQuery = true
	if !bypassFilter && row.hasLastPos && g.precision2 > 0 {
		d := pos.Sub(row.lastPos)
		if d.LenSqr() < g.precision2 {
			shouldQuery = false
		}
	}
	row.lastPos, row.hasLastPos, row.lastTick = pos, true, tick
	return row.id, pos, shouldQuery
}
