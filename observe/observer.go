// Package observe implements the Observer and Dispatcher components of
// spec §3 (Observer), §4.6 (Observer state machine), and §4.8 (Dispatcher):
// subscription/attachment sets, per-observer priority, the
// OUTSIDE/INSIDE(zoneId) state machine per (observer, entity) pair, group
// entered/exited counters, and the observe*-style cleanup closures.
package observe

import (
	"github.com/zoneward/zoneward/track"
	"github.com/zoneward/zoneward/zone"
)

// ID identifies an Observer, stable for its lifetime.
type ID int64

// Cleanup is the closure an observe*-style callback may return; it runs
// exactly once, at the matching exit, and is dropped without running if the
// owning observer/entity/zone is torn down without ever exiting (spec §8
// "round-trip of lifecycle cleanups").
type Cleanup func()

// EnterFunc/ExitFunc fire for a single (entity, zone) transition under one
// observer. metadata is the zone's Metadata field at dispatch time.
type EnterFunc func(entity track.EntityID, zoneID zone.ID, metadata any)
type ExitFunc func(entity track.EntityID, zoneID zone.ID, metadata any)

// ObserveFunc is the observe/observePlayer/observeLocalPlayer variant: same
// signature as EnterFunc, but may return a Cleanup to run on the matching
// exit.
type ObserveFunc func(entity track.EntityID, zoneID zone.ID, metadata any) Cleanup

// GroupFunc fires a group-level entered/exited event (spec §4.6 "each
// (observer, group) pair holds a reference count").
type GroupFunc func(groupID int64, zoneID zone.ID)

// ObserveGroupFunc is observeGroup's cleanup-returning variant.
type ObserveGroupFunc func(groupID int64, zoneID zone.ID) Cleanup

// Observer binds a set of groups to a set of zones and carries the
// callbacks fired as entities cross the boundary (spec §3 Observer).
type Observer struct {
	ID       ID
	Priority int // dispatch order across observers: higher priority is dispatched first.
	enabled  bool

	groups map[int64]struct{}   // subscribed group ids.
	zones  map[zone.ID]struct{} // attached zone ids.

	onEntered            []EnterFunc
	onExited             []ExitFunc
	onGroupEntered       []GroupFunc
	onGroupExited        []GroupFunc
	onPlayerEntered      []EnterFunc
	onPlayerExited       []ExitFunc
	onLocalPlayerEntered []EnterFunc
	onLocalPlayerExited  []ExitFunc
	observers            []ObserveFunc
	observeGroups        []ObserveGroupFunc
	observePlayers       []ObserveFunc
	observeLocalPlayers  []ObserveFunc

	// current records, per entity, the single zone id this observer
	// currently considers the entity INSIDE. Absence means OUTSIDE (spec §3
	// Observer invariant: entries exist iff currently inside >= 1 attached
	// zone).
	current map[track.EntityID]zone.ID

	// groupRef is the (observer, group) reference count of entities
	// currently INSIDE any attached zone, for onGroupEntered/onGroupExited
	// 0<->1 transitions (spec §4.6).
	groupRef map[int64]int

	// cleanupEntity/cleanupGroup hold the pending closures returned by
	// observe*/observeGroup, keyed the same way as current/groupRef.
	cleanupEntity map[track.EntityID]Cleanup
	cleanupGroup  map[int64]Cleanup
}

// Params configures a new Observer (spec §6 Observer.new).
type Params struct {
	Priority int
	Groups   []int64
}

func newObserver(id ID, p Params) *Observer {
	o := &Observer{
		ID:            id,
		Priority:      p.Priority,
		enabled:       true,
		groups:        make(map[int64]struct{}),
		zones:         make(map[zone.ID]struct{}),
		current:       make(map[track.EntityID]zone.ID),
		groupRef:      make(map[int64]int),
		cleanupEntity: make(map[track.EntityID]Cleanup),
		cleanupGroup:  make(map[int64]Cleanup),
	}
	for _, g := range p.Groups {
		o.groups[g] = struct{}{}
	}
	return o
}

// Enabled reports whether this observer currently participates in dispatch.
func (o *Observer) Enabled() bool { return o.enabled }

// Subscribe adds groupID to this observer's subscription set (spec §6
// observer:subscribe).
func (o *Observer) Subscribe(groupID int64) { o.groups[groupID] = struct{}{} }

// Unsubscribe removes groupID from this observer's subscription set.
func (o *Observer) Unsubscribe(groupID int64) { delete(o.groups, groupID) }

// Subscribes reports whether this observer subscribes to groupID.
func (o *Observer) Subscribes(groupID int64) bool {
	_, ok := o.groups[groupID]
	return ok
}

// Attach adds zoneID to this observer's attachment set (spec §6
// zone:attach).
func (o *Observer) Attach(zoneID zone.ID) { o.zones[zoneID] = struct{}{} }

// Detach removes zoneID from this observer's attachment set.
func (o *Observer) Detach(zoneID zone.ID) { delete(o.zones, zoneID) }

// Attached reports whether this observer is attached to zoneID.
func (o *Observer) Attached(zoneID zone.ID) bool {
	_, ok := o.zones[zoneID]
	return ok
}

// OnEntered/OnExited/OnGroupEntered/OnGroupExited register plain callbacks
// (spec §6). Multiple registrations are all invoked, in registration order.
func (o *Observer) OnEntered(fn EnterFunc) { o.onEntered = append(o.onEntered, fn) }
func (o *Observer) OnExited(fn ExitFunc)   { o.onExited = append(o.onExited, fn) }
func (o *Observer) OnGroupEntered(fn GroupFunc) {
	o.onGroupEntered = append(o.onGroupEntered, fn)
}
func (o *Observer) OnGroupExited(fn GroupFunc) { o.onGroupExited = append(o.onGroupExited, fn) }

// Observe and ObserveGroup register a cleanup-returning callback (spec §6
// observe/observeGroup).
func (o *Observer) Observe(fn ObserveFunc) { o.observers = append(o.observers, fn) }
func (o *Observer) ObserveGroup(fn ObserveGroupFunc) {
	o.observeGroups = append(o.observeGroups, fn)
}

// OnPlayerEntered/OnPlayerExited and OnLocalPlayerEntered/OnLocalPlayerExited
// register callbacks scoped to entities in a players/local-player group
// (spec §6). They fire alongside, not instead of, OnEntered/OnExited — a
// players-group transition is still a generic transition too.
func (o *Observer) OnPlayerEntered(fn EnterFunc) {
	o.onPlayerEntered = append(o.onPlayerEntered, fn)
}
func (o *Observer) OnPlayerExited(fn ExitFunc) { o.onPlayerExited = append(o.onPlayerExited, fn) }
func (o *Observer) OnLocalPlayerEntered(fn EnterFunc) {
	o.onLocalPlayerEntered = append(o.onLocalPlayerEntered, fn)
}
func (o *Observer) OnLocalPlayerExited(fn ExitFunc) {
	o.onLocalPlayerExited = append(o.onLocalPlayerExited, fn)
}

// ObservePlayer and ObserveLocalPlayer are the cleanup-returning variants of
// OnPlayerEntered/OnLocalPlayerEntered (spec §6 observePlayer/
// observeLocalPlayer), sharing the same per-entity cleanup slot as Observe.
func (o *Observer) ObservePlayer(fn ObserveFunc) {
	o.observePlayers = append(o.observePlayers, fn)
}
func (o *Observer) ObserveLocalPlayer(fn ObserveFunc) {
	o.observeLocalPlayers = append(o.observeLocalPlayers, fn)
}

// CurrentZone returns the zone this observer currently considers entity
// INSIDE, if any (spec §3 Observer "current winning zone id").
func (o *Observer) CurrentZone(entity track.EntityID) (zone.ID, bool) {
	z, ok := o.current[entity]
	return z, ok
}
