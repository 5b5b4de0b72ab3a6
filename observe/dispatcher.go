package observe

import (
	"log/slog"

	"github.com/zoneward/zoneward/track"
	"github.com/zoneward/zoneward/zone"
)

// MetadataLookup resolves a zone's opaque metadata at dispatch time.
type MetadataLookup func(zone.ID) any

// GroupLookup resolves the group id and kind an entity currently belongs to,
// used by SetEnabled/ExitZone/ExitAll to synthesize exits without the
// Dispatcher needing to own entity/group bookkeeping itself.
type GroupLookup func(track.EntityID) (groupID int64, kind track.Kind, ok bool)

// Dispatcher computes enter/exit deltas with priority resolution and drives
// observer callbacks (spec §4.8). It holds no per-entity state of its own;
// all state lives on the Observer records in the Registry.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher over r. A nil logger defaults to
// slog.Default(), matching the teacher's Config.withDefaults() convention.
func NewDispatcher(r *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: r, logger: logger}
}

// Dispatch processes one entity's exact-containment result set for the
// current tick (spec §4.8 steps 1-5), against every enabled observer
// subscribed to groupID. kind distinguishes a players/local-player group so
// the specialized onPlayer*/onLocalPlayer* callbacks know when to fire
// (spec §6).
func (d *Dispatcher) Dispatch(entity track.EntityID, groupID int64, kind track.Kind, candidates []zone.ID, metaOf MetadataLookup) {
	for _, o := range d.registry.Ordered() {
		if !o.enabled || !o.Subscribes(groupID) {
			continue
		}
		winner, ok := winnerAmong(o, candidates)
		d.transition(o, entity, groupID, kind, winner, ok, metaOf)
	}
}

// winnerAmong picks the candidate zone this observer is attached to with
// the lowest id (spec §4.6: within one observer every attached zone shares
// its priority, so the tie-break — ascending zone id — is the whole rule).
func winnerAmong(o *Observer, candidates []zone.ID) (zone.ID, bool) {
	var best zone.ID
	found := false
	for _, z := range candidates {
		if !o.Attached(z) {
			continue
		}
		if !found || z < best {
			best, found = z, true
		}
	}
	return best, found
}

func (d *Dispatcher) transition(o *Observer, entity track.EntityID, groupID int64, kind track.Kind, winner zone.ID, winnerOK bool, metaOf MetadataLookup) {
	prev, hadPrev := o.current[entity]
	if hadPrev == winnerOK && (!winnerOK || prev == winner) {
		return // spec §4.8 step 3: z0 == z*, no-op.
	}
	if hadPrev {
		d.fireExit(o, entity, groupID, kind, prev, metaOf)
	}
	if winnerOK {
		d.fireEnter(o, entity, groupID, kind, winner, metaOf)
	}
}

func (d *Dispatcher) fireExit(o *Observer, entity track.EntityID, groupID int64, kind track.Kind, z zone.ID, metaOf MetadataLookup) {
	meta := metaOf(z)
	for _, fn := range o.onExited {
		d.safe("onExited", func() { fn(entity, z, meta) })
	}
	switch kind {
	case track.Players:
		for _, fn := range o.onPlayerExited {
			d.safe("onPlayerExited", func() { fn(entity, z, meta) })
		}
	case track.LocalPlayer:
		for _, fn := range o.onLocalPlayerExited {
			d.safe("onLocalPlayerExited", func() { fn(entity, z, meta) })
		}
	}
	if cleanup, ok := o.cleanupEntity[entity]; ok {
		d.safe("cleanup(entity)", cleanup)
		delete(o.cleanupEntity, entity)
	}
	delete(o.current, entity)

	o.groupRef[groupID]--
	if o.groupRef[groupID] <= 0 {
		delete(o.groupRef, groupID)
		for _, fn := range o.onGroupExited {
			d.safe("onGroupExited", func() { fn(groupID, z) })
		}
		if cleanup, ok := o.cleanupGroup[groupID]; ok {
			d.safe("cleanup(group)", cleanup)
			delete(o.cleanupGroup, groupID)
		}
	}
}

func (d *Dispatcher) fireEnter(o *Observer, entity track.EntityID, groupID int64, kind track.Kind, z zone.ID, metaOf MetadataLookup) {
	meta := metaOf(z)
	for _, fn := range o.onEntered {
		d.safe("onEntered", func() { fn(entity, z, meta) })
	}
	switch kind {
	case track.Players:
		for _, fn := range o.onPlayerEntered {
			d.safe("onPlayerEntered", func() { fn(entity, z, meta) })
		}
		for _, fn := range o.observePlayers {
			var cleanup Cleanup
			d.safe("observePlayer", func() { cleanup = fn(entity, z, meta) })
			if cleanup != nil {
				o.cleanupEntity[entity] = cleanup
			}
		}
	case track.LocalPlayer:
		for _, fn := range o.onLocalPlayerEntered {
			d.safe("onLocalPlayerEntered", func() { fn(entity, z, meta) })
		}
		for _, fn := range o.observeLocalPlayers {
			var cleanup Cleanup
			d.safe("observeLocalPlayer", func() { cleanup = fn(entity, z, meta) })
			if cleanup != nil {
				o.cleanupEntity[entity] = cleanup
			}
		}
	}
	for _, fn := range o.observers {
		var cleanup Cleanup
		d.safe("observe", func() { cleanup = fn(entity, z, meta) })
		if cleanup != nil {
			o.cleanupEntity[entity] = cleanup
		}
	}
	o.current[entity] = z

	wasZero := o.groupRef[groupID] == 0
	o.groupRef[groupID]++
	if wasZero {
		for _, fn := range o.onGroupEntered {
			d.safe("onGroupEntered", func() { fn(groupID, z) })
		}
		for _, fn := range o.observeGroups {
			var cleanup Cleanup
			d.safe("observeGroup", func() { cleanup = fn(groupID, z) })
			if cleanup != nil {
				o.cleanupGroup[groupID] = cleanup
			}
		}
	}
}

// safe recovers a panicking callback, logs it, and lets dispatch continue —
// fireEnter/fireExit advance the state after their callbacks return or are
// recovered, so a throwing callback never leaves the state machine out of
// sync (spec §7, §9 open question: suppress-and-continue).
func (d *Dispatcher) safe(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("observer callback panicked", "callback", name, "recover", r)
		}
	}()
	fn()
}

// SetEnabled implements observer:setEnabled (spec §4.6). Disabling
// synthesizes an exit for every currently-INSIDE pair before clearing
// state; enabling leaves every pair OUTSIDE and lets the next tick's
// dispatch re-enter them naturally.
func (d *Dispatcher) SetEnabled(o *Observer, enabled bool, groupOf GroupLookup, metaOf MetadataLookup) {
	if enabled {
		o.enabled = true
		return
	}
	if !o.enabled {
		return
	}
	for entity, z := range o.current {
		groupID, kind, ok := groupOf(entity)
		if !ok {
			delete(o.current, entity)
			continue
		}
		d.fireExit(o, entity, groupID, kind, z, metaOf)
	}
	o.enabled = false
}

// Forget drops entity's current zone and pending cleanup from o without
// firing callbacks or running the cleanup; the group counter is left
// unchanged. The engine's removal paths use ExitAll, which synthesizes the
// exits instead.
func (d *Dispatcher) Forget(o *Observer, entity track.EntityID) {
	delete(o.current, entity)
	delete(o.cleanupEntity, entity)
}

// ExitZone synthesizes an exit for every (observer, entity) pair currently
// recorded as INSIDE zoneID — used when a zone is destroyed, so that
// subsequent rebuilds dropping the zone never leave a dangling INSIDE state
// (spec §4.4: "synthetic exits ... before rebuilds", §3 Zone lifecycle).
func (d *Dispatcher) ExitZone(zoneID zone.ID, groupOf GroupLookup, metaOf MetadataLookup) {
	for _, o := range d.registry.Ordered() {
		for entity, z := range o.current {
			if z != zoneID {
				continue
			}
			groupID, kind, ok := groupOf(entity)
			if !ok {
				delete(o.current, entity)
				continue
			}
			d.fireExit(o, entity, groupID, kind, z, metaOf)
		}
	}
}

// ExitAll synthesizes an exit from every attached zone the entity is
// currently INSIDE under every observer, then forgets it — used when an
// entity is destroyed/removed from its group (spec §3 Entity lifecycle).
func (d *Dispatcher) ExitAll(entity track.EntityID, groupID int64, kind track.Kind, metaOf MetadataLookup) {
	for _, o := range d.registry.Ordered() {
		if z, ok := o.current[entity]; ok {
			d.fireExit(o, entity, groupID, kind, z, metaOf)
		}
	}
}
