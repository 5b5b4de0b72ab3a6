package zoneward

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/zoneward/zoneward/observe"
	"github.com/zoneward/zoneward/sched"
	"github.com/zoneward/zoneward/track"
	"github.com/zoneward/zoneward/zone"
)

// Re-exported types so callers depend only on this root package (spec §6
// External Interfaces).
type (
	Shape          = zone.Shape
	Transform      = zone.Transform
	ZoneID         = zone.ID
	ZoneParams     = zone.Params
	EntityID       = track.EntityID
	GroupKind      = track.Kind
	GroupParams    = track.Params
	ObserverID     = observe.ID
	ObserverParams = observe.Params
	Cleanup        = observe.Cleanup
)

// PositionProbe returns an entity's current world position (spec §9:
// "replace [host-polymorphic position extraction] with an explicit
// position-probe function supplied at group:add time").
type PositionProbe = track.Probe

const (
	Block    = zone.Block
	Ball     = zone.Ball
	Cylinder = zone.Cylinder
	Wedge    = zone.Wedge

	GenericGroup     = track.Generic
	PlayersGroup     = track.Players
	LocalPlayerGroup = track.LocalPlayer
)

// Engine owns every zone, entity, group, and observer, and drives them one
// tick at a time (spec §6 Facade; §9 "a single process-wide engine instance
// is acceptable but not required" — nothing here is a package-level
// singleton).
type Engine struct {
	cfg       Config
	zones     *zone.Store
	entities  *track.Registry
	observers *observe.Registry
	dispatch  *observe.Dispatcher
	scheduler *sched.Scheduler

	adapters map[int64]*groupAdapter
	handles  []sched.GroupHandle // stable registration order (sched §4.7 fairness).
}

// New constructs an empty Engine.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	observers := observe.NewRegistry()
	return &Engine{
		cfg:       cfg,
		zones:     zone.NewStore(),
		entities:  track.NewRegistry(),
		observers: observers,
		dispatch:  observe.NewDispatcher(observers, cfg.Logger),
		scheduler: sched.New(sched.Config{Logger: cfg.Logger, Budget: cfg.FrameBudget, Clock: cfg.Clock}),
		adapters:  make(map[int64]*groupAdapter),
	}
}

// NewGroup creates a new Group (spec §6 Group.new).
func (e *Engine) NewGroup(p GroupParams) *track.Group {
	return e.registerGroup(e.entities.NewGroup(p))
}

// NewPlayersGroup creates a Group auto-populated from the host's
// player-join/leave notifications (spec §6 Group.players, §1(d)).
func (e *Engine) NewPlayersGroup(p GroupParams) *track.Group {
	return e.registerGroup(e.entities.NewPlayersGroup(p))
}

// NewLocalPlayerGroup creates a Group containing the single local
// participant, tracking respawns (spec §6 Group.localPlayer).
func (e *Engine) NewLocalPlayerGroup(p GroupParams) *track.Group {
	return e.registerGroup(e.entities.NewLocalPlayerGroup(p))
}

// registerGroup wires a freshly-created group into the scheduler's
// round-robin handle list, regardless of its Kind — players and
// local-player groups are scheduled exactly like a generic one.
func (e *Engine) registerGroup(g *track.Group) *track.Group {
	adapter := &groupAdapter{eng: e, group: g}
	e.adapters[g.ID()] = adapter
	e.handles = append(e.handles, adapter)
	return g
}

// AddEntity adds a new entity to g, tracked by probe (spec §6 group:add).
func (e *Engine) AddEntity(g *track.Group, handle uuid.UUID, probe PositionProbe, metadata any) EntityID {
	return e.entities.Add(g, handle, probe, metadata)
}

// RemoveEntity removes an entity from its group, synthesizing exits for
// every observer that currently records it INSIDE a zone (spec §3 Entity
// lifecycle, §6 group:remove).
func (e *Engine) RemoveEntity(g *track.Group, id EntityID) bool {
	e.dispatch.ExitAll(id, g.ID(), g.Kind(), e.metadataOf)
	return e.entities.Remove(g, id)
}

// PlayerJoined is the host's player-join notification intake for a players
// group (spec §1(d), §6 Group.players). g must have been created via
// NewPlayersGroup.
func (e *Engine) PlayerJoined(g *track.Group, handle uuid.UUID, probe PositionProbe, metadata any) (EntityID, error) {
	return e.entities.PlayerJoined(g, handle, probe, metadata)
}

// PlayerLeft is the host's player-leave notification, synthesizing exits
// for every observer that currently records the player inside a zone before
// removing it (spec §3 Entity lifecycle, §1(d)). g must have been created
// via NewPlayersGroup.
func (e *Engine) PlayerLeft(g *track.Group, id EntityID) error {
	if g.Kind() != track.Players {
		return track.ErrWrongGroupKind
	}
	e.dispatch.ExitAll(id, g.ID(), g.Kind(), e.metadataOf)
	return e.entities.PlayerLeft(g, id)
}

// SetLocalPlayer installs, or on respawn re-probes, the local-player group's
// single entity (spec §6 Group.localPlayer "tracking respawns"). g must have
// been created via NewLocalPlayerGroup.
func (e *Engine) SetLocalPlayer(g *track.Group, handle uuid.UUID, probe PositionProbe, metadata any) (EntityID, error) {
	return e.entities.SetLocalPlayer(g, handle, probe, metadata)
}

// NewObserver creates a new Observer (spec §6 Observer.new).
func (e *Engine) NewObserver(p ObserverParams) *observe.Observer {
	return e.observers.NewObserver(p)
}

// SetObserverEnabled implements observer:setEnabled (spec §4.6, §6).
func (e *Engine) SetObserverEnabled(o *observe.Observer, enabled bool) {
	e.dispatch.SetEnabled(o, enabled, e.groupOf, e.metadataOf)
}

// NewZone creates a new Zone (spec §6 Zone.new).
func (e *Engine) NewZone(p ZoneParams) (*zone.Zone, error) {
	return e.zones.Create(p)
}

// AttachZone implements zone:attach(observer) (spec §6): the zone learns
// its observer, and the observer learns its zone, each keyed by the
// other's id rather than an owning pointer (spec §9 "model as arena
// indices, not owning back-pointers").
func (e *Engine) AttachZone(z *zone.Zone, o *observe.Observer) {
	z.Attach(int64(o.ID))
	o.Attach(z.ID)
}

// DetachZone removes an observer's attachment to a zone.
func (e *Engine) DetachZone(z *zone.Zone, o *observe.Observer) {
	z.Detach(int64(o.ID))
	o.Detach(z.ID)
}

// MutateZone implements zone:setPosition/extents updates (spec §6).
func (e *Engine) MutateZone(id ZoneID, transform *Transform, extents *mgl64.Vec3) error {
	return e.zones.Mutate(id, transform, extents)
}

// DestroyZone implements zone:destroy() (spec §6, §3 Zone lifecycle). The
// synthetic exits it requires are emitted from the pre-tick flush, via
// Flush (spec §4.4: "before rebuilds").
func (e *Engine) DestroyZone(id ZoneID) error {
	return e.zones.Destroy(id)
}

// SetFrameBudget implements the facade's setFrameBudget (spec §6, default
// 1.0ms).
func (e *Engine) SetFrameBudget(d time.Duration) {
	e.scheduler.SetBudget(d)
}

// GetZonesAtPoint runs a fresh stabbing+exact query against both trees,
// independent of scheduling state (spec §6 getZonesAtPoint).
func (e *Engine) GetZonesAtPoint(p mgl64.Vec3) []ZoneID {
	return e.zones.QueryExact(p)
}

// GetGroupOfEntity implements the facade's getGroupOfEntity (spec §6).
func (e *Engine) GetGroupOfEntity(id EntityID) (*track.Group, bool) {
	return e.entities.GroupOf(id)
}

// Tick runs one scheduler invocation: flush, round-robin query, dispatch
// (spec §4.7).
func (e *Engine) Tick() sched.Result {
	return e.scheduler.Tick(e, e.handles, func() {})
}

// Flush implements sched.Flusher. Zone removal's synthetic exits (spec
// §4.4) are emitted here, before the rebuild that would otherwise still
// return the zone from queries.
func (e *Engine) Flush() (staticRebuilt, dynamicRebuilt bool) {
	res := e.zones.Flush(func(id zone.ID, meta any) {
		e.dispatch.ExitZone(id, e.groupOf, func(zone.ID) any { return meta })
	})
	return res.StaticRebuilt, res.DynamicRebuilt
}

func (e *Engine) groupOf(id EntityID) (int64, track.Kind, bool) {
	g, ok := e.entities.GroupOf(id)
	if !ok {
		return 0, 0, false
	}
	return g.ID(), g.Kind(), true
}

func (e *Engine) metadataOf(id ZoneID) any {
	z, ok := e.zones.Get(id)
	if !ok {
		return nil
	}
	return z.Metadata
}
