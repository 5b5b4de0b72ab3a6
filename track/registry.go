package track

import (
	"errors"

	"github.com/google/uuid"
)

// ErrWrongGroupKind is returned by the player-lifecycle intake methods
// (PlayerJoined, PlayerLeft, SetLocalPlayer) when called against a group
// that was not constructed via NewPlayersGroup/NewLocalPlayerGroup (spec §6
// Group.players/Group.localPlayer).
var ErrWrongGroupKind = errors.New("track: group kind does not support this operation")

// Registry owns every Group and assigns globally-unique entity ids, so that
// spec §3's "an entity belongs to at most one group" invariant and
// Facade.getGroupOfEntity (spec §6) both have a single source of truth.
type Registry struct {
	groups      map[int64]*Group
	order       []int64 // registration order, for deterministic round-robin (spec §4.7 fairness).
	nextGroupID int64
	nextEntity  int64
	owner       map[EntityID]int64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[int64]*Group),
		owner:  make(map[EntityID]int64),
	}
}

// NewGroup creates and registers a Group (spec §6 Group.new).
func (r *Registry) NewGroup(p Params) *Group {
	r.nextGroupID++
	g := newGroup(r.nextGroupID, p)
	r.groups[g.id] = g
	r.order = append(r.order, g.id)
	return g
}

// Groups returns every registered group in registration order — the order
// the scheduler's round robin visits them in (spec §4.7).
func (r *Registry) Groups() []*Group {
	out := make([]*Group, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.groups[id])
	}
	return out
}

// Add creates a new entity in g and returns its globally-unique id.
func (r *Registry) Add(g *Group, handle uuid.UUID, probe Probe, metadata any) EntityID {
	r.nextEntity++
	id := EntityID(r.nextEntity)
	g.add(id, handle, probe, metadata)
	r.owner[id] = g.id
	return id
}

// Remove removes id from g, if present, and clears its ownership record.
func (r *Registry) Remove(g *Group, id EntityID) bool {
	if !g.remove(id) {
		return false
	}
	delete(r.owner, id)
	return true
}

// GroupOf returns the group an entity currently belongs to (spec §6
// getGroupOfEntity).
func (r *Registry) GroupOf(id EntityID) (*Group, bool) {
	gid, ok := r.owner[id]
	if !ok {
		return nil, false
	}
	return r.groups[gid], true
}

// NewPlayersGroup creates a Group auto-populated from the host's
// player-join/leave notifications (spec §6 Group.players, §1(d)).
func (r *Registry) NewPlayersGroup(p Params) *Group {
	p.Kind = Players
	return r.NewGroup(p)
}

// NewLocalPlayerGroup creates a Group containing the single local
// participant, tracking respawns (spec §6 Group.localPlayer).
func (r *Registry) NewLocalPlayerGroup(p Params) *Group {
	p.Kind = LocalPlayer
	return r.NewGroup(p)
}

// PlayerJoined adds a newly-joined player to g, the host's player-join
// notification intake (spec §1(d), §6 Group.players). g must have been
// created via NewPlayersGroup.
func (r *Registry) PlayerJoined(g *Group, handle uuid.UUID, probe Probe, metadata any) (EntityID, error) {
	if g.kind != Players {
		return 0, ErrWrongGroupKind
	}
	return r.Add(g, handle, probe, metadata), nil
}

// PlayerLeft removes a player the host reports as having left g. g must have
// been created via NewPlayersGroup.
func (r *Registry) PlayerLeft(g *Group, id EntityID) error {
	if g.kind != Players {
		return ErrWrongGroupKind
	}
	r.Remove(g, id)
	return nil
}

// SetLocalPlayer installs g's single entity, or — if one already exists —
// re-points its position probe in place without disturbing its id or
// observer state (spec §6 Group.localPlayer "tracking respawns"). g must
// have been created via NewLocalPlayerGroup.
func (r *Registry) SetLocalPlayer(g *Group, handle uuid.UUID, probe Probe, metadata any) (EntityID, error) {
	if g.kind != LocalPlayer {
		return 0, ErrWrongGroupKind
	}
	if id, ok := g.onlyEntity(); ok {
		g.SetProbe(id, probe)
		return id, nil
	}
	return r.Add(g, handle, probe, metadata), nil
}
