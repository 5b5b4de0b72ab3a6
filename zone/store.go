package zone

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zoneward/zoneward/internal/bvh"
	"github.com/zoneward/zoneward/internal/geom"
)

// treeState groups one LBVH with the three dirty sets spec §4.4 requires
// (inserted, mutated, removed), flushed together once per tick.
type treeState struct {
	tree     *bvh.Tree
	inserted map[ID]struct{}
	mutated  map[ID]struct{}
	removed  map[ID]struct{}
}

func newTreeState() *treeState {
	return &treeState{
		tree:     bvh.New(),
		inserted: make(map[ID]struct{}),
		mutated:  make(map[ID]struct{}),
		removed:  make(map[ID]struct{}),
	}
}

func (s *treeState) dirty() bool {
	return len(s.inserted) > 0 || len(s.mutated) > 0 || len(s.removed) > 0
}

func (s *treeState) clear() {
	clear(s.inserted)
	clear(s.mutated)
	clear(s.removed)
}

// Store owns every Zone and the static/dynamic LBVH pair (spec §3 Zone,
// §3 Trees, §4.4 ZoneStore).
type Store struct {
	zones  map[ID]*Zone
	nextID int64

	static, dynamic *treeState

	idBuf   []int64
	aabbBuf []geom.AABB
	stabBuf []ID
}

// NewStore returns an empty zone Store.
func NewStore() *Store {
	return &Store{
		zones:   make(map[ID]*Zone),
		static:  newTreeState(),
		dynamic: newTreeState(),
	}
}

// Params describes a new zone at construction time (spec §6 Zone.new).
type Params struct {
	Shape     Shape
	Transform Transform
	Extents   mgl64.Vec3
	Dynamic   bool
	Metadata  any
}

// Create assigns a new, never-reused id and places the zone in the inserted
// set of its tree (spec §4.4).
func (s *Store) Create(p Params) (*Zone, error) {
	if !validShape(p.Shape) {
		return nil, ErrInvalidShape
	}
	if !validExtents(p.Extents) {
		return nil, ErrInvalidExtents{Extents: p.Extents}
	}
	s.nextID++
	z := &Zone{
		ID:        ID(s.nextID),
		Shape:     p.Shape,
		Transform: p.Transform,
		Extents:   p.Extents,
		Dynamic:   p.Dynamic,
		Metadata:  p.Metadata,
		aabb:      geom.AABBOf(p.Shape, p.Transform, p.Extents),
	}
	s.zones[z.ID] = z
	s.treeFor(z).inserted[z.ID] = struct{}{}
	return z, nil
}

// Get returns the live zone for id, if any.
func (s *Store) Get(id ID) (*Zone, bool) {
	z, ok := s.zones[id]
	if !ok || z.destroyed {
		return nil, false
	}
	return z, true
}

// Mutate updates a dynamic zone's transform and/or extents and recomputes
// its cached AABB immediately; the tree topology update is deferred to the
// next Flush (spec §4.4). Mutating a static zone is rejected outright
// (spec §3 invariant: static AABBs are immutable after creation).
func (s *Store) Mutate(id ID, transform *Transform, extents *mgl64.Vec3) error {
	z, ok := s.zones[id]
	if !ok {
		return ErrUnknownZone
	}
	if z.destroyed {
		return ErrDestroyed
	}
	if !z.Dynamic {
		return ErrStaticImmutable
	}
	if extents != nil && !validExtents(*extents) {
		return ErrInvalidExtents{Extents: *extents}
	}
	if transform != nil {
		z.Transform = *transform
	}
	if extents != nil {
		z.Extents = *extents
	}
	z.aabb = geom.AABBOf(z.Shape, z.Transform, z.Extents)

	tree := s.treeFor(z)
	if _, alreadyInserted := tree.inserted[id]; !alreadyInserted {
		tree.mutated[id] = struct{}{}
	}
	return nil
}

// Destroy removes a zone. It is placed in the removed set; the caller
// (the engine facade, via Flush's onRemoved callback) is responsible for
// emitting synthetic exits before the next rebuild drops the zone from
// queries (spec §3, §4.4).
func (s *Store) Destroy(id ID) error {
	z, ok := s.zones[id]
	if !ok {
		return ErrUnknownZone
	}
	if z.destroyed {
		return ErrDestroyed
	}
	z.destroyed = true
	tree := s.treeFor(z)
	if _, wasInserted := tree.inserted[id]; wasInserted {
		// Never made it into a tree: drop it silently, no synthetic exit
		// needed since it was never queryable.
		delete(tree.inserted, id)
		delete(s.zones, id)
		return nil
	}
	delete(tree.mutated, id)
	tree.removed[id] = struct{}{}
	return nil
}

func (s *Store) treeFor(z *Zone) *treeState {
	if z.Dynamic {
		return s.dynamic
	}
	return s.static
}

// FlushResult reports which trees performed a build action this tick, so
// the scheduler can bypass the movement filter for entities touching a
// rebuilt tree (spec §4.5).
type FlushResult struct {
	StaticRebuilt, StaticRefit   bool
	DynamicRebuilt, DynamicRefit bool
}

// Flush drains the dirty sets of both trees, performing at most one build
// action per tree (spec §4.3 "at most one build per tree per tick", §4.7
// step 2). onRemoved is invoked for every zone actually removed, before the
// rebuild that would otherwise still return it from queries — callers use
// it to emit synthetic exit events (spec §4.4). It receives the zone's
// metadata as it was immediately before removal, since the record itself is
// gone by the time the caller could look it up.
func (s *Store) Flush(onRemoved func(ID, any)) FlushResult {
	var res FlushResult
	res.StaticRebuilt, res.StaticRefit = s.flushTree(s.static, false, onRemoved)
	res.DynamicRebuilt, res.DynamicRefit = s.flushTree(s.dynamic, true, onRemoved)
	return res
}

func (s *Store) flushTree(t *treeState, dynamic bool, onRemoved func(ID, any)) (rebuilt, refit bool) {
	if !t.dirty() {
		return false, false
	}
	for id := range t.removed {
		if onRemoved != nil {
			var meta any
			if z, ok := s.zones[id]; ok {
				meta = z.Metadata
			}
			onRemoved(id, meta)
		}
		delete(s.zones, id)
	}
	membershipChanged := len(t.inserted) > 0 || len(t.removed) > 0
	switch {
	case membershipChanged:
		s.rebuild(t, dynamic)
		rebuilt = true
	case len(t.mutated) > 0:
		n := t.tree.Len()
		threshold := (n + 15) / 16 // ceil(n/16)
		if len(t.mutated) <= threshold {
			changes := make(map[int64]geom.AABB, len(t.mutated))
			for id := range t.mutated {
				if z, ok := s.zones[id]; ok {
					changes[int64(id)] = z.aabb
				}
			}
			t.tree.Refit(changes)
			refit = true
		} else {
			s.rebuild(t, dynamic)
			rebuilt = true
		}
	}
	t.clear()
	return rebuilt, refit
}

func (s *Store) rebuild(t *treeState, dynamic bool) {
	s.idBuf = s.idBuf[:0]
	s.aabbBuf = s.aabbBuf[:0]
	for id, z := range s.zones {
		if z.Dynamic != dynamic || z.destroyed {
			continue
		}
		s.idBuf = append(s.idBuf, int64(id))
		s.aabbBuf = append(s.aabbBuf, z.aabb)
	}
	t.tree.Build(s.idBuf, s.aabbBuf)
}

// QueryExact returns every zone whose shape exactly contains p, combining a
// stabbing query against both trees with the per-shape containment test
// (spec §4.1, §6 getZonesAtPoint). A zone destroyed since the last Flush is
// still returned until that Flush drops it from its tree. The returned slice
// is scratch owned by the Store and is only valid until the next call.
func (s *Store) QueryExact(p mgl64.Vec3) []ID {
	s.stabBuf = s.stabBuf[:0]
	for _, hit := range s.static.tree.Stab(p) {
		if z, ok := s.zones[ID(hit)]; ok && z.Contains(p) {
			s.stabBuf = append(s.stabBuf, z.ID)
		}
	}
	for _, hit := range s.dynamic.tree.Stab(p) {
		if z, ok := s.zones[ID(hit)]; ok && z.Contains(p) {
			s.stabBuf = append(s.stabBuf, z.ID)
		}
	}
	return s.stabBuf
}

// StaticAABB and DynamicAABB expose each tree's root bound, used by tests
// verifying tree-consistency (spec §8).
func (s *Store) StaticAABB() geom.AABB  { return s.static.tree.RootAABB() }
func (s *Store) DynamicAABB() geom.AABB { return s.dynamic.tree.RootAABB() }
