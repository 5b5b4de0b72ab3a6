package bvh

import "github.com/zoneward/zoneward/internal/geom"

// Refit recomputes the AABB union along the ancestor path of each changed
// leaf without altering topology (spec §4.3). It is only valid when the
// zone set is unchanged — callers must route insertions/removals through
// Build instead.
func (t *Tree) Refit(changes map[int64]geom.AABB) {
	for zoneID, box := range changes {
		leaf, ok := t.LeafIndex(zoneID)
		if !ok {
			continue
		}
		t.leafAABB[leaf] = box
		parent := t.leafParent[leaf]
		for parent != -1 {
			t.nodes[parent].aabb = geom.Union(t.childBox(t.nodes[parent].childA), t.childBox(t.nodes[parent].childB))
			parent = t.nodes[parent].parent
		}
	}
}
