package bvh

import "github.com/go-gl/mathgl/mgl64"

// Stab returns the zone ids of every leaf whose AABB contains p. The
// returned slice aliases internal scratch owned by the tree and is only
// valid until the next call to Stab on the same tree (spec §4.3: a
// preallocated per-call result buffer).
func (t *Tree) Stab(p mgl64.Vec3) []int64 {
	t.results = t.results[:0]
	leaves := len(t.leafAABB)
	if leaves == 0 {
		return t.results
	}
	if leaves == 1 {
		if t.leafAABB[0].Contains(p) {
			t.results = append(t.results, t.leafZone[0])
		}
		return t.results
	}

	t.stack = t.stack[:0]
	t.stack = append(t.stack, 0) // root is internal node 0.
	for len(t.stack) > 0 {
		idx := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		cur := &t.nodes[idx]
		if !cur.aabb.Contains(p) {
			continue
		}
		t.descend(cur.childA, p)
		t.descend(cur.childB, p)
	}
	return t.results
}

func (t *Tree) descend(ref int32, p mgl64.Vec3) {
	if ref < 0 {
		leaf := ^ref
		if t.leafAABB[leaf].Contains(p) {
			t.results = append(t.results, t.leafZone[leaf])
		}
		return
	}
	if t.nodes[ref].aabb.Contains(p) {
		t.stack = append(t.stack, ref)
	}
}
