// Package bvh implements the Linear Bounding Volume Hierarchy described in
// spec §4.3: O(n) construction from Morton-sorted leaves via the Karras
// longest-common-prefix split, incremental refit, and iterative stabbing
// queries with preallocated scratch.
package bvh

import (
	"math"
	"math/bits"

	"github.com/brentp/intintmap"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zoneward/zoneward/internal/geom"
	"github.com/zoneward/zoneward/internal/morton"
)

// node is an internal LBVH node. Children are tagged refs: >= 0 addresses
// another internal node, < 0 addresses leaf index ^ref (bitwise complement).
type node struct {
	childA, childB int32
	parent         int32
	aabb           geom.AABB
}

// Tree is one LBVH — either the static or the dynamic tree owned by a
// zone.Store. The zero value is an empty, queryable tree.
type Tree struct {
	leafAABB   []geom.AABB
	leafZone   []int64
	leafParent []int32 // index of the owning internal node, or -1 if this tree has a single leaf and no internal nodes.

	nodes []node // len(nodes) == max(0, len(leafAABB)-1); nodes[0] is the root when present.

	// zoneToLeaf maps a zone id to its current leaf index, kept as a flat
	// int64->int64 table since both sides are dense small integers and this
	// lookup sits on the refit path (spec §5: steady
	// state must not allocate).
	zoneToLeaf *intintmap.Map

	sorter  morton.Sorter
	pairs   []morton.Pair
	stack   []int32
	results []int64
}

// New returns an empty tree ready for Build.
func New() *Tree {
	return &Tree{zoneToLeaf: intintmap.New(64, 0.75)}
}

// Len reports the number of leaves (zones) currently held by the tree.
func (t *Tree) Len() int { return len(t.leafAABB) }

// LeafIndex returns the current leaf slot for a zone id, if present.
func (t *Tree) LeafIndex(zoneID int64) (int, bool) {
	v, ok := t.zoneToLeaf.Get(zoneID)
	return int(v), ok
}

// Build performs a full rebuild from the given (zoneID, aabb) leaves. The
// centroid bounds used for Morton normalization are derived from the leaves
// themselves, recomputed on every call, per spec §4.2.
func (t *Tree) Build(zoneIDs []int64, aabbs []geom.AABB) {
	n := len(zoneIDs)
	t.leafAABB = growAABB(t.leafAABB, n)
	t.leafZone = growI64(t.leafZone, n)
	t.leafParent = growI32(t.leafParent, n)
	t.zoneToLeaf = intintmap.New(max(64, n*2), 0.75)

	if n == 0 {
		t.nodes = t.nodes[:0]
		return
	}

	lo, hi := centroidBounds(aabbs)
	if cap(t.pairs) < n {
		t.pairs = make([]morton.Pair, n)
	}
	pairs := t.pairs[:n]
	for i, box := range aabbs {
		x, y, z := morton.Normalize(box.Center(), lo, hi)
		pairs[i] = morton.Pair{Code: morton.Encode(x, y, z), Leaf: int32(i)}
	}
	t.sorter.Sort(pairs)

	for i, p := range pairs {
		t.leafAABB[i] = aabbs[p.Leaf]
		t.leafZone[i] = zoneIDs[p.Leaf]
		t.zoneToLeaf.Put(zoneIDs[p.Leaf], int64(i))
	}

	if n == 1 {
		t.nodes = t.nodes[:0]
		t.leafParent[0] = -1
		return
	}

	keys := make([]uint64, n)
	for i, p := range pairs {
		keys[i] = uint64(p.Code)<<32 | uint64(uint32(i))
	}

	if cap(t.nodes) < n-1 {
		t.nodes = make([]node, n-1)
	}
	t.nodes = t.nodes[:n-1]
	for i := range t.nodes {
		t.nodes[i] = node{parent: -1}
	}

	for i := 0; i < n-1; i++ {
		first, last := determineRange(keys, i)
		split := findSplit(keys, first, last)

		var childA, childB int32
		if split == first {
			childA = leafRef(split)
			t.leafParent[split] = int32(i)
		} else {
			childA = int32(split)
			t.nodes[split].parent = int32(i)
		}
		if split+1 == last {
			childB = leafRef(split + 1)
			t.leafParent[split+1] = int32(i)
		} else {
			childB = int32(split + 1)
			t.nodes[split+1].parent = int32(i)
		}
		t.nodes[i].childA = childA
		t.nodes[i].childB = childB
	}

	t.computeBounds(n)
}

// computeBounds propagates leaf AABBs up to the root. Each internal node is
// finalized exactly once, the moment its second child becomes ready — the
// sequential analogue of the atomic-counter technique used in parallel LBVH
// builds.
func (t *Tree) computeBounds(n int) {
	visited := make([]int8, n-1)
	for i := 0; i < n; i++ {
		parent := t.leafParent[i]
		box := t.leafAABB[i]
		for parent != -1 {
			visited[parent]++
			if visited[parent] < 2 {
				break
			}
			box = geom.Union(t.childBox(t.nodes[parent].childA), t.childBox(t.nodes[parent].childB))
			t.nodes[parent].aabb = box
			parent = t.nodes[parent].parent
		}
	}
}

func (t *Tree) childBox(ref int32) geom.AABB {
	if ref < 0 {
		return t.leafAABB[^ref]
	}
	return t.nodes[ref].aabb
}

// RootAABB returns the bounding box of the whole tree, or geom.Empty() if empty.
func (t *Tree) RootAABB() geom.AABB {
	switch {
	case len(t.leafAABB) == 0:
		return geom.Empty()
	case len(t.nodes) == 0:
		return t.leafAABB[0]
	default:
		return t.nodes[0].aabb
	}
}

func leafRef(leaf int) int32 { return ^int32(leaf) }

func centroidBounds(aabbs []geom.AABB) (lo, hi mgl64.Vec3) {
	lo, hi = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}, mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, box := range aabbs {
		c := box.Center()
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], c[a])
			hi[a] = max(hi[a], c[a])
		}
	}
	return
}

func growAABB(s []geom.AABB, n int) []geom.AABB {
	if cap(s) < n {
		s = make([]geom.AABB, n)
	}
	return s[:n]
}

func growI64(s []int64, n int) []int64 {
	if cap(s) < n {
		s = make([]int64, n)
	}
	return s[:n]
}

func growI32(s []int32, n int) []int32 {
	if cap(s) < n {
		s = make([]int32, n)
	}
	return s[:n]
}

// determineRange implements Karras (2012) Listing 1: find the range of
// leaves [first, last] covered by internal node i.
func determineRange(keys []uint64, i int) (first, last int) {
	d := 1
	if delta(keys, i, i+1) < delta(keys, i, i-1) {
		d = -1
	}
	deltaMin := delta(keys, i, i-d)
	lmax := 2
	for delta(keys, i, i+lmax*d) > deltaMin {
		lmax *= 2
	}
	l := 0
	for t := lmax / 2; t >= 1; t /= 2 {
		if delta(keys, i, i+(l+t)*d) > deltaMin {
			l += t
		}
	}
	j := i + l*d
	if j < i {
		return j, i
	}
	return i, j
}

// findSplit implements Karras (2012) Listing 2: binary search for the split
// point within [first, last] at which the common-prefix length drops.
func findSplit(keys []uint64, first, last int) int {
	commonPrefix := delta(keys, first, last)
	split := first
	step := last - first
	for {
		step = (step + 1) / 2
		newSplit := split + step
		if newSplit < last {
			if delta(keys, first, newSplit) > commonPrefix {
				split = newSplit
			}
		}
		if step <= 1 {
			break
		}
	}
	return split
}

// delta is the LCP length between keys[i] and keys[j], where keys embed the
// leaf index in the low 32 bits so that equal Morton codes still compare as
// distinct, strictly ordered values (spec §4.2: ties broken by insertion
// order). Out-of-range j yields -1, sentinel for "no common prefix".
func delta(keys []uint64, i, j int) int {
	if j < 0 || j >= len(keys) {
		return -1
	}
	return bits.LeadingZeros64(keys[i] ^ keys[j])
}
