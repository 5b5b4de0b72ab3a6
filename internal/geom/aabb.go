// Package geom implements the convex-shape and AABB primitives the engine
// tests entities against. All operations here run without heap allocation;
// callers own every value and pass shapes by value.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box in world space, inclusive of Min and
// Max on every axis.
type AABB struct {
	Min, Max mgl64.Vec3
}

// Contains reports whether p lies within the closed box.
func (b AABB) Contains(p mgl64.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Union returns the smallest AABB enclosing both a and b.
func Union(a, b AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{min(a.Min[0], b.Min[0]), min(a.Min[1], b.Min[1]), min(a.Min[2], b.Min[2])},
		Max: mgl64.Vec3{max(a.Max[0], b.Max[0]), max(a.Max[1], b.Max[1]), max(a.Max[2], b.Max[2])},
	}
}

// Center returns the midpoint of the box, used as the Morton-sort centroid.
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Empty returns an AABB with no volume, the identity element for Union.
func Empty() AABB {
	return AABB{
		Min: mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
}
