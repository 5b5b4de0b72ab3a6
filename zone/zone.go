// Package zone owns Zone records and the dual static/dynamic LBVH described
// in spec §3 (Zone) and §4.4 (ZoneStore).
package zone

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zoneward/zoneward/internal/geom"
)

// Shape re-exports the convex primitive tag so callers never need to import
// the internal geometry package directly.
type Shape = geom.Shape

const (
	Block    = geom.ShapeBlock
	Ball     = geom.ShapeBall
	Cylinder = geom.ShapeCylinder
	Wedge    = geom.ShapeWedge
)

// Transform re-exports the shape placement (origin + orthonormal basis).
type Transform = geom.Transform

// Identity returns the transform with no rotation, centered at the origin.
func Identity() Transform { return Transform{Basis: mgl64.Ident3()} }

// ID is a zone's stable identifier: monotonically assigned, never reused
// (spec §3 Zone invariant).
type ID int64

var (
	// ErrUnknownZone is returned by operations addressing a zone id the
	// Store has no record of (never created, or already destroyed).
	ErrUnknownZone = errors.New("zone: unknown id")
	// ErrDestroyed is returned by operations on a zone that has already
	// been destroyed.
	ErrDestroyed = errors.New("zone: already destroyed")
	// ErrStaticImmutable is returned by Mutate on a zone created with
	// Dynamic = false: spec §3 requires a static zone's AABB stay immutable
	// after creation.
	ErrStaticImmutable = errors.New("zone: cannot mutate a static zone")
	// ErrInvalidShape is returned for a Shape value outside the four known
	// tags.
	ErrInvalidShape = errors.New("zone: invalid shape")
)

// ErrInvalidExtents reports a non-finite or non-positive extents vector.
type ErrInvalidExtents struct{ Extents mgl64.Vec3 }

func (e ErrInvalidExtents) Error() string {
	return fmt.Sprintf("zone: invalid extents %v: each axis must be finite and > 0", e.Extents)
}

// Zone is a closed convex volume (spec §3). Callers obtain and mutate zones
// exclusively through a Store; the zero value is not meaningful on its own.
type Zone struct {
	ID        ID
	Shape     Shape
	Transform Transform
	Extents   mgl64.Vec3
	Dynamic   bool
	Metadata  any

	aabb      geom.AABB
	observers map[int64]struct{}
	destroyed bool
}

// AABB returns the zone's current conservative world-space bounding box.
func (z *Zone) AABB() geom.AABB { return z.aabb }

// Contains runs the exact point-in-shape test for this zone (spec §4.1).
func (z *Zone) Contains(p mgl64.Vec3) bool {
	return geom.Contains(z.Shape, z.Transform, z.Extents, p)
}

// Attach records that observerID is attached to this zone. It is idempotent.
func (z *Zone) Attach(observerID int64) {
	if z.observers == nil {
		z.observers = make(map[int64]struct{})
	}
	z.observers[observerID] = struct{}{}
}

// Detach removes observerID from this zone's attachment set.
func (z *Zone) Detach(observerID int64) {
	delete(z.observers, observerID)
}

// AttachedTo reports whether observerID is attached to this zone.
func (z *Zone) AttachedTo(observerID int64) bool {
	_, ok := z.observers[observerID]
	return ok
}

// Observers returns the set of observer ids attached to this zone. The
// returned slice is freshly allocated; callers needing a hot-path check
// should use AttachedTo instead.
func (z *Zone) Observers() []int64 {
	out := make([]int64, 0, len(z.observers))
	for id := range z.observers {
		out = append(out, id)
	}
	return out
}

func validShape(s Shape) bool {
	switch s {
	case Block, Ball, Cylinder, Wedge:
		return true
	default:
		return false
	}
}

func validExtents(e mgl64.Vec3) bool {
	for _, v := range e {
		if v != v || v <= 0 || v > 1e18 { // v != v catches NaN without importing math.
			return false
		}
	}
	return true
}
