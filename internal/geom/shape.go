package geom

import "github.com/go-gl/mathgl/mgl64"

// Shape tags the four convex primitives a Zone may take. The zero value,
// ShapeBlock, is the most common case and doubles as a safe default.
type Shape uint8

const (
	ShapeBlock Shape = iota
	ShapeBall
	ShapeCylinder
	ShapeWedge
)

// String implements fmt.Stringer for log output.
func (s Shape) String() string {
	switch s {
	case ShapeBlock:
		return "block"
	case ShapeBall:
		return "ball"
	case ShapeCylinder:
		return "cylinder"
	case ShapeWedge:
		return "wedge"
	default:
		return "unknown"
	}
}

// Transform positions and orients a shape in world space. Basis columns must
// be orthonormal; Cylinder and Wedge treat the second column as the local Y
// (axis/up) direction.
type Transform struct {
	Origin mgl64.Vec3
	Basis  mgl64.Mat3
}

// Identity returns the world-aligned transform at the origin.
func Identity() Transform {
	return Transform{Basis: mgl64.Ident3()}
}

// ToLocal converts a world point into the transform's local frame.
func (t Transform) ToLocal(p mgl64.Vec3) mgl64.Vec3 {
	// Basis is orthonormal, so its inverse is its transpose.
	return t.Basis.Transpose().Mul3x1(p.Sub(t.Origin))
}

// vertexWorld returns the world position of a local-space corner given as
// signs (±1) on each axis scaled by the half-extents.
func (t Transform) vertexWorld(halfExtents mgl64.Vec3, sx, sy, sz float64) mgl64.Vec3 {
	local := mgl64.Vec3{sx * halfExtents[0], sy * halfExtents[1], sz * halfExtents[2]}
	return t.Origin.Add(t.Basis.Mul3x1(local))
}

// AABBOf returns the conservative world-space AABB enclosing shape with the
// given transform and extents (full size along each local axis, as cframe
// size is specified at construction — §3/§4.1).
func AABBOf(shape Shape, t Transform, extents mgl64.Vec3) AABB {
	half := extents.Mul(0.5)
	switch shape {
	case ShapeBlock, ShapeWedge:
		box := Empty()
		for _, sx := range [2]float64{-1, 1} {
			for _, sy := range [2]float64{-1, 1} {
				for _, sz := range [2]float64{-1, 1} {
					v := t.vertexWorld(half, sx, sy, sz)
					box.Min = mgl64.Vec3{min(box.Min[0], v[0]), min(box.Min[1], v[1]), min(box.Min[2], v[2])}
					box.Max = mgl64.Vec3{max(box.Max[0], v[0]), max(box.Max[1], v[1]), max(box.Max[2], v[2])}
				}
			}
		}
		return box
	case ShapeBall:
		r := max(extents[0], extents[1], extents[2]) / 2
		return AABB{Min: t.Origin.Sub(mgl64.Vec3{r, r, r}), Max: t.Origin.Add(mgl64.Vec3{r, r, r})}
	case ShapeCylinder:
		r := min(extents[0], extents[2]) / 2
		h := extents[1] / 2
		box := Empty()
		for _, sx := range [2]float64{-1, 1} {
			for _, sy := range [2]float64{-1, 1} {
				for _, sz := range [2]float64{-1, 1} {
					v := t.Origin.Add(t.Basis.Mul3x1(mgl64.Vec3{sx * r, sy * h, sz * r}))
					box.Min = mgl64.Vec3{min(box.Min[0], v[0]), min(box.Min[1], v[1]), min(box.Min[2], v[2])}
					box.Max = mgl64.Vec3{max(box.Max[0], v[0]), max(box.Max[1], v[1]), max(box.Max[2], v[2])}
				}
			}
		}
		return box
	default:
		return Empty()
	}
}

// Contains runs the exact point-in-shape test in the shape's local frame.
func Contains(shape Shape, t Transform, extents mgl64.Vec3, p mgl64.Vec3) bool {
	local := t.ToLocal(p)
	half := extents.Mul(0.5)
	switch shape {
	case ShapeBlock:
		return abs(local[0]) <= half[0] && abs(local[1]) <= half[1] && abs(local[2]) <= half[2]
	case ShapeBall:
		r := max(extents[0], extents[1], extents[2]) / 2
		return local.LenSqr() <= r*r
	case ShapeCylinder:
		r := min(extents[0], extents[2]) / 2
		h := extents[1] / 2
		return abs(local[1]) <= h && local[0]*local[0]+local[2]*local[2] <= r*r
	case ShapeWedge:
		if abs(local[0]) > half[0] || abs(local[1]) > half[1] || abs(local[2]) > half[2] {
			return false
		}
		// Diagonal half-space y/ey + z/ez <= 1/2 (full extents): the plane
		// passes through the centre line of the top face (z = 0) and the
		// centre line of the +Z face (y = 0), so only the top-back corner
		// region of the box is excluded.
		return local[1]/extents[1]+local[2]/extents[2] <= 0.5
	default:
		return false
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

