// Package morton implements the 30-bit Morton (Z-order) encoding and the LSD
// radix sort used to turn zone centroids into an order suitable for LBVH
// construction (spec §4.2).
package morton

import "github.com/go-gl/mathgl/mgl64"

// gridBits is the number of bits used per axis, giving a [0, 1024) grid.
const gridBits = 10
const gridMax = (1 << gridBits) - 1

// Normalize maps p into [0, 2^10) on each axis given the bounding box
// [lo, hi] of all centroids in the tree currently being built.
func Normalize(p, lo, hi mgl64.Vec3) (x, y, z uint32) {
	return axis(p[0], lo[0], hi[0]), axis(p[1], lo[1], hi[1]), axis(p[2], lo[2], hi[2])
}

func axis(v, lo, hi float64) uint32 {
	span := hi - lo
	if span <= 0 {
		return 0
	}
	n := (v - lo) / span
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	return uint32(n * gridMax)
}

// Encode interleaves three 10-bit coordinates into a 30-bit Morton code.
func Encode(x, y, z uint32) uint32 {
	return spread(x) | spread(y)<<1 | spread(z)<<2
}

// spread inserts two zero bits between each of the low 10 bits of v.
func spread(v uint32) uint32 {
	v &= 0x3FF
	v = (v | (v << 16)) & 0x030000FF
	v = (v | (v << 8)) & 0x0300F00F
	v = (v | (v << 4)) & 0x030C30C3
	v = (v | (v << 2)) & 0x09249249
	return v
}
