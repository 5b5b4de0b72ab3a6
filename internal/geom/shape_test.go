package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestBlockContains(t *testing.T) {
	tr := Identity()
	extents := mgl64.Vec3{10, 10, 10}
	cases := []struct {
		p    mgl64.Vec3
		want bool
	}{
		{mgl64.Vec3{0, 0, 0}, true},
		{mgl64.Vec3{4, 4, 4}, true},
		{mgl64.Vec3{5, 5, 5}, true},
		{mgl64.Vec3{6, 6, 6}, false},
	}
	for _, c := range cases {
		if got := Contains(ShapeBlock, tr, extents, c.p); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestBallContains(t *testing.T) {
	tr := Identity()
	extents := mgl64.Vec3{10, 10, 10} // radius 5
	if !Contains(ShapeBall, tr, extents, mgl64.Vec3{0, 0, 0}) {
		t.Fatal("expected center inside ball")
	}
	if Contains(ShapeBall, tr, extents, mgl64.Vec3{0, 0, 10}) {
		t.Fatal("expected point outside ball radius")
	}
}

func TestCylinderContains(t *testing.T) {
	tr := Identity()
	extents := mgl64.Vec3{6, 10, 6} // R=3, H=5
	if !Contains(ShapeCylinder, tr, extents, mgl64.Vec3{1, 2, 1}) {
		t.Fatal("expected point inside cylinder")
	}
	if Contains(ShapeCylinder, tr, extents, mgl64.Vec3{0, 6, 0}) {
		t.Fatal("expected point above cylinder cap to be outside")
	}
	if Contains(ShapeCylinder, tr, extents, mgl64.Vec3{3, 0, 3}) {
		t.Fatal("expected point outside cylinder radius")
	}
}

func TestWedgeContains(t *testing.T) {
	tr := Identity()
	extents := mgl64.Vec3{4, 4, 4}
	// Bottom-front corner of the box sits inside the wedge half-space.
	if !Contains(ShapeWedge, tr, extents, mgl64.Vec3{0, -1, -1}) {
		t.Fatal("expected bottom-front point inside wedge")
	}
	// Top-back corner is excluded by the diagonal plane.
	if Contains(ShapeWedge, tr, extents, mgl64.Vec3{0, 1.9, 1.9}) {
		t.Fatal("expected top-back point outside wedge")
	}
}

func TestAABBOfBlockMatchesRotatedCorners(t *testing.T) {
	tr := Transform{Origin: mgl64.Vec3{0, 0, 0}, Basis: mgl64.Mat3FromCols(
		mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0},
	)}
	extents := mgl64.Vec3{2, 4, 6}
	box := AABBOf(ShapeBlock, tr, extents)
	// A 90-degree yaw swaps the X and Z half-extents.
	want := mgl64.Vec3{3, 2, 1}
	got := box.Max
	for i := 0; i < 3; i++ {
		if d := got[i] - want[i]; d > 1e-9 || d < -1e-9 {
			t.Fatalf("AABBOf rotated block max = %v, want %v", got, want)
		}
	}
}
