package zone

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestCreateAndQueryExactStaticBlock(t *testing.T) {
	s := NewStore()
	z, err := s.Create(Params{Shape: Block, Transform: Transform{Basis: mgl64.Ident3()}, Extents: mgl64.Vec3{10, 10, 10}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.Flush(nil)

	hits := s.QueryExact(mgl64.Vec3{4, 4, 4})
	if len(hits) != 1 || hits[0] != z.ID {
		t.Fatalf("QueryExact(inside) = %v, want [%d]", hits, z.ID)
	}
	if hits := s.QueryExact(mgl64.Vec3{6, 6, 6}); len(hits) != 0 {
		t.Fatalf("QueryExact(outside) = %v, want empty", hits)
	}
}

func TestMutateRejectsStaticZone(t *testing.T) {
	s := NewStore()
	z, _ := s.Create(Params{Shape: Ball, Transform: Identity(), Extents: mgl64.Vec3{2, 2, 2}})
	if err := s.Mutate(z.ID, &Transform{Origin: mgl64.Vec3{1, 0, 0}, Basis: mgl64.Ident3()}, nil); err != ErrStaticImmutable {
		t.Fatalf("Mutate on static zone: got %v, want ErrStaticImmutable", err)
	}
}

func TestTreeConsistencyAfterMixedOps(t *testing.T) {
	s := NewStore()
	var ids []ID
	for i := 0; i < 20; i++ {
		z, _ := s.Create(Params{
			Shape:     Block,
			Transform: Transform{Origin: mgl64.Vec3{float64(i) * 10, 0, 0}, Basis: mgl64.Ident3()},
			Extents:   mgl64.Vec3{1, 1, 1},
			Dynamic:   i%2 == 0,
		})
		ids = append(ids, z.ID)
	}
	s.Flush(nil)

	for _, id := range ids {
		z, ok := s.Get(id)
		if !ok {
			t.Fatalf("zone %d missing after flush", id)
		}
		if !z.Dynamic {
			want := z.AABB()
			got := s.StaticAABB()
			if !got.Contains(want.Min) || !got.Contains(want.Max) {
				t.Fatalf("static zone %d AABB %v not enclosed by static tree root %v", id, want, got)
			}
		}
	}
}

func TestFlushChoosesRefitBelowThresholdAndRebuildAbove(t *testing.T) {
	s := NewStore()
	var ids []ID
	for i := 0; i < 32; i++ {
		z, _ := s.Create(Params{
			Shape:     Block,
			Transform: Transform{Origin: mgl64.Vec3{float64(i) * 10, 0, 0}, Basis: mgl64.Ident3()},
			Extents:   mgl64.Vec3{1, 1, 1},
			Dynamic:   true,
		})
		ids = append(ids, z.ID)
	}
	s.Flush(nil) // n = 32, threshold = ceil(32/16) = 2

	// One mutation: should refit.
	newT := Transform{Origin: mgl64.Vec3{1000, 0, 0}, Basis: mgl64.Ident3()}
	if err := s.Mutate(ids[0], &newT, nil); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	res := s.Flush(nil)
	if !res.DynamicRefit || res.DynamicRebuilt {
		t.Fatalf("expected refit for 1/32 mutations, got %+v", res)
	}
	if hits := s.QueryExact(mgl64.Vec3{1000, 0, 0}); len(hits) != 1 || hits[0] != ids[0] {
		t.Fatalf("after refit, QueryExact at new position = %v, want [%d]", hits, ids[0])
	}

	// Three mutations (> threshold of 2): should rebuild.
	for i := 1; i <= 3; i++ {
		tr := Transform{Origin: mgl64.Vec3{float64(2000 + i), 0, 0}, Basis: mgl64.Ident3()}
		_ = s.Mutate(ids[i], &tr, nil)
	}
	res = s.Flush(nil)
	if !res.DynamicRebuilt {
		t.Fatalf("expected rebuild for 3/32 mutations above threshold, got %+v", res)
	}
}

func TestDestroyEmitsSyntheticExitBeforeRebuildDropsZone(t *testing.T) {
	s := NewStore()
	z, _ := s.Create(Params{Shape: Block, Transform: Identity(), Extents: mgl64.Vec3{4, 4, 4}, Dynamic: true})
	s.Flush(nil)
	if hits := s.QueryExact(mgl64.Vec3{0, 0, 0}); len(hits) != 1 {
		t.Fatalf("expected zone queryable before destroy, got %v", hits)
	}

	var notified []ID
	if err := s.Destroy(z.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	s.Flush(func(id ID, _ any) { notified = append(notified, id) })

	if len(notified) != 1 || notified[0] != z.ID {
		t.Fatalf("onRemoved notified = %v, want [%d]", notified, z.ID)
	}
	if hits := s.QueryExact(mgl64.Vec3{0, 0, 0}); len(hits) != 0 {
		t.Fatalf("expected zone absent from queries after destroy, got %v", hits)
	}
	if _, ok := s.Get(z.ID); ok {
		t.Fatal("expected zone record removed after destroy flush")
	}
}

func TestDestroyBeforeFirstFlushDropsSilently(t *testing.T) {
	s := NewStore()
	z, _ := s.Create(Params{Shape: Block, Transform: Identity(), Extents: mgl64.Vec3{2, 2, 2}})
	called := false
	if err := s.Destroy(z.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	s.Flush(func(ID, any) { called = true })
	if called {
		t.Fatal("did not expect onRemoved for a zone destroyed before it was ever built into a tree")
	}
}
