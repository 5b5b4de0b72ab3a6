package observe

import "testing"

func TestNewObserverDefaultsAndSubscription(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{})
	if o.Priority != 0 {
		t.Fatalf("default Priority = %d, want 0", o.Priority)
	}
	if !o.Enabled() {
		t.Fatal("expected a new observer to start enabled")
	}
	o.Subscribe(5)
	if !o.Subscribes(5) {
		t.Fatal("expected Subscribe to register group 5")
	}
	o.Unsubscribe(5)
	if o.Subscribes(5) {
		t.Fatal("expected Unsubscribe to remove group 5")
	}
}

func TestOrderedSortsByPriorityDescThenIDAsc(t *testing.T) {
	r := NewRegistry()
	low := r.NewObserver(Params{Priority: 0})
	high := r.NewObserver(Params{Priority: 10})
	mid1 := r.NewObserver(Params{Priority: 5})
	mid2 := r.NewObserver(Params{Priority: 5})

	order := r.Ordered()
	if len(order) != 4 {
		t.Fatalf("len(Ordered()) = %d, want 4", len(order))
	}
	if order[0] != high {
		t.Fatalf("order[0] = observer %d, want high-priority observer %d", order[0].ID, high.ID)
	}
	if order[len(order)-1] != low {
		t.Fatalf("order[last] = observer %d, want low-priority observer %d", order[len(order)-1].ID, low.ID)
	}
	// mid1 and mid2 share priority 5: ascending id tie-break.
	var mid1Idx, mid2Idx int
	for i, o := range order {
		if o == mid1 {
			mid1Idx = i
		}
		if o == mid2 {
			mid2Idx = i
		}
	}
	if mid1.ID < mid2.ID && mid1Idx > mid2Idx {
		t.Fatalf("expected ascending-id tie-break among equal priorities, got order %v", order)
	}
}
