package observe

import (
	"testing"

	"github.com/zoneward/zoneward/track"
	"github.com/zoneward/zoneward/zone"
)

func noMeta(zone.ID) any { return nil }

func TestDispatchEnterNoopExit(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{Groups: []int64{1}})
	o.Attach(10)

	var entered, exited int
	o.OnEntered(func(track.EntityID, zone.ID, any) { entered++ })
	o.OnExited(func(track.EntityID, zone.ID, any) { exited++ })

	d := NewDispatcher(r, nil)
	const e track.EntityID = 1

	d.Dispatch(e, 1, track.Generic, []zone.ID{10}, noMeta) // tick 1: enter
	if entered != 1 || exited != 0 {
		t.Fatalf("after tick1: entered=%d exited=%d, want 1,0", entered, exited)
	}
	d.Dispatch(e, 1, track.Generic, []zone.ID{10}, noMeta) // tick 2: still inside, no-op
	if entered != 1 || exited != 0 {
		t.Fatalf("after tick2 (still inside): entered=%d exited=%d, want 1,0", entered, exited)
	}
	d.Dispatch(e, 1, track.Generic, nil, noMeta) // tick 3: exit
	if entered != 1 || exited != 1 {
		t.Fatalf("after tick3 (exit): entered=%d exited=%d, want 1,1", entered, exited)
	}
	if _, ok := o.CurrentZone(e); ok {
		t.Fatal("expected no current zone after exit")
	}
}

func TestDispatchPriorityOverrideAscendingZoneIDTieBreak(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{Groups: []int64{1}})
	o.Attach(1) // z_low
	o.Attach(2) // z_high, added later

	var log []string
	o.OnEntered(func(e track.EntityID, z zone.ID, _ any) { log = append(log, "enter", itoa(int64(z))) })
	o.OnExited(func(e track.EntityID, z zone.ID, _ any) { log = append(log, "exit", itoa(int64(z))) })

	d := NewDispatcher(r, nil)
	const e track.EntityID = 1

	d.Dispatch(e, 1, track.Generic, []zone.ID{1, 2}, noMeta)
	if got, want := o.current[e], zone.ID(1); got != want {
		t.Fatalf("winner = %d, want %d (ascending tie-break)", got, want)
	}

	// Destroy z_low: same-tick exit-then-enter.
	d.Dispatch(e, 1, track.Generic, []zone.ID{2}, noMeta)
	if got, want := o.current[e], zone.ID(2); got != want {
		t.Fatalf("winner after z_low destroyed = %d, want %d", got, want)
	}
	wantTail := []string{"exit", "1", "enter", "2"}
	if len(log) < 4 {
		t.Fatalf("log too short: %v", log)
	}
	got := log[len(log)-4:]
	for i := range wantTail {
		if got[i] != wantTail[i] {
			t.Fatalf("event order = %v, want suffix %v", log, wantTail)
		}
	}
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestDispatchGroupCounterEntersAndExitsOnEdges(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{Groups: []int64{1}})
	o.Attach(10)

	var groupEnters, groupExits int
	o.OnGroupEntered(func(int64, zone.ID) { groupEnters++ })
	o.OnGroupExited(func(int64, zone.ID) { groupExits++ })

	d := NewDispatcher(r, nil)
	d.Dispatch(1, 1, track.Generic, []zone.ID{10}, noMeta) // first entity in: 0->1
	if groupEnters != 1 {
		t.Fatalf("groupEnters = %d, want 1", groupEnters)
	}
	d.Dispatch(2, 1, track.Generic, []zone.ID{10}, noMeta) // second entity in: 1->2, no event
	if groupEnters != 1 {
		t.Fatalf("groupEnters after 2nd entity = %d, want still 1", groupEnters)
	}
	d.Dispatch(1, 1, track.Generic, nil, noMeta) // first entity out: 2->1, no event
	if groupExits != 0 {
		t.Fatalf("groupExits after first removal = %d, want 0", groupExits)
	}
	d.Dispatch(2, 1, track.Generic, nil, noMeta) // second entity out: 1->0, fires
	if groupExits != 1 {
		t.Fatalf("groupExits = %d, want 1", groupExits)
	}
}

func TestDispatchCleanupRunsExactlyOnceAtMatchingExit(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{Groups: []int64{1}})
	o.Attach(10)

	runs := 0
	o.Observe(func(track.EntityID, zone.ID, any) Cleanup {
		return func() { runs++ }
	})

	d := NewDispatcher(r, nil)
	d.Dispatch(1, 1, track.Generic, []zone.ID{10}, noMeta)
	if runs != 0 {
		t.Fatalf("cleanup ran before exit: runs=%d", runs)
	}
	d.Dispatch(1, 1, track.Generic, []zone.ID{10}, noMeta) // still inside, no-op
	if runs != 0 {
		t.Fatalf("cleanup ran on no-op tick: runs=%d", runs)
	}
	d.Dispatch(1, 1, track.Generic, nil, noMeta) // exit
	if runs != 1 {
		t.Fatalf("runs after exit = %d, want 1", runs)
	}
	d.Dispatch(1, 1, track.Generic, nil, noMeta) // still outside, must not re-run
	if runs != 1 {
		t.Fatalf("runs after second outside tick = %d, want still 1", runs)
	}
}

func TestDispatchSurvivesPanickingCallback(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{Groups: []int64{1}})
	o.Attach(10)
	o.OnEntered(func(track.EntityID, zone.ID, any) { panic("boom") })

	d := NewDispatcher(r, nil)
	d.Dispatch(1, 1, track.Generic, []zone.ID{10}, noMeta) // must not panic out of Dispatch
	if _, ok := o.CurrentZone(1); !ok {
		t.Fatal("expected state to advance to INSIDE even though onEntered panicked")
	}
}

func TestSetEnabledFalseSynthesizesExit(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{Groups: []int64{1}})
	o.Attach(10)

	var exited bool
	o.OnExited(func(track.EntityID, zone.ID, any) { exited = true })

	d := NewDispatcher(r, nil)
	d.Dispatch(1, 1, track.Generic, []zone.ID{10}, noMeta)

	groupOf := func(track.EntityID) (int64, track.Kind, bool) { return 1, track.Generic, true }
	d.SetEnabled(o, false, groupOf, noMeta)
	if !exited {
		t.Fatal("expected setEnabled(false) to synthesize an exit")
	}
	if _, ok := o.CurrentZone(1); ok {
		t.Fatal("expected state cleared after setEnabled(false)")
	}

	// Re-enabling must not resurrect the old state; the entity must enter
	// naturally on the next dispatch.
	entered := 0
	o.OnEntered(func(track.EntityID, zone.ID, any) { entered++ })
	d.SetEnabled(o, true, groupOf, noMeta)
	if entered != 0 {
		t.Fatal("expected no synthetic enter from setEnabled(true)")
	}
	d.Dispatch(1, 1, track.Generic, []zone.ID{10}, noMeta)
	if entered != 1 {
		t.Fatalf("entered = %d, want 1 after natural re-dispatch", entered)
	}
}

func TestDispatchPlayersGroupFiresGenericAndPlayerCallbacks(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{Groups: []int64{1}})
	o.Attach(10)

	var generic, player int
	var cleanupRuns int
	o.OnEntered(func(track.EntityID, zone.ID, any) { generic++ })
	o.OnExited(func(track.EntityID, zone.ID, any) { generic-- })
	o.OnPlayerEntered(func(track.EntityID, zone.ID, any) { player++ })
	o.OnPlayerExited(func(track.EntityID, zone.ID, any) { player-- })
	o.ObservePlayer(func(track.EntityID, zone.ID, any) Cleanup {
		return func() { cleanupRuns++ }
	})

	d := NewDispatcher(r, nil)
	d.Dispatch(1, 1, track.Players, []zone.ID{10}, noMeta)
	if generic != 1 || player != 1 {
		t.Fatalf("after enter: generic=%d player=%d, want 1,1", generic, player)
	}
	if cleanupRuns != 0 {
		t.Fatalf("cleanup ran before exit: %d", cleanupRuns)
	}

	d.Dispatch(1, 1, track.Players, nil, noMeta)
	if generic != 0 || player != 0 {
		t.Fatalf("after exit: generic=%d player=%d, want 0,0", generic, player)
	}
	if cleanupRuns != 1 {
		t.Fatalf("cleanupRuns = %d, want 1", cleanupRuns)
	}
}

func TestDispatchLocalPlayerGroupFiresGenericAndLocalPlayerCallbacks(t *testing.T) {
	r := NewRegistry()
	o := r.NewObserver(Params{Groups: []int64{1}})
	o.Attach(10)

	var player, localPlayer int
	o.OnPlayerEntered(func(track.EntityID, zone.ID, any) { player++ })
	o.OnLocalPlayerEntered(func(track.EntityID, zone.ID, any) { localPlayer++ })
	o.OnLocalPlayerExited(func(track.EntityID, zone.ID, any) { localPlayer-- })

	d := NewDispatcher(r, nil)
	d.Dispatch(1, 1, track.LocalPlayer, []zone.ID{10}, noMeta)
	if player != 0 {
		t.Fatalf("onPlayerEntered fired for a local-player group: player=%d, want 0", player)
	}
	if localPlayer != 1 {
		t.Fatalf("localPlayer = %d, want 1", localPlayer)
	}

	d.Dispatch(1, 1, track.LocalPlayer, nil, noMeta)
	if localPlayer != 0 {
		t.Fatalf("localPlayer after exit = %d, want 0", localPlayer)
	}
}
