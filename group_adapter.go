package zoneward

import "github.com/zoneward/zoneward/track"

// groupAdapter adapts a *track.Group into a sched.GroupHandle, supplying
// the probe/filter/query/dispatch work the sched package deliberately knows
// nothing about (sched drives the round robin; the facade owns what a
// "visit" means).
type groupAdapter struct {
	eng   *Engine
	group *track.Group
}

func (a *groupAdapter) Quota(dt float64) int { return a.group.Quota(dt) }

func (a *groupAdapter) Next() (int, bool) { return a.group.Next() }

func (a *groupAdapter) VisitOne(idx int, tick int64, bypassFilter bool) {
	id, pos, shouldQuery := a.group.Visit(idx, tick, bypassFilter)
	if !shouldQuery {
		return
	}
	hits := a.eng.zones.QueryExact(pos)
	a.eng.dispatch.Dispatch(id, a.group.ID(), a.group.Kind(), hits, a.eng.metadataOf)
}
