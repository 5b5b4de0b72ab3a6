package observe

import "sort"

// Registry owns every Observer and assigns their ids.
type Registry struct {
	observers map[ID]*Observer
	nextID    int64

	sorted      []*Observer // cached priority-descending, id-ascending order.
	sortedDirty bool
}

// NewRegistry returns an empty observer Registry.
func NewRegistry() *Registry {
	return &Registry{observers: make(map[ID]*Observer)}
}

// NewObserver creates and registers an Observer (spec §6 Observer.new).
func (r *Registry) NewObserver(p Params) *Observer {
	r.nextID++
	o := newObserver(ID(r.nextID), p)
	r.observers[o.ID] = o
	r.sortedDirty = true
	return o
}

// Get returns the observer with the given id, if any.
func (r *Registry) Get(id ID) (*Observer, bool) {
	o, ok := r.observers[id]
	return o, ok
}

// Ordered returns every observer sorted by priority descending, then id
// ascending (spec §5 ordering: "observer priority descending"). The slice
// is cached and only re-sorted when an observer is added.
func (r *Registry) Ordered() []*Observer {
	if r.sortedDirty || r.sorted == nil {
		r.sorted = r.sorted[:0]
		for _, o := range r.observers {
			r.sorted = append(r.sorted, o)
		}
		sort.Slice(r.sorted, func(i, j int) bool {
			a, b := r.sorted[i], r.sorted[j]
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
			return a.ID < b.ID
		})
		r.sortedDirty = false
	}
	return r.sorted
}
