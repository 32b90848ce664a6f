// pkg/dataset/registry.go
package dataset

import (
	"fmt"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

// Registry maps well keys to stable sequential IDs
type Registry struct {
	wells  map[int]*model.Well
	order  []int
	byName map[string][]int
	next   int
}

// NewRegistry creates an empty registry whose first ID is WellIDBase
func NewRegistry() *Registry {
	return &Registry{
		wells:  make(map[int]*model.Well),
		byName: make(map[string][]int),
		next:   WellIDBase,
	}
}

// Lookup returns the ID of an exactly matching well without registering anything
func (r *Registry) Lookup(key model.WellKey) (int, bool) {
	for _, id := range r.byName[key.Name] {
		if r.wells[id].Key.Equal(key) {
			return id, true
		}
	}
	return 0, false
}

// Resolve returns the ID for key, registering a new well if none matches
func (r *Registry) Resolve(key model.WellKey) (id int, created bool, err error) {
	if !key.Valid() {
		return 0, false, fmt.Errorf("%w: empty well name", ErrInvalidWellKey)
	}
	if id, ok := r.Lookup(key); ok {
		return id, false, nil
	}

	id = r.next
	r.add(&model.Well{ID: id, Key: key, Elevation: model.NA()})
	return id, true, nil
}

// restore registers a well under a known ID, used when loading a written file
func (r *Registry) restore(id int, key model.WellKey, elevation model.Value) error {
	if !key.Valid() {
		return fmt.Errorf("%w: empty well name for ID %d", ErrInvalidWellKey, id)
	}
	if id < r.next {
		return fmt.Errorf("%w: well ID %d out of order", ErrInvalidWellKey, id)
	}
	if other, ok := r.Lookup(key); ok {
		return fmt.Errorf("%w: %s listed under IDs %d and %d", ErrInvalidWellKey, key, other, id)
	}
	r.add(&model.Well{ID: id, Key: key, Elevation: elevation})
	return nil
}

func (r *Registry) add(w *model.Well) {
	r.wells[w.ID] = w
	r.order = append(r.order, w.ID)
	r.byName[w.Key.Name] = append(r.byName[w.Key.Name], w.ID)
	r.next = w.ID + 1
}

// Well returns the registered well with the given ID
func (r *Registry) Well(id int) (*model.Well, bool) {
	w, ok := r.wells[id]
	return w, ok
}

// Wells returns copies of all wells in ID order
func (r *Registry) Wells() []model.Well {
	out := make([]model.Well, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.wells[id])
	}
	return out
}

// Len returns the number of registered wells
func (r *Registry) Len() int {
	return len(r.order)
}

// MaxID returns the highest ID handed out, or WellIDBase-1 when empty
func (r *Registry) MaxID() int {
	return r.next - 1
}
