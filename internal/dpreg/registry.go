// Package dpreg is the process-wide datapath registry (spec §4.1): a
// fixed-size table of slots that the control-channel dispatcher uses to
// create, destroy and look up datapaths by index or by name.
package dpreg

import (
	"sync"

	"github.com/ofdp/switchd/internal/dp"
)

// Max bounds the registry, mirroring the original's DP_MAX constant.
const Max = 256

// Factory builds the pipeline and any other per-datapath collaborators a
// newly created slot needs. The registry calls it while holding its own
// lock, so it must not itself touch the registry.
type Factory func(idx int, id uint64, description string) (*dp.Datapath, error)

// Registry is the process-wide datapath table. The zero value is not
// usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	slots   [Max]*dp.Datapath
	byName  map[string]int
	factory Factory
}

func New(factory Factory) *Registry {
	return &Registry{byName: make(map[string]int), factory: factory}
}

// Create installs a new datapath. When idx is negative the registry
// auto-assigns the first free slot; a negative idx with an empty name is
// INVALID, matching the original's "neither index nor name supplied"
// rejection.
func (r *Registry) Create(idx int, name string, id uint64, description string) (*dp.Datapath, error) {
	if idx < 0 && name == "" {
		return nil, dp.ErrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx >= 0 {
		if idx >= Max {
			return nil, dp.ErrOutOfRange
		}
		if r.slots[idx] != nil {
			return nil, dp.ErrAlreadyExists
		}
	} else {
		free := -1
		for i, s := range r.slots {
			if s == nil {
				free = i
				break
			}
		}
		if free == -1 {
			return nil, dp.ErrExhausted
		}
		idx = free
	}

	if name != "" {
		if _, exists := r.byName[name]; exists {
			return nil, dp.ErrAlreadyExists
		}
	}

	d, err := r.factory(idx, id, description)
	if err != nil {
		return nil, err
	}

	r.slots[idx] = d
	if name != "" {
		r.byName[name] = idx
	}
	return d, nil
}

// Destroy unpublishes the slot and tears the datapath down. The teardown
// runs after the slot is cleared so a concurrent Lookup never observes a
// half-closed datapath.
func (r *Registry) Destroy(idx int) error {
	r.mu.Lock()
	if idx < 0 || idx >= Max || r.slots[idx] == nil {
		r.mu.Unlock()
		return dp.ErrNotFound
	}
	d := r.slots[idx]
	r.slots[idx] = nil
	for name, i := range r.byName {
		if i == idx {
			delete(r.byName, name)
			break
		}
	}
	r.mu.Unlock()

	return d.Close()
}

// Lookup resolves a datapath by index, by name, or by both (in which
// case the two must agree or the call is INVALID).
func (r *Registry) Lookup(idx int, name string) (*dp.Datapath, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case idx >= 0 && name != "":
		nameIdx, ok := r.byName[name]
		if !ok || nameIdx != idx {
			return nil, dp.ErrInvalid
		}
		return r.get(idx)
	case idx >= 0:
		return r.get(idx)
	case name != "":
		nameIdx, ok := r.byName[name]
		if !ok {
			return nil, dp.ErrNotFound
		}
		return r.get(nameIdx)
	default:
		return nil, dp.ErrInvalid
	}
}

func (r *Registry) get(idx int) (*dp.Datapath, error) {
	if idx < 0 || idx >= Max {
		return nil, dp.ErrOutOfRange
	}
	d := r.slots[idx]
	if d == nil {
		return nil, dp.ErrNotFound
	}
	return d, nil
}

// Each returns a snapshot of every live datapath, used by the read-only
// status API.
func (r *Registry) Each() []*dp.Datapath {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*dp.Datapath, 0, len(r.byName))
	for _, d := range r.slots {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}
