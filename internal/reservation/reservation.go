// Package reservation holds the ids that are permanently withheld from
// automatic allocation.
package reservation

import (
	"fmt"
	"slices"
)

// Kind is the reason an id is reserved.
type Kind int

const (
	KindNone Kind = iota
	KindDDNS
	KindStatic
)

func (k Kind) String() string {
	switch k {
	case KindDDNS:
		return "reserved-ddns"
	case KindStatic:
		return "static-override"
	default:
		return "none"
	}
}

// Static binds an id to a LAN value configured by hand on the hub.
type Static struct {
	ID  int    `yaml:"id"`
	LAN string `yaml:"lan"`
}

// Reservation is one entry of the registry.
type Reservation struct {
	ID       int
	Kind     Kind
	FixedLAN string
}

// Registry is a read-only lookup over the DDNS and static tables.
// It is safe for concurrent use since it is never mutated after New.
type Registry struct {
	kinds map[int]Kind
	lans  map[int]string
	ids   []int
}

// New builds a registry. An id may appear in only one table, once.
func New(ddns []int, static []Static) (*Registry, error) {
	r := &Registry{
		kinds: make(map[int]Kind, len(ddns)+len(static)),
		lans:  make(map[int]string, len(static)),
	}
	for _, id := range ddns {
		if _, dup := r.kinds[id]; dup {
			return nil, fmt.Errorf("ddns id %d listed twice", id)
		}
		r.kinds[id] = KindDDNS
	}
	for _, s := range static {
		if k, dup := r.kinds[s.ID]; dup {
			return nil, fmt.Errorf("static id %d already reserved as %s", s.ID, k)
		}
		r.kinds[s.ID] = KindStatic
		if s.LAN != "" {
			r.lans[s.ID] = s.LAN
		}
	}
	for id := range r.kinds {
		r.ids = append(r.ids, id)
	}
	slices.Sort(r.ids)
	return r, nil
}

// Empty returns a registry with no reservations.
func Empty() *Registry {
	r, _ := New(nil, nil)
	return r
}

// Classify returns the reservation kind of id, KindNone if it is free.
func (r *Registry) Classify(id int) Kind {
	if r == nil {
		return KindNone
	}
	return r.kinds[id]
}

// Contains reports whether id is reserved in either table.
func (r *Registry) Contains(id int) bool {
	return r.Classify(id) != KindNone
}

// FixedLAN returns the LAN bound to a static-override id.
func (r *Registry) FixedLAN(id int) (string, bool) {
	if r == nil || r.kinds[id] != KindStatic {
		return "", false
	}
	lan, ok := r.lans[id]
	return lan, ok
}

// IDs returns all reserved ids in ascending order.
func (r *Registry) IDs() []int {
	if r == nil {
		return nil
	}
	return slices.Clone(r.ids)
}

// Entries returns every reservation ordered by id.
func (r *Registry) Entries() []Reservation {
	if r == nil {
		return nil
	}
	out := make([]Reservation, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, Reservation{ID: id, Kind: r.kinds[id], FixedLAN: r.lans[id]})
	}
	return out
}
