// Package alloc classifies peers and finds the lowest free client id,
// tunnel suffix and LAN block.
//
// Every scan walks its domain in ascending order, so the result depends only
// on the contents of the used set. When a domain is exhausted the scan falls
// back to the domain minimum. That value may already be in use; the checked
// variants (FreeID, FreeSuffix, FreeLANBlock) report the condition instead.
package alloc

import (
	"wgledger/internal/model"
	"wgledger/internal/peer"
	"wgledger/internal/reservation"
)

// Engine is immutable after NewEngine and safe for concurrent use.
type Engine struct {
	u   Universe
	reg *reservation.Registry
}

// NewEngine returns an engine over u. A nil registry reserves nothing.
func NewEngine(u Universe, reg *reservation.Registry) (*Engine, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = reservation.Empty()
	}
	return &Engine{u: u, reg: reg}, nil
}

func (e *Engine) Universe() Universe {
	return e.u
}

func (e *Engine) Registry() *reservation.Registry {
	return e.reg
}

// Classify returns the status of p: static override, then DDNS reservation,
// then handshake activity.
func (e *Engine) Classify(p model.Peer) model.Status {
	return peer.Classify(e.reg, p.ID, handshakeOf(p))
}

func handshakeOf(p model.Peer) string {
	if p.LastHandshake == model.Never {
		return ""
	}
	return p.LastHandshake
}

// FreeID returns the lowest id neither used nor reserved.
func (e *Engine) FreeID(used Set[int]) (int, bool) {
	return scan(e.u.IDs, func(id int) bool {
		return used.Has(id) || e.reg.Contains(id)
	})
}

// NextFreeID is FreeID with the fallback to the lowest id.
func (e *Engine) NextFreeID(used Set[int]) int {
	id, ok := e.FreeID(used)
	if !ok {
		return e.u.IDs.Min
	}
	return id
}

// FreeSuffix returns the lowest tunnel suffix not in used.
func (e *Engine) FreeSuffix(used Set[int]) (int, bool) {
	return scan(e.u.Suffixes, used.Has)
}

// NextFreeSuffix is FreeSuffix with the fallback to the lowest suffix.
func (e *Engine) NextFreeSuffix(used Set[int]) int {
	s, ok := e.FreeSuffix(used)
	if !ok {
		return e.u.Suffixes.Min
	}
	return s
}

// FreeLANBlock returns the lowest LAN block whose CIDR string is not in used.
// The comparison is on the exact string, so "192.168.10.0/24" and
// "192.168.10.1/24" are different values.
func (e *Engine) FreeLANBlock(used Set[string]) (string, bool) {
	n, ok := scan(e.u.LANBlocks, func(n int) bool {
		return used.Has(e.u.LANBlock(n))
	})
	if !ok {
		return "", false
	}
	return e.u.LANBlock(n), true
}

// NextFreeLANBlock is FreeLANBlock with the fallback to the lowest block.
func (e *Engine) NextFreeLANBlock(used Set[string]) string {
	lan, ok := e.FreeLANBlock(used)
	if !ok {
		return e.u.LANBlock(e.u.LANBlocks.Min)
	}
	return lan
}

func scan(r Range, taken func(int) bool) (int, bool) {
	for v := r.Min; v <= r.Max; v++ {
		if !taken(v) {
			return v, true
		}
	}
	return 0, false
}
