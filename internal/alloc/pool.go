package alloc

// Axis names one of the allocation domains.
type Axis string

const (
	AxisID     Axis = "id"
	AxisSuffix Axis = "suffix"
	AxisLAN    Axis = "lan"
)

// Suggestion is one proposed allocation.
type Suggestion struct {
	ID     int    `json:"id"`
	Suffix int    `json:"suffix"`
	LAN    string `json:"lan"`
	// Exhausted lists the axes whose value is the fallback rather than a
	// free value.
	Exhausted []Axis `json:"exhausted,omitempty"`
}

// Pool hands out successive suggestions, folding every accepted value into
// its used set so no two suggestions from the same pool collide.
// A Pool is not safe for concurrent use.
type Pool struct {
	eng      *Engine
	ids      Set[int]
	suffixes Set[int]
	lans     Set[string]
}

// NewPool starts a pool from copies of the given used sets.
func (e *Engine) NewPool(ids, suffixes Set[int], lans Set[string]) *Pool {
	return &Pool{
		eng:      e,
		ids:      ids.Clone(),
		suffixes: suffixes.Clone(),
		lans:     lans.Clone(),
	}
}

// Take proposes the lowest free id together with a suffix and LAN block.
func (p *Pool) Take() Suggestion {
	var s Suggestion
	id, ok := p.eng.FreeID(p.ids)
	if !ok {
		id = p.eng.u.IDs.Min
		s.Exhausted = append(s.Exhausted, AxisID)
	}
	return p.fill(s, id)
}

// TakeFor proposes a suffix and LAN block for a caller-chosen id.
func (p *Pool) TakeFor(id int) Suggestion {
	return p.fill(Suggestion{}, id)
}

func (p *Pool) fill(s Suggestion, id int) Suggestion {
	s.ID = id
	p.ids.Add(id)

	suffix, ok := p.eng.FreeSuffix(p.suffixes)
	if !ok {
		suffix = p.eng.u.Suffixes.Min
		s.Exhausted = append(s.Exhausted, AxisSuffix)
	}
	s.Suffix = suffix
	p.suffixes.Add(suffix)

	lan, ok := p.eng.FreeLANBlock(p.lans)
	if !ok {
		lan = p.eng.u.LANBlock(p.eng.u.LANBlocks.Min)
		s.Exhausted = append(s.Exhausted, AxisLAN)
	}
	s.LAN = lan
	p.lans.Add(lan)
	return s
}
