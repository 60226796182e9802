// Package report merges parsed peers, registry entries and proposed
// allocations into the ordered reconciliation report.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"wgledger/internal/alloc"
	"wgledger/internal/model"
	"wgledger/internal/peer"
	"wgledger/internal/reservation"
)

// Origin tells where a row came from.
type Origin string

const (
	OriginPeer        Origin = "peer"
	OriginRegistry    Origin = "registry"
	OriginPlaceholder Origin = "placeholder"
)

const (
	commentDDNS      = "reserved for DDNS"
	commentStaticFmt = "manual: %s"
	commentNext      = "next available"
)

// Row is one line of the report.
type Row struct {
	ID              *int         `json:"id"`
	Name            string       `json:"name"`
	TunnelAddress   string       `json:"tunnel_address"`
	TunnelSuffix    *int         `json:"tunnel_suffix,omitempty"`
	LANs            []string     `json:"lans"`
	Status          model.Status `json:"status"`
	LastHandshake   string       `json:"last_handshake"`
	Comment         string       `json:"comment"`
	EndpointAddress string       `json:"endpoint_address"`
	ProviderID      string       `json:"provider_id,omitempty"`
	Disabled        bool         `json:"disabled,omitempty"`
	Origin          Origin       `json:"origin"`
	// Proposed marks placeholder rows whose suffix and LAN are suggestions.
	Proposed bool `json:"proposed,omitempty"`
	// DuplicateOf is set on peer rows that lost their id to an earlier peer
	// carrying the same one.
	DuplicateOf *int `json:"duplicate_of,omitempty"`
}

// Stats are the aggregate counts of a report.
type Stats struct {
	Total          int `json:"total"`
	Active         int `json:"active"`
	Inactive       int `json:"inactive"`
	ReservedDDNS   int `json:"reserved_ddns"`
	StaticOverride int `json:"static_override"`
	// AvailableRows counts rows whose status is available.
	AvailableRows int `json:"available_rows"`
	// Available is the id domain size minus Total. It is a derived figure
	// and is not the same as AvailableRows; it is usually zero or negative
	// once placeholders fill the table.
	Available    int `json:"available"`
	DuplicateIDs int `json:"duplicate_ids"`
	Unnumbered   int `json:"unnumbered"`
	// Exhausted counts placeholders that received a fallback value.
	Exhausted int `json:"exhausted"`
}

// Report is the ordered row set plus its counts.
type Report struct {
	Rows  []Row `json:"rows"`
	Stats Stats `json:"stats"`
}

// Next returns the first available row, which pre-fills a creation form.
func (r Report) Next() (Row, bool) {
	for _, row := range r.Rows {
		if row.Status == model.StatusAvailable {
			return row, true
		}
	}
	return Row{}, false
}

// Naming controls how synthesized rows are named.
type Naming struct {
	IDPrefix string
	IDWidth  int
}

// Name renders id as e.g. "MC05".
func (n Naming) Name(id int) string {
	return fmt.Sprintf("%s%0*d", n.IDPrefix, n.IDWidth, id)
}

// Builder produces reports. It is immutable and safe for concurrent use;
// each call works on fresh state.
type Builder struct {
	parser *peer.Parser
	eng    *alloc.Engine
	naming Naming
}

func NewBuilder(parser *peer.Parser, eng *alloc.Engine, naming Naming) *Builder {
	return &Builder{parser: parser, eng: eng, naming: naming}
}

// Parse parses raws and returns the peers in canonical order.
func (b *Builder) Parse(raws []model.RawPeer) []model.Peer {
	peers := make([]model.Peer, 0, len(raws))
	for _, raw := range raws {
		peers = append(peers, b.parser.Parse(raw))
	}
	slices.SortStableFunc(peers, comparePeers)
	return peers
}

// Build parses raws and reconciles them against the registry.
func (b *Builder) Build(raws []model.RawPeer) Report {
	return b.BuildPeers(b.Parse(raws))
}

// BuildPeers reconciles already parsed peers.
func (b *Builder) BuildPeers(peers []model.Peer) Report {
	peers = slices.Clone(peers)
	slices.SortStableFunc(peers, comparePeers)

	u := b.eng.Universe()
	reg := b.eng.Registry()
	rows := make([]Row, 0, len(peers)+u.IDs.Size())
	ids, suffixes, lans := collect(peers, reg)

	seen := alloc.NewSet[int]()
	var stats Stats
	for _, p := range peers {
		row := b.peerRow(p)
		if p.ID != nil {
			if seen.Has(*p.ID) {
				row.ID = nil
				row.DuplicateOf = model.IntPtr(*p.ID)
				stats.DuplicateIDs++
				zap.S().Debugf("peer %q repeats id %d, listed without id", p.Name, *p.ID)
			}
			seen.Add(*p.ID)
		}
		rows = append(rows, row)
	}

	for _, r := range reg.Entries() {
		if seen.Has(r.ID) {
			continue
		}
		seen.Add(r.ID)
		rows = append(rows, b.registryRow(r))
	}

	pool := b.eng.NewPool(ids, suffixes, lans)
	for id := u.IDs.Min; id <= u.IDs.Max; id++ {
		if seen.Has(id) {
			continue
		}
		seen.Add(id)
		s := pool.TakeFor(id)
		if len(s.Exhausted) > 0 {
			stats.Exhausted++
		}
		rows = append(rows, b.placeholderRow(s))
	}
	if stats.Exhausted > 0 {
		zap.S().Warnf("%d placeholder rows got fallback values, allocation domains are exhausted", stats.Exhausted)
	}

	slices.SortStableFunc(rows, compareRows)
	return Report{Rows: rows, Stats: count(rows, u, stats)}
}

// Suggest proposes the next allocation directly from the used sets.
func (b *Builder) Suggest(raws []model.RawPeer) Proposal {
	peers := b.Parse(raws)
	ids, suffixes, lans := collect(peers, b.eng.Registry())
	s := b.eng.NewPool(ids, suffixes, lans).Take()
	if len(s.Exhausted) > 0 {
		zap.S().Warnf("suggestion uses fallback values for %v", s.Exhausted)
	}
	return Proposal{
		Suggestion:    s,
		Name:          b.naming.Name(s.ID),
		TunnelAddress: b.parser.TunnelBase() + "." + strconv.Itoa(s.Suffix),
	}
}

// Proposal is a suggestion with its rendered name and tunnel address.
type Proposal struct {
	alloc.Suggestion
	Name          string `json:"name"`
	TunnelAddress string `json:"tunnel_address"`
}

func collect(peers []model.Peer, reg *reservation.Registry) (ids, suffixes alloc.Set[int], lans alloc.Set[string]) {
	ids, suffixes, lans = alloc.NewSet[int](), alloc.NewSet[int](), alloc.NewSet[string]()
	for _, p := range peers {
		if p.ID != nil {
			ids.Add(*p.ID)
		}
		if p.TunnelSuffix != nil {
			suffixes.Add(*p.TunnelSuffix)
		}
		for _, lan := range p.LANs {
			lans.Add(lan)
		}
	}
	for _, r := range reg.Entries() {
		if r.FixedLAN != "" {
			lans.Add(r.FixedLAN)
		}
	}
	return ids, suffixes, lans
}

func (b *Builder) peerRow(p model.Peer) Row {
	row := Row{
		Name:            p.Name,
		TunnelAddress:   p.TunnelAddress(),
		LANs:            slices.Clone(p.LANs),
		Status:          b.eng.Classify(p),
		LastHandshake:   p.LastHandshake,
		Comment:         p.Comment,
		EndpointAddress: p.EndpointAddress,
		ProviderID:      p.ProviderID,
		Disabled:        p.Disabled,
		Origin:          OriginPeer,
	}
	if row.LANs == nil {
		row.LANs = []string{}
	}
	if p.ID != nil {
		row.ID = model.IntPtr(*p.ID)
	}
	if p.TunnelSuffix != nil {
		row.TunnelSuffix = model.IntPtr(*p.TunnelSuffix)
	}
	return row
}

func (b *Builder) registryRow(r reservation.Reservation) Row {
	row := Row{
		ID:              model.IntPtr(r.ID),
		Name:            b.naming.Name(r.ID),
		TunnelAddress:   model.NotAvailable,
		LANs:            []string{},
		LastHandshake:   model.NotAvailable,
		EndpointAddress: model.NotAvailable,
		Origin:          OriginRegistry,
	}
	switch r.Kind {
	case reservation.KindStatic:
		row.Status = model.StatusStaticOverride
		row.Comment = fmt.Sprintf(commentStaticFmt, model.NotAvailable)
		if r.FixedLAN != "" {
			row.LANs = []string{r.FixedLAN}
			row.Comment = fmt.Sprintf(commentStaticFmt, r.FixedLAN)
		}
	default:
		row.Status = model.StatusReservedDDNS
		row.Comment = commentDDNS
	}
	return row
}

func (b *Builder) placeholderRow(s alloc.Suggestion) Row {
	return Row{
		ID:              model.IntPtr(s.ID),
		Name:            b.naming.Name(s.ID),
		TunnelAddress:   b.parser.TunnelBase() + "." + strconv.Itoa(s.Suffix),
		TunnelSuffix:    model.IntPtr(s.Suffix),
		LANs:            []string{s.LAN},
		Status:          model.StatusAvailable,
		LastHandshake:   model.NotAvailable,
		Comment:         commentNext,
		EndpointAddress: model.NotAvailable,
		Origin:          OriginPlaceholder,
		Proposed:        true,
	}
}

func count(rows []Row, u alloc.Universe, stats Stats) Stats {
	stats.Total = len(rows)
	for _, r := range rows {
		switch r.Status {
		case model.StatusActive:
			stats.Active++
		case model.StatusInactive:
			stats.Inactive++
		case model.StatusReservedDDNS:
			stats.ReservedDDNS++
		case model.StatusStaticOverride:
			stats.StaticOverride++
		case model.StatusAvailable:
			stats.AvailableRows++
		}
		if r.ID == nil {
			stats.Unnumbered++
		}
	}
	stats.Available = u.IDs.Size() - stats.Total
	return stats
}

// comparePeers is a total order over the fields that identify a record, so
// that the report never depends on the order records were fetched in.
func comparePeers(a, b model.Peer) int {
	return cmp.Or(
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.ProviderID, b.ProviderID),
		cmp.Compare(a.Comment, b.Comment),
		cmp.Compare(strings.Join(a.LANs, ","), strings.Join(b.LANs, ",")),
		cmp.Compare(a.TunnelAddress(), b.TunnelAddress()),
		cmp.Compare(a.LastHandshake, b.LastHandshake),
		cmp.Compare(a.EndpointAddress, b.EndpointAddress),
		compareBool(a.Disabled, b.Disabled),
	)
}

// compareRows puts numbered rows first by id, then the rest by name.
func compareRows(a, b Row) int {
	switch {
	case a.ID != nil && b.ID != nil:
		return cmp.Compare(*a.ID, *b.ID)
	case a.ID != nil:
		return -1
	case b.ID != nil:
		return 1
	}
	return cmp.Or(
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.ProviderID, b.ProviderID),
	)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}
