// Package peer turns raw hub peer records into classified peers.
package peer

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"wgledger/internal/model"
	"wgledger/internal/reservation"
)

const unnamed = "unnamed"

// Options describes the naming convention and the transport-internal prefixes.
type Options struct {
	TunnelPrefix     netip.Prefix
	ManagementPrefix netip.Prefix
	// IDPrefix precedes the client id in peer names, e.g. "MC".
	IDPrefix string
	// InterfacePrefix may precede IDPrefix, e.g. "WIREGUARD-".
	InterfacePrefix string
}

// Parser parses raw records. It holds no mutable state.
type Parser struct {
	opts       Options
	idPattern  *regexp.Regexp
	tunnelBase string
	reg        *reservation.Registry
}

// NewParser compiles the id pattern for opts. The tunnel prefix must be IPv4
// and at least a /24 so that its suffix is a single octet.
func NewParser(opts Options, reg *reservation.Registry) (*Parser, error) {
	if !opts.TunnelPrefix.IsValid() || !opts.TunnelPrefix.Addr().Is4() {
		return nil, fmt.Errorf("tunnel prefix %q must be IPv4", opts.TunnelPrefix)
	}
	if opts.TunnelPrefix.Bits() < 24 {
		return nil, fmt.Errorf("tunnel prefix %s must be /24 or narrower", opts.TunnelPrefix)
	}
	if opts.IDPrefix == "" {
		return nil, fmt.Errorf("id prefix is required")
	}
	expr := "(?i)^"
	if opts.InterfacePrefix != "" {
		expr += "(?:" + regexp.QuoteMeta(opts.InterfacePrefix) + ")?"
	}
	expr += regexp.QuoteMeta(opts.IDPrefix) + `(\d{2,})(?:[_-]|$)`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile id pattern: %w", err)
	}
	o := opts.TunnelPrefix.Masked().Addr().As4()
	return &Parser{
		opts:       opts,
		idPattern:  re,
		tunnelBase: fmt.Sprintf("%d.%d.%d", o[0], o[1], o[2]),
		reg:        reg,
	}, nil
}

// TunnelBase returns the first three octets of the tunnel prefix.
func (p *Parser) TunnelBase() string {
	return p.tunnelBase
}

// Parse never fails; malformed fields come back empty or nil.
func (p *Parser) Parse(raw model.RawPeer) model.Peer {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = strings.TrimSpace(raw.Comment)
	}
	if name == "" {
		name = unnamed
	}

	out := model.Peer{
		ID:              p.ParseID(raw.Name, raw.Comment),
		TunnelBase:      p.tunnelBase,
		Name:            name,
		LastHandshake:   raw.LastHandshake,
		Comment:         raw.Comment,
		EndpointAddress: raw.EndpointAddress,
		ProviderID:      raw.ProviderID,
		Disabled:        raw.Disabled,
	}
	if out.LastHandshake == "" {
		out.LastHandshake = model.Never
	}
	if out.EndpointAddress == "" {
		out.EndpointAddress = model.NotAvailable
	}
	out.TunnelSuffix, out.LANs = p.splitAllowed(raw.AllowedAddress)
	out.Status = Classify(p.reg, out.ID, raw.LastHandshake)
	return out
}

// ParseID extracts the client id from name, falling back to comment.
func (p *Parser) ParseID(name, comment string) *int {
	for _, s := range []string{name, comment} {
		m := p.idPattern.FindStringSubmatch(strings.TrimSpace(s))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}

func (p *Parser) splitAllowed(allowed string) (*int, []string) {
	var suffix *int
	lans := []string{}
	for _, entry := range strings.Split(allowed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pfx, ok := parseEntry(entry)
		if !ok {
			// Not an address we understand (e.g. host:port); keep it as a LAN.
			lans = append(lans, entry)
			continue
		}
		if within(pfx, p.opts.TunnelPrefix) {
			if suffix == nil {
				if o := pfx.Addr().As4()[3]; o != 0 {
					n := int(o)
					suffix = &n
				}
			}
			continue
		}
		if p.opts.ManagementPrefix.IsValid() && within(pfx, p.opts.ManagementPrefix) {
			continue
		}
		lans = append(lans, entry)
	}
	return suffix, lans
}

func parseEntry(s string) (netip.Prefix, bool) {
	if pfx, err := netip.ParsePrefix(s); err == nil {
		return pfx, pfx.Addr().Is4()
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Prefix{}, false
	}
	return netip.PrefixFrom(addr, 32), true
}

// within reports whether p lies entirely inside outer.
func within(p, outer netip.Prefix) bool {
	return p.Bits() >= outer.Bits() && outer.Contains(p.Addr())
}
