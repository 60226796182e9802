package config

import (
	"fmt"
	"net/netip"

	"wgledger/internal/alloc"
	"wgledger/internal/peer"
	"wgledger/internal/report"
)

// ParserOptions converts the naming and networks sections for the parser.
func (c Config) ParserOptions() (peer.Options, error) {
	tunnel, err := netip.ParsePrefix(c.Networks.TunnelPrefix)
	if err != nil {
		return peer.Options{}, fmt.Errorf("networks.tunnel_prefix: %w", err)
	}
	mgmt, err := netip.ParsePrefix(c.Networks.ManagementPrefix)
	if err != nil {
		return peer.Options{}, fmt.Errorf("networks.management_prefix: %w", err)
	}
	return peer.Options{
		TunnelPrefix:     tunnel.Masked(),
		ManagementPrefix: mgmt.Masked(),
		IDPrefix:         c.Naming.IDPrefix,
		InterfacePrefix:  c.Naming.InterfacePrefix,
	}, nil
}

// Builder wires the parser, reservation registry and allocation engine
// described by c into a report builder.
func (c Config) Builder() (*report.Builder, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, fmt.Errorf("reservations: %w", err)
	}
	opts, err := c.ParserOptions()
	if err != nil {
		return nil, err
	}
	parser, err := peer.NewParser(opts, reg)
	if err != nil {
		return nil, err
	}
	eng, err := alloc.NewEngine(c.AllocUniverse(), reg)
	if err != nil {
		return nil, err
	}
	return report.NewBuilder(parser, eng, report.Naming{
		IDPrefix: c.Naming.IDPrefix,
		IDWidth:  c.Naming.IDWidth,
	}), nil
}
