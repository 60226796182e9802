package model

import "strconv"

// NotAvailable is shown for fields that have no value for a row.
const NotAvailable = "N/A"

// Never is the handshake shown for peers that never completed one.
const Never = "never"

// Status classifies a row of the reconciliation report.
type Status string

const (
	StatusActive         Status = "active"
	StatusInactive       Status = "inactive"
	StatusReservedDDNS   Status = "reserved-ddns"
	StatusStaticOverride Status = "static-override"
	StatusAvailable      Status = "available"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusActive,
	StatusInactive,
	StatusReservedDDNS,
	StatusStaticOverride,
	StatusAvailable,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// RawPeer is a peer record as fetched from the hub, before any parsing.
type RawPeer struct {
	ProviderID      string `yaml:"provider_id" json:"provider_id"`
	Name            string `yaml:"name,omitempty" json:"name,omitempty"`
	Comment         string `yaml:"comment,omitempty" json:"comment,omitempty"`
	AllowedAddress  string `yaml:"allowed_address" json:"allowed_address"`
	LastHandshake   string `yaml:"last_handshake,omitempty" json:"last_handshake,omitempty"`
	EndpointAddress string `yaml:"endpoint_address,omitempty" json:"endpoint_address,omitempty"`
	Disabled        bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Peer is a parsed and classified peer record.
type Peer struct {
	// ID is the client id parsed from the name or comment. Nil when the
	// record does not follow the naming convention.
	ID *int
	// TunnelSuffix is the last octet of the peer's tunnel address, nil if
	// the allowed-address list has no entry inside the tunnel prefix.
	TunnelSuffix *int
	// TunnelBase is the first three octets of the tunnel prefix, e.g. "100.100.100".
	TunnelBase      string
	Name            string
	LANs            []string
	Status          Status
	LastHandshake   string
	Comment         string
	EndpointAddress string
	ProviderID      string
	Disabled        bool
}

// TunnelAddress returns "base.suffix" or NotAvailable.
func (p Peer) TunnelAddress() string {
	if p.TunnelSuffix == nil || p.TunnelBase == "" {
		return NotAvailable
	}
	return p.TunnelBase + "." + strconv.Itoa(*p.TunnelSuffix)
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}
