package wireguard

import (
	"fmt"
	"strings"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"wgledger/internal/model"
)

// Device reads peers from a local WireGuard interface through wgctrl.
type Device struct {
	Name string
	// Names maps public keys to display names.
	Names map[string]string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Peers opens a wgctrl client, reads the interface and converts its peers.
func (d Device) Peers() ([]model.RawPeer, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("wg_interface is required")
	}
	client, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("wgctrl: %w", err)
	}
	defer client.Close()

	dev, err := client.Device(d.Name)
	if err != nil {
		return nil, fmt.Errorf("read device %s: %w", d.Name, err)
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return FromDevice(dev, d.Names, now()), nil
}

// FromDevice converts the peers of a wgctrl device.
func FromDevice(dev *wgtypes.Device, names map[string]string, now time.Time) []model.RawPeer {
	out := make([]model.RawPeer, 0, len(dev.Peers))
	for _, p := range dev.Peers {
		key := p.PublicKey.String()
		allowed := make([]string, 0, len(p.AllowedIPs))
		for _, ipn := range p.AllowedIPs {
			allowed = append(allowed, ipn.String())
		}
		var endpoint string
		if p.Endpoint != nil {
			endpoint = p.Endpoint.IP.String()
		}
		out = append(out, model.RawPeer{
			ProviderID:      key,
			Name:            names[key],
			Comment:         key,
			AllowedAddress:  strings.Join(allowed, ","),
			LastHandshake:   FormatHandshake(p.LastHandshakeTime, now),
			EndpointAddress: endpoint,
		})
	}
	return out
}
