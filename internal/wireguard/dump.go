package wireguard

import (
	"net/netip"
	"strconv"
	"strings"
	"time"

	"wgledger/internal/model"
)

// ParseDump converts `wg show <iface> dump` (or `wg show all dump`) output
// into raw peer records. names maps public keys to display names; peers
// without an entry keep an empty name and carry the key in the comment.
// Handshake ages are computed relative to now.
func ParseDump(dump string, names map[string]string, now time.Time) []model.RawPeer {
	var peers []model.RawPeer
	for _, line := range strings.Split(strings.TrimSpace(dump), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 8:
		case 9:
			// `all dump` prefixes every line with the interface name.
			fields = fields[1:]
		default:
			// Interface lines and anything unrecognised.
			continue
		}
		pubKey, endpoint, allowed, handshake := fields[0], fields[2], fields[3], fields[4]
		if pubKey == "" {
			continue
		}

		var last time.Time
		if ts, err := strconv.ParseInt(handshake, 10, 64); err == nil && ts > 0 {
			last = time.Unix(ts, 0)
		}
		peers = append(peers, model.RawPeer{
			ProviderID:      pubKey,
			Name:            names[pubKey],
			Comment:         pubKey,
			AllowedAddress:  normalizeAllowed(allowed),
			LastHandshake:   FormatHandshake(last, now),
			EndpointAddress: endpointHost(endpoint),
		})
	}
	return peers
}

func normalizeAllowed(s string) string {
	if s == "(none)" {
		return ""
	}
	return s
}

// endpointHost strips the port, matching the address-only form RouterOS
// reports as current-endpoint-address.
func endpointHost(endpoint string) string {
	switch endpoint {
	case "", "(none)", "0.0.0.0:0", "[::]:0":
		return ""
	}
	ap, err := netip.ParseAddrPort(endpoint)
	if err != nil {
		return endpoint
	}
	return ap.Addr().Unmap().String()
}

// FormatHandshake renders the age of a handshake the way RouterOS does,
// e.g. "1w2d3h4m5s". A zero last time means no handshake and yields "".
func FormatHandshake(last, now time.Time) string {
	if last.IsZero() {
		return ""
	}
	d := now.Sub(last).Truncate(time.Second)
	if d <= 0 {
		return "0s"
	}

	units := []struct {
		suffix string
		size   time.Duration
	}{
		{"w", 7 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
	}
	var b strings.Builder
	for _, u := range units {
		if n := d / u.size; n > 0 {
			b.WriteString(strconv.FormatInt(int64(n), 10))
			b.WriteString(u.suffix)
			d -= n * u.size
		}
	}
	return b.String()
}
