package peer

import (
	"strings"

	"wgledger/internal/model"
	"wgledger/internal/reservation"
)

// IsActive reads a RouterOS compact duration such as "45s", "3m12s" or
// "1d3h". A handshake counts as recent when it is present and carries no
// hour, day or week unit. This is a textual check, the value is never
// converted to a number.
func IsActive(handshake string) bool {
	if handshake == "" || handshake == model.Never {
		return false
	}
	return !strings.ContainsAny(handshake, "hdw")
}

// Classify applies the status precedence: static override, then DDNS
// reservation, then handshake activity.
func Classify(reg *reservation.Registry, id *int, handshake string) model.Status {
	if id != nil {
		switch reg.Classify(*id) {
		case reservation.KindStatic:
			return model.StatusStaticOverride
		case reservation.KindDDNS:
			return model.StatusReservedDDNS
		}
	}
	if IsActive(handshake) {
		return model.StatusActive
	}
	return model.StatusInactive
}
