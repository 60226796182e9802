package report

import (
	"strings"

	"wgledger/internal/model"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// Filter keeps rows whose name or comment contains query (case-insensitive)
// or whose tunnel address contains it, and whose status matches status.
// An empty query or status of "" / "all" matches everything.
func Filter(rows []Row, query, status string) []Row {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if status != "" && status != StatusAll && r.Status != model.Status(status) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.Comment), q) &&
			!strings.Contains(r.TunnelAddress, q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ValidStatus reports whether s is accepted by Filter.
func ValidStatus(s string) bool {
	return s == "" || s == StatusAll || model.Status(s).Valid()
}
