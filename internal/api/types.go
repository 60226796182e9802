package api

import (
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"wgledger/internal/model"
	"wgledger/internal/report"
)

// Bool decodes RouterOS booleans, which arrive either as JSON booleans or as
// the strings "true"/"false" (also "yes"/"no"). Anything else decodes as
// false so one odd record never fails a whole fetch.
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	// Try a plain boolean first
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = Bool(v)
		return nil
	}
	// Fallback to the string form
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		zap.S().Debugf("disabled: ignoring %s", data)
		*b = false
		return nil
	}
	switch s {
	case "", "no":
		*b = false
		return nil
	case "yes":
		*b = true
		return nil
	}
	parsed, err := strconv.ParseBool(s)
	if err != nil {
		zap.S().Debugf("disabled: ignoring %q", s)
		*b = false
		return nil
	}
	*b = Bool(parsed)
	return nil
}

// PeerRecord is one WireGuard peer as returned by the RouterOS REST API.
type PeerRecord struct {
	ID                     string `json:".id"`
	Interface              string `json:"interface,omitempty"`
	Name                   string `json:"name,omitempty"`
	Comment                string `json:"comment,omitempty"`
	PublicKey              string `json:"public-key,omitempty"`
	AllowedAddress         string `json:"allowed-address"`
	LastHandshake          string `json:"last-handshake,omitempty"`
	CurrentEndpointAddress string `json:"current-endpoint-address,omitempty"`
	Disabled               Bool   `json:"disabled,omitempty"`
}

// Raw converts the wire record into the parser's input form.
func (r PeerRecord) Raw() model.RawPeer {
	return model.RawPeer{
		ProviderID:      r.ID,
		Name:            r.Name,
		Comment:         r.Comment,
		AllowedAddress:  r.AllowedAddress,
		LastHandshake:   r.LastHandshake,
		EndpointAddress: r.CurrentEndpointAddress,
		Disabled:        bool(r.Disabled),
	}
}

// FetchResponse is the envelope returned by the peer fetch endpoint.
type FetchResponse struct {
	Success bool         `json:"success"`
	Data    []PeerRecord `json:"data"`
	Error   string       `json:"error,omitempty"`
}

// ReportResponse is served by GET /report.
type ReportResponse struct {
	report.Report
	Query  string `json:"query,omitempty"`
	Status string `json:"status,omitempty"`
}

// NextResponse is served by GET /next. Row is the first available report
// row, nil when every id in the universe is taken.
type NextResponse struct {
	Row        *report.Row     `json:"row,omitempty"`
	Suggestion report.Proposal `json:"suggestion"`
}

// ErrorResponse is the body of every non-2xx answer from the server.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is served by GET /healthz.
type HealthResponse struct {
	Status    string     `json:"status"`
	Source    string     `json:"source"`
	LastFetch *time.Time `json:"last_fetch,omitempty"`
	Peers     int        `json:"peers"`
	LastError string     `json:"last_error,omitempty"`
}
