package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"wgledger/internal/alloc"
	"wgledger/internal/api"
	"wgledger/internal/model"
	"wgledger/internal/peer"
	"wgledger/internal/report"
	"wgledger/internal/reservation"
	"wgledger/internal/source"
)

type brokenSource struct{}

func (brokenSource) Fetch(context.Context) ([]model.RawPeer, error) {
	return nil, errors.New("router unreachable")
}
func (brokenSource) Name() string { return "broken" }

func newTestServer(t *testing.T, src source.Source) *httptest.Server {
	t.Helper()
	reg := reservation.Default()
	p, err := peer.NewParser(peer.Options{
		TunnelPrefix:     netip.MustParsePrefix("100.100.100.0/24"),
		ManagementPrefix: netip.MustParsePrefix("172.16.100.0/24"),
		IDPrefix:         "MC",
		InterfacePrefix:  "WIREGUARD-",
	}, reg)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	e, err := alloc.NewEngine(alloc.DefaultUniverse(), reg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	b := report.NewBuilder(p, e, report.Naming{IDPrefix: "MC", IDWidth: 2})
	ts := httptest.NewServer(New("127.0.0.1:0", src, b).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func samplePeers() source.Static {
	return source.Static{
		{ProviderID: "*1", Name: "WIREGUARD-MC01", AllowedAddress: "100.100.100.2/32,192.168.10.0/24", LastHandshake: "31s"},
		{ProviderID: "*3", Name: "MC03", Comment: "Sucursal Norte", AllowedAddress: "100.100.100.3/32,192.168.11.0/24", LastHandshake: "3d2h"},
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res.StatusCode
}

func TestHandleReport_Filters(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, samplePeers())
	var resp api.ReportResponse
	if code := getJSON(t, ts.URL+"/report?q=norte", &resp); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].Name != "MC03" || resp.Rows[0].Status != model.StatusInactive {
		t.Fatalf("rows=%+v", resp.Rows)
	}
	// Stats always describe the full report.
	if resp.Stats.Active != 1 || resp.Stats.Inactive != 1 {
		t.Fatalf("stats=%+v", resp.Stats)
	}

	var byStatus api.ReportResponse
	getJSON(t, ts.URL+"/report?status=static-override", &byStatus)
	if len(byStatus.Rows) != len(reservation.DefaultStatic) {
		t.Fatalf("static rows=%d", len(byStatus.Rows))
	}
}

func TestHandleReport_BadStatus(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, samplePeers())
	var resp api.ErrorResponse
	if code := getJSON(t, ts.URL+"/report?status=gone", &resp); code != http.StatusBadRequest {
		t.Fatalf("status=%d", code)
	}
	if resp.Error == "" {
		t.Fatalf("missing error message")
	}
}

func TestHandleNext(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, samplePeers())
	var resp api.NextResponse
	if code := getJSON(t, ts.URL+"/next", &resp); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	if resp.Row == nil {
		t.Fatalf("missing row")
	}
	s := resp.Suggestion
	if s.Name != "MC04" || s.TunnelAddress != "100.100.100.4" || s.LAN != "192.168.12.0/24" {
		t.Fatalf("suggestion=%+v", s)
	}
	if resp.Row.Name != s.Name || resp.Row.TunnelAddress != s.TunnelAddress {
		t.Fatalf("row %+v disagrees with suggestion %+v", resp.Row, s)
	}
}

func TestFetchError_BadGatewayAndHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, brokenSource{})
	var errResp api.ErrorResponse
	if code := getJSON(t, ts.URL+"/report", &errResp); code != http.StatusBadGateway {
		t.Fatalf("status=%d", code)
	}
	if errResp.Error != "router unreachable" {
		t.Fatalf("error=%q", errResp.Error)
	}

	var health api.HealthResponse
	getJSON(t, ts.URL+"/healthz", &health)
	if health.Status != "degraded" || health.Source != "broken" || health.LastError == "" {
		t.Fatalf("health=%+v", health)
	}
}

func TestHealthz_LastFetchOnlyAfterFetch(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, samplePeers())
	var before map[string]any
	getJSON(t, ts.URL+"/healthz", &before)
	if _, ok := before["last_fetch"]; ok {
		t.Fatalf("last_fetch present before any fetch: %v", before)
	}

	var rep api.ReportResponse
	if code := getJSON(t, ts.URL+"/report", &rep); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	var health api.HealthResponse
	getJSON(t, ts.URL+"/healthz", &health)
	if health.LastFetch == nil || health.LastFetch.IsZero() {
		t.Fatalf("last_fetch not set after fetch: %+v", health)
	}
	if health.Status != "ok" || health.Peers != 2 {
		t.Fatalf("health=%+v", health)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, samplePeers())
	res, err := http.Post(ts.URL+"/report", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", res.StatusCode)
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := New("127.0.0.1:0", samplePeers(), nil)
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("ListenAndServe: %v", err)
	}
}
