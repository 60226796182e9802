package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wgledger/internal/model"
	"wgledger/internal/report"
)

func TestClient_ErrorIncludesBody(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer s.Close()

	c := NewClient(s.URL, 0)
	_, err := c.Next(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	got := err.Error()
	if got == "" || got[len(got)-1] == '\n' {
		t.Fatalf("unexpected error string: %q", got)
	}
	if want := "400"; !strings.Contains(got, want) {
		t.Fatalf("error missing status: %q", got)
	}
	if want := `"error":"nope"`; !strings.Contains(got, want) {
		t.Fatalf("error missing body: %q", got)
	}
}

func TestClient_FetchPeers(t *testing.T) {
	t.Parallel()

	const body = `{"success":true,"data":[
		{".id":"*1","name":"WIREGUARD-MC01","allowed-address":"100.100.100.2/32,192.168.10.0/24","last-handshake":"35s","current-endpoint-address":"181.1.2.3","disabled":"false"},
		{".id":"*2","comment":"MC02 ddns","allowed-address":"100.100.100.3/32","disabled":true}
	]}`
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s", r.Method)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer s.Close()

	got, err := NewClient(s.URL+"/", 0).FetchPeers(context.Background())
	if err != nil {
		t.Fatalf("FetchPeers: %v", err)
	}
	want := []model.RawPeer{
		{ProviderID: "*1", Name: "WIREGUARD-MC01", AllowedAddress: "100.100.100.2/32,192.168.10.0/24", LastHandshake: "35s", EndpointAddress: "181.1.2.3"},
		{ProviderID: "*2", Comment: "MC02 ddns", AllowedAddress: "100.100.100.3/32", Disabled: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("peers (-want +got):\n%s", diff)
	}
}

func TestClient_FetchPeersOddDisabledKeepsAllRecords(t *testing.T) {
	t.Parallel()

	const body = `{"success":true,"data":[
		{".id":"*1","name":"MC01","allowed-address":"100.100.100.2/32","disabled":"maybe"},
		{".id":"*2","name":"MC02","allowed-address":"100.100.100.3/32","disabled":"yes"}
	]}`
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer s.Close()

	got, err := NewClient(s.URL, 0).FetchPeers(context.Background())
	if err != nil {
		t.Fatalf("FetchPeers: %v", err)
	}
	want := []model.RawPeer{
		{ProviderID: "*1", Name: "MC01", AllowedAddress: "100.100.100.2/32"},
		{ProviderID: "*2", Name: "MC02", AllowedAddress: "100.100.100.3/32", Disabled: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("peers (-want +got):\n%s", diff)
	}
}

func TestClient_DecodeErrorNamesURL(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":`))
	}))
	defer s.Close()

	_, err := NewClient(s.URL, 0).FetchPeers(context.Background())
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if !strings.Contains(err.Error(), "POST "+s.URL) {
		t.Fatalf("error %q does not name the request", err)
	}
}

func TestClient_FetchPeersEnvelopeError(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"router unreachable"}`))
	}))
	defer s.Close()

	_, err := NewClient(s.URL, 0).FetchPeers(context.Background())
	if err == nil || !strings.Contains(err.Error(), "router unreachable") {
		t.Fatalf("err=%v", err)
	}
}

func TestClient_ReportQuery(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/report" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "norte" {
			t.Errorf("q=%q", q)
		}
		if st := r.URL.Query().Get("status"); st != "active" {
			t.Errorf("status=%q", st)
		}
		_ = json.NewEncoder(w).Encode(ReportResponse{
			Report: report.Report{Stats: report.Stats{Total: 1, Active: 1}},
			Query:  "norte",
			Status: "active",
		})
	}))
	defer s.Close()

	resp, err := NewClient(s.URL, 0).Report(context.Background(), "norte", "active")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if resp.Stats.Active != 1 || resp.Query != "norte" {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestBool_Unmarshal(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		`true`:    true,
		`false`:   false,
		`"true"`:  true,
		`"false"`: false,
		`"yes"`:   true,
		`"no"`:    false,
		`""`:      false,
	}
	for in, want := range tests {
		var b Bool
		if err := json.Unmarshal([]byte(in), &b); err != nil {
			t.Fatalf("Unmarshal(%s): %v", in, err)
		}
		if bool(b) != want {
			t.Fatalf("Unmarshal(%s)=%v", in, b)
		}
	}
	for _, in := range []string{`"maybe"`, `1`, `{}`} {
		b := Bool(true)
		if err := json.Unmarshal([]byte(in), &b); err != nil {
			t.Fatalf("Unmarshal(%s): %v", in, err)
		}
		if b {
			t.Fatalf("Unmarshal(%s)=true, want false", in)
		}
	}
}
