package peer

import (
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wgledger/internal/model"
	"wgledger/internal/reservation"
)

func testParser(t *testing.T) *Parser {
	t.Helper()
	reg, err := reservation.New([]int{2, 7}, []reservation.Static{{ID: 5, LAN: "172.16.100.26"}})
	if err != nil {
		t.Fatalf("reservation.New: %v", err)
	}
	p, err := NewParser(Options{
		TunnelPrefix:     netip.MustParsePrefix("100.100.100.0/24"),
		ManagementPrefix: netip.MustParsePrefix("172.16.100.0/24"),
		IDPrefix:         "MC",
		InterfacePrefix:  "WIREGUARD-",
	}, reg)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

func TestParse_TunnelAndLANs(t *testing.T) {
	t.Parallel()

	p := testParser(t)
	got := p.Parse(model.RawPeer{
		ProviderID:     "*1A",
		Name:           "MC12-sucursal",
		AllowedAddress: "172.16.100.5/32,100.100.100.7/32,192.168.30.0/24",
		LastHandshake:  "42s",
	})
	want := model.Peer{
		ID:              model.IntPtr(12),
		TunnelSuffix:    model.IntPtr(7),
		TunnelBase:      "100.100.100",
		Name:            "MC12-sucursal",
		LANs:            []string{"192.168.30.0/24"},
		Status:          model.StatusActive,
		LastHandshake:   "42s",
		EndpointAddress: model.NotAvailable,
		ProviderID:      "*1A",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parse mismatch (-want +got):\n%s", diff)
	}
	if addr := got.TunnelAddress(); addr != "100.100.100.7" {
		t.Fatalf("tunnel address=%q", addr)
	}
}

func TestParse_LANsKeepOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	p := testParser(t)
	got := p.Parse(model.RawPeer{
		Name:           "MC40",
		AllowedAddress: " 192.168.50.0/24 , 10.0.0.0/8,,192.168.50.0/24,190.2.221.40:10554",
	})
	want := []string{"192.168.50.0/24", "10.0.0.0/8", "192.168.50.0/24", "190.2.221.40:10554"}
	if diff := cmp.Diff(want, got.LANs); diff != "" {
		t.Fatalf("lans (-want +got):\n%s", diff)
	}
	if got.TunnelSuffix != nil {
		t.Fatalf("suffix=%d, want unset", *got.TunnelSuffix)
	}
	if got.TunnelAddress() != model.NotAvailable {
		t.Fatalf("tunnel address=%q", got.TunnelAddress())
	}
}

func TestParse_WideRangesAreLAN(t *testing.T) {
	t.Parallel()

	p := testParser(t)
	got := p.Parse(model.RawPeer{Name: "MC41", AllowedAddress: "172.16.0.0/16,100.100.100.0/24"})
	if diff := cmp.Diff([]string{"172.16.0.0/16"}, got.LANs); diff != "" {
		t.Fatalf("lans (-want +got):\n%s", diff)
	}
	if got.TunnelSuffix != nil {
		t.Fatalf("network address must not yield a suffix")
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	p := testParser(t)
	tests := []struct {
		name, comment string
		want          *int
	}{
		{"MC10", "", model.IntPtr(10)},
		{"WIREGUARD-MC103", "", model.IntPtr(103)},
		{"mc07_norte", "", model.IntPtr(7)},
		{"MC15-x", "", model.IntPtr(15)},
		{"MC5", "", nil},
		{"MC15x", "", nil},
		{"XMC15", "", nil},
		{"router-central", "MC33", model.IntPtr(33)},
		{"MC12", "MC33", model.IntPtr(12)},
		{"", "", nil},
	}
	for _, tt := range tests {
		got := p.ParseID(tt.name, tt.comment)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseID(%q, %q) (-want +got):\n%s", tt.name, tt.comment, diff)
		}
	}
}

func TestParse_NameFallback(t *testing.T) {
	t.Parallel()

	p := testParser(t)
	if got := p.Parse(model.RawPeer{Comment: "oficina"}).Name; got != "oficina" {
		t.Fatalf("name=%q", got)
	}
	got := p.Parse(model.RawPeer{})
	if got.Name != unnamed || got.ID != nil || got.LastHandshake != model.Never || len(got.LANs) != 0 {
		t.Fatalf("empty record=%+v", got)
	}
}

// The activity check is a substring test over RouterOS compact durations,
// not a parse: any hour, day or week marker means inactive.
func TestIsActive(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"":        false,
		"never":   false,
		"12s":     true,
		"3m12s":   true,
		"59m59s":  true,
		"1h":      false,
		"2h5m10s": false,
		"1d3h":    false,
		"2w":      false,
	}
	for in, want := range tests {
		if got := IsActive(in); got != want {
			t.Errorf("IsActive(%q)=%v want %v", in, got, want)
		}
	}
}

func TestClassify_Precedence(t *testing.T) {
	t.Parallel()

	reg, _ := reservation.New([]int{2}, []reservation.Static{{ID: 5}})
	if s := Classify(reg, model.IntPtr(5), "10s"); s != model.StatusStaticOverride {
		t.Fatalf("static=%s", s)
	}
	if s := Classify(reg, model.IntPtr(2), "10s"); s != model.StatusReservedDDNS {
		t.Fatalf("ddns=%s", s)
	}
	if s := Classify(reg, model.IntPtr(3), "10s"); s != model.StatusActive {
		t.Fatalf("active=%s", s)
	}
	if s := Classify(reg, nil, "1d"); s != model.StatusInactive {
		t.Fatalf("inactive=%s", s)
	}
}

func TestNewParser_Validates(t *testing.T) {
	t.Parallel()

	if _, err := NewParser(Options{TunnelPrefix: netip.MustParsePrefix("100.100.0.0/16"), IDPrefix: "MC"}, nil); err == nil {
		t.Fatalf("expected error for /16 tunnel prefix")
	}
	if _, err := NewParser(Options{TunnelPrefix: netip.MustParsePrefix("100.100.100.0/24")}, nil); err == nil {
		t.Fatalf("expected error for empty id prefix")
	}
}
