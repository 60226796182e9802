package report

import (
	"testing"

	"wgledger/internal/model"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Name: "MC01", TunnelAddress: "100.100.100.2", Comment: "Sucursal Norte", Status: model.StatusActive},
		{Name: "MC02", TunnelAddress: model.NotAvailable, Comment: "reserved for DDNS", Status: model.StatusReservedDDNS},
		{Name: "MC03", TunnelAddress: "100.100.100.3", Status: model.StatusAvailable},
	}
	tests := []struct {
		query, status string
		want          []string
	}{
		{"", "", []string{"MC01", "MC02", "MC03"}},
		{"", "all", []string{"MC01", "MC02", "MC03"}},
		{"norte", "", []string{"MC01"}},
		{"mc0", "available", []string{"MC03"}},
		{"100.100.100.3", "", []string{"MC03"}},
		{"ddns", "active", nil},
	}
	for _, tt := range tests {
		got := Filter(rows, tt.query, tt.status)
		var names []string
		for _, r := range got {
			names = append(names, r.Name)
		}
		if len(names) != len(tt.want) {
			t.Errorf("Filter(%q, %q)=%v want %v", tt.query, tt.status, names, tt.want)
			continue
		}
		for i := range names {
			if names[i] != tt.want[i] {
				t.Errorf("Filter(%q, %q)=%v want %v", tt.query, tt.status, names, tt.want)
				break
			}
		}
	}
}

func TestValidStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "all", "active", "static-override", "available"} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q)=false", s)
		}
	}
	if ValidStatus("gone") {
		t.Errorf("ValidStatus(gone)=true")
	}
}
