// Package export renders reports for spreadsheets and history files.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wgledger/internal/report"
)

var rowHeader = []string{
	"id",
	"name",
	"tunnel_address",
	"lans",
	"status",
	"last_handshake",
	"endpoint_address",
	"comment",
	"origin",
	"provider_id",
	"disabled",
	"duplicate_of",
}

// WriteCSV writes report rows to CSV with a fixed column order. Multiple
// LANs share one cell, separated by spaces.
func WriteCSV(w io.Writer, rows []report.Row) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(rowHeader); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			intOrEmpty(r.ID),
			r.Name,
			r.TunnelAddress,
			strings.Join(r.LANs, " "),
			string(r.Status),
			r.LastHandshake,
			r.EndpointAddress,
			r.Comment,
			string(r.Origin),
			r.ProviderID,
			strconv.FormatBool(r.Disabled),
			intOrEmpty(r.DuplicateOf),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

var statsHeader = []string{
	"timestamp",
	"total",
	"active",
	"inactive",
	"reserved_ddns",
	"static_override",
	"available_rows",
	"available",
	"duplicate_ids",
	"unnumbered",
	"exhausted",
}

// AppendStats appends one stats line to a CSV history file, writing the
// header when the file is new or empty.
func AppendStats(path string, at time.Time, s report.Stats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(statsHeader); err != nil {
			return err
		}
	}
	record := []string{
		at.UTC().Format(time.RFC3339),
		strconv.Itoa(s.Total),
		strconv.Itoa(s.Active),
		strconv.Itoa(s.Inactive),
		strconv.Itoa(s.ReservedDDNS),
		strconv.Itoa(s.StaticOverride),
		strconv.Itoa(s.AvailableRows),
		strconv.Itoa(s.Available),
		strconv.Itoa(s.DuplicateIDs),
		strconv.Itoa(s.Unnumbered),
		strconv.Itoa(s.Exhausted),
	}
	if err := writer.Write(record); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
