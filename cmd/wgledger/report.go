package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"wgledger/internal/api"
	"wgledger/internal/export"
	"wgledger/internal/model"
	"wgledger/internal/report"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		format string
		search string
		status string
		from   string
		remote string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the reconciliation report for every client id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !report.ValidStatus(status) {
				return fmt.Errorf("unknown status %q (want all, %s)", status, joinStatuses())
			}
			if err := a.load(); err != nil {
				return err
			}

			var rep report.Report
			if remote != "" {
				resp, err := api.NewClient(remote, a.cfg.Source.Timeout).Report(cmd.Context(), search, status)
				if err != nil {
					return err
				}
				rep = resp.Report
			} else {
				b, src, err := a.pipeline(from)
				if err != nil {
					return err
				}
				raws, err := src.Fetch(cmd.Context())
				if err != nil {
					return err
				}
				rep = b.Build(raws)
				rep.Rows = report.Filter(rep.Rows, search, status)
			}

			w := a.out
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return renderReport(w, a.au, rep, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or csv")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only rows whose name, tunnel address or comment contains this text")
	cmd.Flags().StringVar(&status, "status", report.StatusAll, "Only rows with this status")
	cmd.Flags().StringVar(&from, "from", "", "Replay a snapshot file instead of the configured source")
	cmd.Flags().StringVar(&remote, "server", "", "Query a running wgledger server instead of building locally")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func (a *app) nextCmd() *cobra.Command {
	var (
		format string
		from   string
		remote string
	)
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Suggest the next free client id, tunnel address and LAN block",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			p, err := a.suggest(cmd.Context(), from, remote)
			if err != nil {
				return err
			}
			if len(p.Exhausted) > 0 {
				a.warnf("no free value left for %v; the suggestion reuses the lowest value", p.Exhausted)
			}
			if format == formatJSON {
				return writeJSON(a.out, p)
			}
			fmt.Fprintf(a.out, "id:       %s\n", a.au.Bold(p.Name))
			fmt.Fprintf(a.out, "tunnel:   %s\n", p.TunnelAddress)
			fmt.Fprintf(a.out, "lan:      %s\n", p.LAN)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table or json")
	cmd.Flags().StringVar(&from, "from", "", "Replay a snapshot file instead of the configured source")
	cmd.Flags().StringVar(&remote, "server", "", "Ask a running wgledger server instead of computing locally")
	return cmd
}

func (a *app) suggest(ctx context.Context, from, remote string) (report.Proposal, error) {
	if remote != "" {
		resp, err := api.NewClient(remote, a.cfg.Source.Timeout).Next(ctx)
		if err != nil {
			return report.Proposal{}, err
		}
		return resp.Suggestion, nil
	}
	b, src, err := a.pipeline(from)
	if err != nil {
		return report.Proposal{}, err
	}
	raws, err := src.Fetch(ctx)
	if err != nil {
		return report.Proposal{}, err
	}
	return b.Suggest(raws), nil
}

func renderReport(w io.Writer, au aurora.Aurora, rep report.Report, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, rep)
	case formatCSV:
		return export.WriteCSV(w, rep.Rows)
	case formatTable, "":
		return writeTable(w, au, rep)
	}
	return fmt.Errorf("unknown format %q (want table, json or csv)", format)
}

func writeTable(w io.Writer, au aurora.Aurora, rep report.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTUNNEL\tLANS\tHANDSHAKE\tCOMMENT\tSTATUS")
	for _, r := range rep.Rows {
		id := "-"
		if r.ID != nil {
			id = fmt.Sprint(*r.ID)
		}
		lans := strings.Join(r.LANs, ",")
		if lans == "" {
			lans = model.NotAvailable
		}
		comment := r.Comment
		if r.DuplicateOf != nil {
			comment = strings.TrimSpace(fmt.Sprintf("%s (duplicate of %d)", comment, *r.DuplicateOf))
		}
		// Status goes last so colour escapes do not disturb column widths.
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id, r.Name, r.TunnelAddress, lans, r.LastHandshake, comment, colourStatus(au, r.Status))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := rep.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "total=%d active=%d inactive=%d reserved-ddns=%d static-override=%d available_rows=%d available=%d",
		s.Total, s.Active, s.Inactive, s.ReservedDDNS, s.StaticOverride, s.AvailableRows, s.Available)
	if s.DuplicateIDs > 0 {
		fmt.Fprintf(w, " %s", au.Yellow(fmt.Sprintf("duplicates=%d", s.DuplicateIDs)))
	}
	if s.Exhausted > 0 {
		fmt.Fprintf(w, " %s", au.Red(fmt.Sprintf("exhausted=%d", s.Exhausted)))
	}
	fmt.Fprintln(w)
	return nil
}

func colourStatus(au aurora.Aurora, s model.Status) aurora.Value {
	switch s {
	case model.StatusActive:
		return au.Green(s)
	case model.StatusInactive:
		return au.Red(s)
	case model.StatusReservedDDNS:
		return au.Magenta(s)
	case model.StatusStaticOverride:
		return au.Brown(s)
	case model.StatusAvailable:
		return au.Cyan(s)
	}
	return au.Reset(s)
}

func joinStatuses() string {
	names := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
