package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wgledger/internal/export"
	"wgledger/internal/report"
	"wgledger/internal/server"
	"wgledger/internal/source"
	"wgledger/internal/store"
)

func (a *app) snapshotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch peer records from the configured source and save them for offline replay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if out == "" {
				out = a.cfg.Source.SnapshotPath
			}
			if out == "" {
				return fmt.Errorf("--out is required when source.snapshot_path is not set")
			}
			// The snapshot file must not feed itself.
			cfg := a.cfg.Source
			cfg.SnapshotPath = ""
			src, err := source.FromConfig(cfg)
			if err != nil {
				return err
			}
			raws, err := src.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.SaveSnapshot(out, &store.Snapshot{Source: src.Name(), Peers: raws}); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %d peers from %s to %s\n", len(raws), src.Name(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot file (default source.snapshot_path)")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report over HTTP",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if listen == "" {
				listen = a.cfg.Server.Listen
			}
			b, src, err := a.pipeline("")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return server.New(listen, src, b).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default server.listen)")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var (
		file    string
		history string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the report summary whenever the snapshot or dump file changes",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if file == "" {
				file = a.cfg.Source.SnapshotPath
			}
			if file == "" {
				file = a.cfg.Source.WGDumpPath
			}
			if file == "" {
				return fmt.Errorf("--file is required when neither source.snapshot_path nor source.wg_dump_path is set")
			}
			b, src, err := a.pipeline("")
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			refresh := func() {
				raws, err := src.Fetch(ctx)
				if err != nil {
					a.warnf("fetch failed, keeping previous summary: %s", err)
					return
				}
				rep := b.Build(raws)
				a.printSummary(rep)
				if history != "" {
					if err := export.AppendStats(history, time.Now(), rep.Stats); err != nil {
						a.warnf("history: %s", err)
					}
				}
			}
			refresh()

			w, err := watchFile(file, refresh)
			if err != nil {
				return err
			}
			defer w.Close()
			zap.S().Infof("watching %s", file)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "File to watch (default source.snapshot_path, then source.wg_dump_path)")
	cmd.Flags().StringVar(&history, "history", "", "Append a stats line to this CSV on every refresh")
	return cmd
}

func (a *app) printSummary(rep report.Report) {
	s := rep.Stats
	line := fmt.Sprintf("%s total=%d active=%d inactive=%d reserved-ddns=%d static-override=%d available_rows=%d available=%d",
		time.Now().Format("15:04:05"), s.Total,
		a.au.Green(s.Active), a.au.Red(s.Inactive),
		s.ReservedDDNS, s.StaticOverride, s.AvailableRows, s.Available)
	if row, ok := rep.Next(); ok {
		line += fmt.Sprintf(" next=%s/%s", row.Name, row.TunnelAddress)
	}
	fmt.Fprintln(a.out, line)
}

// watchFile calls onChange after every write, create or rename of path.
// The parent directory is watched so atomic replacements are seen.
func watchFile(path string, onChange func()) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Let the writer finish before reading.
				time.Sleep(150 * time.Millisecond)
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				zap.S().Warnf("watch %s: %s", path, err)
			}
		}
	}()
	return w, nil
}
