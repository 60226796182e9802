// Package source fetches raw peer records from the hub API, a local
// WireGuard interface, a dump file or a saved snapshot.
package source

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wgledger/internal/api"
	"wgledger/internal/config"
	"wgledger/internal/execx"
	"wgledger/internal/model"
	"wgledger/internal/store"
	"wgledger/internal/wireguard"
)

// Source yields the current set of raw peer records.
type Source interface {
	Fetch(ctx context.Context) ([]model.RawPeer, error)
	// Name describes the source in logs and snapshots.
	Name() string
}

// HTTP fetches peers through the hub's fetch endpoint.
type HTTP struct {
	URL    string
	Client *api.Client
}

// NewHTTP builds an HTTP source for url.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	return &HTTP{URL: url, Client: api.NewClient(url, timeout)}
}

func (h *HTTP) Fetch(ctx context.Context) ([]model.RawPeer, error) {
	peers, err := h.Client.FetchPeers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.URL, err)
	}
	return peers, nil
}

func (h *HTTP) Name() string { return h.URL }

// Device reads a local interface through wgctrl.
type Device struct {
	WG wireguard.Device
}

func (d *Device) Fetch(ctx context.Context) ([]model.RawPeer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.WG.Peers()
}

func (d *Device) Name() string { return "wg:" + d.WG.Name }

// Dump parses a saved `wg show <iface> dump` file.
type Dump struct {
	Path  string
	Names map[string]string
	Now   func() time.Time
}

func (d *Dump) Fetch(ctx context.Context) ([]model.RawPeer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	return wireguard.ParseDump(string(data), d.Names, now), nil
}

func (d *Dump) Name() string { return "dump:" + d.Path }

// Command runs a program that prints `wg show` dump output, such as
// `ssh hub wg show wg0 dump`.
type Command struct {
	Args   []string
	Names  map[string]string
	Runner execx.Runner
	Now    func() time.Time
}

func (c *Command) Fetch(ctx context.Context) ([]model.RawPeer, error) {
	if len(c.Args) == 0 {
		return nil, fmt.Errorf("empty dump command")
	}
	runner := c.Runner
	if runner == nil {
		runner = execx.OSRunner{}
	}
	out, err := runner.Output(ctx, c.Args[0], c.Args[1:]...)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	return wireguard.ParseDump(out, c.Names, now), nil
}

func (c *Command) Name() string { return "cmd:" + strings.Join(c.Args, " ") }

// File replays a snapshot written by store.SaveSnapshot.
type File struct {
	Path string
}

func (f *File) Fetch(ctx context.Context) ([]model.RawPeer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(f.Path); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	snap, err := store.LoadSnapshot(f.Path)
	if err != nil {
		return nil, err
	}
	return snap.Peers, nil
}

func (f *File) Name() string { return "snapshot:" + f.Path }

// Static serves a fixed set of records.
type Static []model.RawPeer

func (s Static) Fetch(context.Context) ([]model.RawPeer, error) {
	return append([]model.RawPeer(nil), s...), nil
}

func (Static) Name() string { return "static" }

// Multi fetches every source concurrently and concatenates the results in
// source order. Any failure fails the whole fetch.
type Multi []Source

func (m Multi) Fetch(ctx context.Context) ([]model.RawPeer, error) {
	results := make([][]model.RawPeer, len(m))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range m {
		g.Go(func() error {
			peers, err := src.Fetch(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			zap.S().Debugf("fetched %d peers from %s", len(peers), src.Name())
			results[i] = peers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.RawPeer
	for _, peers := range results {
		out = append(out, peers...)
	}
	return out, nil
}

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, src := range m {
		names[i] = src.Name()
	}
	return strings.Join(names, "+")
}

// FromConfig builds the source described by cfg. When more than one input
// is configured they are merged with Multi.
func FromConfig(cfg config.SourceConfig) (Source, error) {
	var srcs Multi
	if cfg.URL != "" {
		srcs = append(srcs, NewHTTP(cfg.URL, cfg.Timeout))
	}
	if cfg.WGInterface != "" {
		srcs = append(srcs, &Device{WG: wireguard.Device{Name: cfg.WGInterface, Names: cfg.PeerNames}})
	}
	if cfg.WGDumpPath != "" {
		srcs = append(srcs, &Dump{Path: cfg.WGDumpPath, Names: cfg.PeerNames})
	}
	if len(cfg.WGDumpCommand) > 0 {
		srcs = append(srcs, &Command{Args: cfg.WGDumpCommand, Names: cfg.PeerNames})
	}
	if cfg.SnapshotPath != "" {
		srcs = append(srcs, &File{Path: cfg.SnapshotPath})
	}
	switch len(srcs) {
	case 0:
		return nil, fmt.Errorf("no peer source configured (set source.url, source.wg_interface, source.wg_dump_path, source.wg_dump_command or source.snapshot_path)")
	case 1:
		return srcs[0], nil
	}
	return srcs, nil
}
