package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wgledger/internal/alloc"
	"wgledger/internal/reservation"
)

const (
	DefaultTunnelPrefix     = "100.100.100.0/24"
	DefaultManagementPrefix = "172.16.100.0/24"
	DefaultIDPrefix         = "MC"
	DefaultInterfacePrefix  = "WIREGUARD-"
	DefaultIDWidth          = 2
	DefaultTimeout          = 10 * time.Second
	DefaultListen           = "127.0.0.1:8080"
	DefaultLogLevel         = "info"
	DefaultLogMaxSizeMB     = 10
	DefaultLogMaxBackups    = 3
	DefaultLogMaxAgeDays    = 28
)

// Config is the full wgledger configuration.
type Config struct {
	Universe     UniverseConfig    `yaml:"universe"`
	Naming       NamingConfig      `yaml:"naming"`
	Networks     NetworksConfig    `yaml:"networks"`
	Reservations *ReservationTable `yaml:"reservations,omitempty"`
	Source       SourceConfig      `yaml:"source"`
	Server       ServerConfig      `yaml:"server"`
	Logging      LoggingConfig     `yaml:"logging"`
}

// UniverseConfig bounds the allocation domains.
type UniverseConfig struct {
	IDs            alloc.Range `yaml:"ids"`
	TunnelSuffixes alloc.Range `yaml:"tunnel_suffixes"`
	LANBlocks      alloc.Range `yaml:"lan_blocks"`
	LANBlockFormat string      `yaml:"lan_block_format"`
}

// NamingConfig describes how client ids appear in peer names.
type NamingConfig struct {
	IDPrefix        string `yaml:"id_prefix"`
	InterfacePrefix string `yaml:"interface_prefix"`
	IDWidth         int    `yaml:"id_width"`
}

// NetworksConfig holds the transport-internal prefixes.
type NetworksConfig struct {
	TunnelPrefix     string `yaml:"tunnel_prefix"`
	ManagementPrefix string `yaml:"management_prefix"`
}

// ReservationTable overrides the compiled-in reservation tables when set.
type ReservationTable struct {
	DDNS   []int                `yaml:"ddns"`
	Static []reservation.Static `yaml:"static"`
}

// SourceConfig tells wgledger where raw peer records come from.
// Every configured source is fetched and the results are merged.
// WGDumpCommand prints `wg show <iface> dump` output, e.g. over ssh.
type SourceConfig struct {
	URL           string            `yaml:"url"`
	Timeout       time.Duration     `yaml:"timeout"`
	SnapshotPath  string            `yaml:"snapshot_path"`
	WGInterface   string            `yaml:"wg_interface"`
	WGDumpPath    string            `yaml:"wg_dump_path"`
	WGDumpCommand []string          `yaml:"wg_dump_command,omitempty"`
	PeerNames     map[string]string `yaml:"peer_names,omitempty"`
}

// ServerConfig is used by "wgledger serve".
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// LoggingConfig controls log level and the rotated log file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a config with every default applied.
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	u := &cfg.Universe
	if u.IDs == (alloc.Range{}) {
		u.IDs = alloc.Range{Min: alloc.DefaultMinID, Max: alloc.DefaultMaxID}
	}
	if u.TunnelSuffixes == (alloc.Range{}) {
		u.TunnelSuffixes = alloc.Range{Min: alloc.DefaultMinSuffix, Max: alloc.DefaultMaxSuffix}
	}
	if u.LANBlocks == (alloc.Range{}) {
		u.LANBlocks = alloc.Range{Min: alloc.DefaultMinLANBlock, Max: alloc.DefaultMaxLANBlock}
	}
	if u.LANBlockFormat == "" {
		u.LANBlockFormat = alloc.DefaultLANFormat
	}

	if cfg.Naming.IDPrefix == "" {
		cfg.Naming.IDPrefix = DefaultIDPrefix
	}
	if cfg.Naming.InterfacePrefix == "" {
		cfg.Naming.InterfacePrefix = DefaultInterfacePrefix
	}
	if cfg.Naming.IDWidth == 0 {
		cfg.Naming.IDWidth = DefaultIDWidth
	}

	if cfg.Networks.TunnelPrefix == "" {
		cfg.Networks.TunnelPrefix = DefaultTunnelPrefix
	}
	if cfg.Networks.ManagementPrefix == "" {
		cfg.Networks.ManagementPrefix = DefaultManagementPrefix
	}

	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = DefaultTimeout
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}
}

// Validate checks bounds, prefixes and reservation tables.
func Validate(cfg Config) error {
	if err := cfg.AllocUniverse().Validate(); err != nil {
		return fmt.Errorf("universe: %w", err)
	}
	if n := strings.Count(cfg.Universe.LANBlockFormat, "%"); n != 1 || !strings.Contains(cfg.Universe.LANBlockFormat, "%d") {
		return fmt.Errorf("universe.lan_block_format must contain exactly one %%d, got %q", cfg.Universe.LANBlockFormat)
	}
	if cfg.Naming.IDPrefix == "" {
		return fmt.Errorf("naming.id_prefix is required")
	}
	if cfg.Naming.IDWidth < 1 {
		return fmt.Errorf("naming.id_width must be positive")
	}
	tunnel, err := netip.ParsePrefix(cfg.Networks.TunnelPrefix)
	if err != nil {
		return fmt.Errorf("networks.tunnel_prefix: %w", err)
	}
	if !tunnel.Addr().Is4() || tunnel.Bits() < 24 {
		return fmt.Errorf("networks.tunnel_prefix must be an IPv4 /24 or narrower")
	}
	if _, err := netip.ParsePrefix(cfg.Networks.ManagementPrefix); err != nil {
		return fmt.Errorf("networks.management_prefix: %w", err)
	}
	if _, err := cfg.Registry(); err != nil {
		return fmt.Errorf("reservations: %w", err)
	}
	return nil
}

// AllocUniverse converts the universe section for the allocation engine.
func (c Config) AllocUniverse() alloc.Universe {
	return alloc.Universe{
		IDs:       c.Universe.IDs,
		Suffixes:  c.Universe.TunnelSuffixes,
		LANBlocks: c.Universe.LANBlocks,
		LANFormat: c.Universe.LANBlockFormat,
	}
}

// Registry builds the reservation registry, falling back to the compiled-in
// tables when the config has no reservations section.
func (c Config) Registry() (*reservation.Registry, error) {
	if c.Reservations == nil {
		return reservation.Default(), nil
	}
	return reservation.New(c.Reservations.DDNS, c.Reservations.Static)
}
