package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wgledger/internal/config"
	"wgledger/internal/logging"
	"wgledger/internal/report"
	"wgledger/internal/source"
)

const defaultConfigPath = "wgledger.yaml"

// app carries the state shared by every subcommand.
type app struct {
	cfgPath  string
	debug    bool
	nocolour bool

	cfg config.Config
	au  aurora.Aurora
	out io.Writer
}

func main() {
	a := &app{out: os.Stdout}
	if err := a.rootCmd().Execute(); err != nil {
		a.errf("%s", err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wgledger",
		Short:         "Reconcile WireGuard hub peers with the client id registry and suggest the next free allocation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			a.au = aurora.NewAurora(!a.nocolour)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", defaultConfigPath, "Path to YAML config")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.nocolour, "nocolour", false, "Disable ANSI colours in console output")

	root.AddCommand(
		a.reportCmd(),
		a.nextCmd(),
		a.snapshotCmd(),
		a.serveCmd(),
		a.watchCmd(),
		a.configCmd(),
	)
	return root
}

// load reads and validates the config, then sets up logging. A missing
// config file falls back to the built-in defaults.
func (a *app) load() error {
	cfg, err := config.Load(a.cfgPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		a.warnf("config %s not found, using defaults", a.cfgPath)
		cfg = config.Default()
	case err != nil:
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := logging.Setup(cfg.Logging, a.debug); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// pipeline builds the report builder and peer source from the loaded config.
// from, when set, replays that snapshot file instead.
func (a *app) pipeline(from string) (*report.Builder, source.Source, error) {
	b, err := a.cfg.Builder()
	if err != nil {
		return nil, nil, err
	}
	if from != "" {
		return b, &source.File{Path: from}, nil
	}
	src, err := source.FromConfig(a.cfg.Source)
	if err != nil {
		return nil, nil, err
	}
	return b, src, nil
}

func (a *app) errf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	au := a.au
	if au == nil {
		au = aurora.NewAurora(!a.nocolour)
	}
	fmt.Fprintln(os.Stderr, au.Red(fmt.Sprintf("ERROR: %s", msg)))
}

func (a *app) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, a.au.Yellow(fmt.Sprintf("WARNING: %s", msg)))
	zap.S().Debugf("warning shown: %s", msg)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
