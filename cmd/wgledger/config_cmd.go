package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wgledger/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or validate the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with every default filled in",
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(a.cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.cfgPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(a.cfgPath, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", a.cfgPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := loadForCheck(a.cfgPath); err != nil {
				return err
			}
			fmt.Fprintln(a.out, a.au.Green("OK: config is valid"))
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}

// loadForCheck loads and validates without touching logging.
func loadForCheck(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, config.Validate(cfg)
}
