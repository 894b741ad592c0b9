// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"strings"

	"cortex/cli/internal/config"
	"cortex/cli/internal/httperrors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change CLI settings",
	Long: `The config command reads and writes the CLI settings file in your
config directory. Environment variables still override the saved values.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save a setting (" + strings.Join(config.Keys, ", ") + ")",
	Example: `  cortex config set url https://cortex.example.com
  cortex config set timeout 60`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigSet(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], args[1])
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(out, errOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return httperrors.Present(errOut, "loading configuration", err)
	}
	p, err := config.Path()
	if err != nil {
		return httperrors.Present(errOut, "loading configuration", err)
	}

	var b strings.Builder
	for _, key := range config.Keys {
		fmt.Fprintf(&b, "%-10s %s\n", key, cfg.Get(key))
	}
	b.WriteString("\n" + p)
	pterm.Fprintln(out, pterm.DefaultBox.WithTitle("Settings").WithPadding(1).Sprint(b.String()))
	return nil
}

// runConfigSet saves one setting. Environment overrides are not written back.
func runConfigSet(out, errOut io.Writer, key, value string) error {
	cfg, err := config.LoadFile()
	if err != nil {
		return httperrors.Present(errOut, "loading configuration", err)
	}
	if err := cfg.Set(key, value); err != nil {
		return httperrors.Present(errOut, "changing "+key, err)
	}
	if err := config.Save(cfg); err != nil {
		return httperrors.Present(errOut, "saving configuration", err)
	}
	fmt.Fprintf(out, "✅ %s set to %s\n", key, cfg.Get(key))
	return nil
}
