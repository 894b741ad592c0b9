// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"

	"cortex/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI and server version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		runVersion(cmd.Context(), a)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// runVersion prints the CLI version and, when reachable, the server's.
func runVersion(ctx context.Context, a *app) {
	fmt.Fprintf(a.out, "cortex-cli %s\n", Version)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	st, err := a.api.Status(ctx)
	if err != nil {
		a.log.Debug("status request failed", a.log.Args("error", logging.Mask(err.Error())))
		fmt.Fprintf(a.out, "server     unknown (%s unreachable)\n", a.host())
		return
	}
	sso := "disabled"
	if st.SSOEnabled() {
		sso = "enabled"
	}
	fmt.Fprintf(a.out, "server     %s at %s\n", st.Version(), a.host())
	fmt.Fprintf(a.out, "sso        %s\n", sso)
}
