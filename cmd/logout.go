// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"

	"cortex/cli/internal/httperrors"

	"github.com/spf13/cobra"
)

// logoutCmd ends the session on the server and forgets the stored cookie.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session on the server",
	Long: `The logout command asks the Cortex server to end the current session and,
once the server confirms, removes the session cookie from the OS keychain.

If the server cannot be reached the stored session is kept, since it may
still be valid on the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return runLogout(cmd.Context(), a)
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(ctx context.Context, a *app) error {
	if err := a.mgr.Logout(ctx); err != nil {
		return httperrors.Present(a.errOut, "logging out", err)
	}
	if err := a.jar.Clear(); err != nil {
		a.log.Warn("could not remove the stored session cookie", a.log.Args("error", err.Error()))
	}
	fmt.Fprintln(a.out, "✅ Logged out")
	return nil
}
