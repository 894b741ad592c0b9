// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"cortex/cli/internal/auth"
	"cortex/cli/internal/backend"
	"cortex/cli/internal/httperrors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var whoamiJSON bool

// whoamiCmd asks the server who is logged in.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and their roles",
	Long: `The whoami command asks the Cortex server which user the stored session
belongs to and shows the user's id, name and roles, and whether the user is
an org admin or a super admin.

If the session has expired you are told to log in again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return runWhoami(cmd.Context(), a, whoamiJSON)
	},
}

func init() {
	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Print the raw user payload")
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(ctx context.Context, a *app, raw bool) error {
	s, err := loadSession(ctx, a)
	if err != nil || s == nil {
		return err
	}
	if raw {
		fmt.Fprintln(a.out, string(s.Raw))
		return nil
	}

	roles := "none"
	if len(s.Roles) > 0 {
		roles = strings.Join(s.Roles, ", ")
	}
	details := strings.Join([]string{
		"ID:          " + s.ID,
		"Name:        " + s.Name,
		"Roles:       " + roles,
		"Org admin:   " + yesNo(a.mgr.IsOrgAdmin(s)),
		"Super admin: " + yesNo(a.mgr.IsSuperAdmin(s)),
	}, "\n")
	pterm.Fprintln(a.out, pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("👤 "+displayName(s))).
		WithPadding(1).
		Sprint(details))
	return nil
}

// loadSession refreshes the session. A rejected session prints a hint and
// yields nil without error.
func loadSession(ctx context.Context, a *app) (*auth.Session, error) {
	s, err := a.mgr.Current(ctx)
	if backend.IsStatus(err, http.StatusUnauthorized) {
		fmt.Fprintln(a.out, "🔒 You're not logged in.")
		fmt.Fprintln(a.out, "   Run 'cortex login' or 'cortex sso' to get started.")
		return nil, nil
	}
	if err != nil {
		return nil, httperrors.Present(a.errOut, "loading your session", err)
	}
	return s, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
