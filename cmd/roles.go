// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cortex/cli/internal/httperrors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// errNoRole makes 'roles check' exit non-zero without further output.
var errNoRole = &httperrors.Reported{Err: errors.New("none of the requested roles is held")}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Inspect the roles of the signed-in user",
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the roles of the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return runRolesList(cmd.Context(), a)
	},
}

var rolesCheckCmd = &cobra.Command{
	Use:   "check <role>...",
	Short: "Exit 0 if the signed-in user holds any of the roles",
	Long: `The check command refreshes the session and succeeds when the user holds at
least one of the given roles. Role names are matched exactly, including case.

It exits with status 1 when none of the roles is held or nobody is logged in,
which makes it usable in scripts:

  cortex roles check admin analyst && ./deploy.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return runRolesCheck(cmd.Context(), a, args)
	},
}

func init() {
	rolesCmd.AddCommand(rolesListCmd, rolesCheckCmd)
	rootCmd.AddCommand(rolesCmd)
}

func runRolesList(ctx context.Context, a *app) error {
	s, err := loadSession(ctx, a)
	if err != nil || s == nil {
		return err
	}
	if len(s.Roles) == 0 {
		fmt.Fprintf(a.out, "%s holds no roles\n", displayName(s))
		return nil
	}
	items := make([]pterm.BulletListItem, 0, len(s.Roles))
	for _, r := range s.Roles {
		items = append(items, pterm.BulletListItem{Level: 0, Text: r})
	}
	list, err := pterm.DefaultBulletList.WithItems(items).Srender()
	if err != nil {
		return err
	}
	pterm.Fprint(a.out, list)
	return nil
}

func runRolesCheck(ctx context.Context, a *app, roles []string) error {
	s, err := loadSession(ctx, a)
	if err != nil {
		return err
	}
	if s == nil {
		return errNoRole
	}
	if !a.mgr.HasRole(roles...) {
		fmt.Fprintf(a.out, "❌ %s holds none of: %s\n", displayName(s), strings.Join(roles, ", "))
		return errNoRole
	}
	fmt.Fprintf(a.out, "✅ %s holds a requested role\n", displayName(s))
	return nil
}
