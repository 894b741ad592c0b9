// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"

	cerrors "cortex/cli/internal/errors"
	"cortex/cli/internal/httperrors"
	"cortex/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	ssoCode      string
	ssoNoBrowser bool
)

// ssoCmd runs the single sign-on exchange.
var ssoCmd = &cobra.Command{
	Use:   "sso",
	Short: "Sign in through the identity provider",
	Long: `The sso command signs in through the identity provider configured on the
Cortex server.

Without --code it asks the server where to sign in, prints that link and
opens it in your browser. After signing in there, run the command again
with the code the identity provider gave you:

  cortex sso --code <code>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return runSSO(cmd.Context(), a, ssoCode, !ssoNoBrowser)
	},
}

func init() {
	ssoCmd.Flags().StringVar(&ssoCode, "code", "", "Code returned by the identity provider")
	ssoCmd.Flags().BoolVar(&ssoNoBrowser, "no-browser", false, "Print the sign-in link without opening a browser")
	rootCmd.AddCommand(ssoCmd)
}

func runSSO(ctx context.Context, a *app, code string, browser bool) error {
	if code == "" {
		sctx, cancel := a.withTimeout(ctx)
		st, err := a.api.Status(sctx)
		cancel()
		if err != nil {
			a.log.Debug("status check failed", a.log.Args("error", logging.Mask(err.Error())))
		} else if !st.SSOEnabled() {
			return httperrors.Present(a.errOut, "signing in with SSO",
				cerrors.New(cerrors.Configuration, "SSO is not enabled on "+a.host()))
		}
	}

	stop := startSpinner(a.out, a.interactive, "Contacting "+a.host())
	res, err := a.mgr.SSOLogin(ctx, code)
	stop()
	if err != nil {
		return httperrors.Present(a.errOut, "signing in with SSO", err)
	}

	if loc := res.Location(); loc != "" {
		fmt.Fprintln(a.out, "Open this link to sign in:")
		fmt.Fprintf(a.out, "%s\n\n", loc)
		if browser {
			if err := openBrowser(loc); err != nil {
				a.log.Debug("browser not opened", a.log.Args("error", err.Error()))
			}
		}
		fmt.Fprintln(a.out, "Then run: cortex sso --code <code>")
		return nil
	}

	s, err := a.mgr.Current(ctx)
	if err != nil {
		return httperrors.Present(a.errOut, "loading your session", err)
	}
	fmt.Fprintf(a.out, "✅ Logged in to %s as %s\n", a.host(), displayName(s))
	a.warnIfNotRemembered()
	return nil
}
