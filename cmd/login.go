// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"cortex/cli/internal/auth"
	cerrors "cortex/cli/internal/errors"
	"cortex/cli/internal/httperrors"
	"cortex/cli/internal/terminal"

	"github.com/spf13/cobra"
)

var (
	loginUser          string
	loginPasswordStdin bool
)

// loginCmd signs in with a username and password.
// The backend issues a session cookie that is kept in the OS keychain; the
// user profile is then loaded with a separate current-user request.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in with a username and password",
	Long: `The login command signs in to the Cortex server. It prompts for the
username and password unless they are given with --user and --password-stdin.
Usernames are case-insensitive and are sent in lower case.

The session cookie is stored in the OS keychain so later commands stay
signed in until you run 'cortex logout' or the server ends the session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		user, password, err := readCredentials(a, bufio.NewReader(cmd.InOrStdin()))
		if err != nil {
			return httperrors.Present(a.errOut, "reading credentials", err)
		}
		_, err = runLogin(cmd.Context(), a, user, password)
		return err
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUser, "user", "u", "", "Username (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from standard input")
	rootCmd.AddCommand(loginCmd)
}

// readCredentials collects the username and password from flags, stdin or
// an interactive prompt.
func readCredentials(a *app, in *bufio.Reader) (string, string, error) {
	user := loginUser
	if user == "" {
		if loginPasswordStdin {
			return "", "", cerrors.New(cerrors.Configuration, "--user is required with --password-stdin")
		}
		prompt := "Username: "
		line, err := terminal.ReadLine(a.out, in, prompt)
		if err != nil {
			return "", "", fmt.Errorf("read username: %w", err)
		}
		user = line
	}
	if auth.NormalizeUsername(user) == "" {
		return "", "", cerrors.New(cerrors.Configuration, "username must not be empty")
	}

	var password string
	switch {
	case loginPasswordStdin:
		line, err := in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		password = trimNewline(line)
	case a.interactive && terminal.IsInteractive(os.Stdin):
		prompt := "Password: "
		secret, err := terminal.ReadSecret(a.out, os.Stdin, prompt)
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		// Remove both prompts from the screen.
		terminal.ClearPreviousLines(a.out, len(prompt), terminal.Width(os.Stdout))
		terminal.ClearPreviousLines(a.out, len("Username: ")+len(user), terminal.Width(os.Stdout))
		password = secret
	default:
		return "", "", cerrors.New(cerrors.Configuration, "no terminal to prompt for a password; use --password-stdin")
	}
	return user, password, nil
}

// runLogin signs in and then loads the session, the two steps the backend
// requires before a user is considered logged in.
func runLogin(ctx context.Context, a *app, user, password string) (*auth.Session, error) {
	stop := startSpinner(a.out, a.interactive, "Signing in to "+a.host())
	_, err := a.mgr.Login(ctx, user, password)
	if err != nil {
		stop()
		return nil, httperrors.Present(a.errOut, "logging in", err)
	}

	s, err := a.mgr.Current(ctx)
	stop()
	if err != nil {
		return nil, httperrors.Present(a.errOut, "loading your session", err)
	}
	fmt.Fprintf(a.out, "✅ Logged in to %s as %s\n", a.host(), displayName(s))
	a.warnIfNotRemembered()
	return s, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
