// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Cortex CLI.
// It implements the authentication subcommands (login, logout, whoami, sso,
// roles) on top of the session manager using the Cobra CLI framework, and
// renders results and failures with pterm.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"cortex/cli/internal/auth"
	"cortex/cli/internal/backend"
	"cortex/cli/internal/config"
	"cortex/cli/internal/httperrors"
	"cortex/cli/internal/keychain"
	"cortex/cli/internal/logging"
	"cortex/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	flagURL     string
	flagTimeout int
	flagVerbose bool
)

// openStore opens the persistent cookie store. Replaced in tests.
var openStore = func(service string) (backend.CookieStore, error) {
	return keychain.NewManager(service)
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Cortex CLI for signing in to a Cortex server",
	Long: `Cortex is a command-line client for the Cortex identity backend.
It signs you in with a username and password or through SSO, keeps the
session cookie in the OS keychain, and answers who you are and which roles
you hold.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !httperrors.IsReported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Cortex server URL (overrides config and "+config.EnvURL+")")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 0, "Request timeout in seconds, 0 for none (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log requests and session changes to stderr")
}

// app holds everything a command needs to talk to the backend.
type app struct {
	cfg         config.Config
	log         *pterm.Logger
	api         backend.API
	mgr         *auth.Manager
	jar         *backend.PersistentJar
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

// newApp loads configuration, applies global flags and wires the manager.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, httperrors.Present(cmd.ErrOrStderr(), "loading configuration", err)
	}
	if cmd.Flags().Changed("url") {
		cfg.BaseURL = flagURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutSeconds = flagTimeout
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, httperrors.Present(cmd.ErrOrStderr(), "loading configuration", err)
	}

	log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	store, err := openStore(cfg.StoragePrefix)
	if err != nil {
		log.Warn("keychain unavailable, session will not be remembered", log.Args("error", err.Error()))
		store = &backend.MemoryStore{}
	}

	a, err := assemble(cfg, store, log, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, httperrors.Present(cmd.ErrOrStderr(), "restoring the session", err)
	}
	a.interactive = terminal.IsInteractive(os.Stdout)
	return a, nil
}

// assemble builds an app over store. A store that cannot be read is replaced
// by an in-memory one.
func assemble(cfg config.Config, store backend.CookieStore, log *pterm.Logger, out, errOut io.Writer) (*app, error) {
	jar, err := backend.NewPersistentJar(store, cfg.BaseURL)
	if err != nil {
		log.Warn("stored session unreadable, starting fresh", log.Args("error", logging.Mask(err.Error())))
		if jar, err = backend.NewPersistentJar(&backend.MemoryStore{}, cfg.BaseURL); err != nil {
			return nil, err
		}
	}

	api := backend.New(cfg.BaseURL, cfg.Endpoints,
		backend.WithDoer(backend.NewClient(jar)),
		backend.WithUserAgent("cortex-cli/"+Version),
	)
	mgr := auth.NewManager(api,
		auth.WithLogger(log),
		auth.WithTimeout(cfg.Timeout()),
	)
	log.Debug("client ready", log.Args("url", logging.Mask(cfg.BaseURL), "timeout", cfg.Timeout().String()))

	return &app{
		cfg:    cfg,
		log:    log,
		api:    api,
		mgr:    mgr,
		jar:    jar,
		out:    out,
		errOut: errOut,
	}, nil
}

// withTimeout bounds a direct backend call by the configured timeout.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout() <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Timeout())
}

// warnIfNotRemembered tells the user when the session cookie could not be
// written to the keychain, so the next command will not be signed in.
func (a *app) warnIfNotRemembered() {
	err := a.jar.Err()
	if err == nil {
		return
	}
	a.log.Debug("session cookie not stored", a.log.Args("error", logging.Mask(err.Error())))
	pterm.Fprintln(a.errOut, pterm.Sprintf("⚠️  This session will not be remembered: %s", logging.Excerpt(err.Error(), logging.MaxExcerpt)))
	pterm.Fprintln(a.errOut, "   Later commands will ask you to log in again. Check that the OS keychain is unlocked.")
}

// host is the server name shown in messages.
func (a *app) host() string {
	return httperrors.ExtractHostFromURL(a.cfg.BaseURL)
}

// displayName picks the friendliest identifier of s.
func displayName(s *auth.Session) string {
	if s.Name != "" {
		return s.Name
	}
	if s.ID != "" {
		return s.ID
	}
	return "unknown user"
}
