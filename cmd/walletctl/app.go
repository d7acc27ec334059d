package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"cert_registry/internal/client"
	"cert_registry/internal/identity"

	"github.com/spf13/cobra"
)

// providerOpener returns a wallet provider and a function releasing it.
type providerOpener func(ctx context.Context, url string, poll time.Duration) (identity.Provider, func(), error)

func dialProvider(ctx context.Context, url string, poll time.Duration) (identity.Provider, func(), error) {
	p, err := identity.DialRPC(ctx, url, poll)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

// app is the wiring one command invocation needs.
type app struct {
	out      io.Writer
	settings identity.Storage
	wallet   *identity.Wallet
	session  *identity.Session
	api      *client.Client
	release  func()
}

func newApp(cmd *cobra.Command, opts *options, open providerOpener) (*app, error) {
	provider, release, err := open(cmd.Context(), opts.rpcURL, opts.pollInterval)
	if err != nil {
		return nil, fmt.Errorf("connect to wallet: %w", err)
	}

	out := cmd.OutOrStdout()
	settings := identity.NewFileStorage(opts.settingsPath)
	wallet := identity.NewWallet(provider, identity.LoadAdminAddress(opts.adminAddress, settings))
	notifier := identity.NotifierFunc(func(level identity.Level, message string) {
		fmt.Fprintf(out, "[%s] %s\n", level, message)
	})

	return &app{
		out:      out,
		settings: settings,
		wallet:   wallet,
		session:  identity.NewSession(wallet, notifier),
		api:      client.New(opts.apiURL),
		release:  release,
	}, nil
}

func (a *app) Close() {
	if a.release != nil {
		a.release()
	}
}

// connect connects the session and requires the given panel, if any.
func (a *app) connect(ctx context.Context, want identity.Panel) (identity.State, error) {
	state, err := a.session.Connect(ctx)
	if err != nil {
		return state, err
	}
	if want != "" && state.Panel() != want {
		return state, fmt.Errorf("the %s panel is not available to %s (%s)", want, state.Address, state.Role)
	}
	return state, nil
}

// withApp builds the app for a command and releases it afterwards.
func withApp(opts *options, open providerOpener, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, opts, open)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
