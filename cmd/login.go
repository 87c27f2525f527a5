package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/homedash/internal/adapters/auth"
	"github.com/okian/homedash/internal/adapters/repository"
	"github.com/okian/homedash/internal/config"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Google Calendar",
		Long: `Without --code, prints the consent URL. Open it, approve access and run
login again with the authorization code shown by the relay page.

Examples:
  homedash login
  homedash login --code 4/0AbC...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			m, closeFn, err := openManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			return runLogin(ctx, cmd.OutOrStdout(), m, code)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code to exchange")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored Google credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			m, closeFn, err := openManager(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			printStatus(cmd.OutOrStdout(), m, time.Now())
			return nil
		},
	}
}

// loginManager is the part of auth.Manager the CLI drives.
type loginManager interface {
	BeginLogin() (state, authURL string)
	CompleteLogin(ctx context.Context, code string) (model.Credential, error)
	Credential() (model.Credential, bool)
}

func runLogin(ctx context.Context, out io.Writer, m loginManager, code string) error {
	if code == "" {
		_, url := m.BeginLogin()
		fmt.Fprintf(out, "Open this URL and approve access:\n\n  %s\n\nThen run: homedash login --code <code>\n", url)
		return nil
	}
	cred, err := m.CompleteLogin(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged in as %s\n", cred.Subject)
	return nil
}

func printStatus(out io.Writer, m loginManager, now time.Time) {
	cred, ok := m.Credential()
	if !ok {
		fmt.Fprintln(out, "Authentication: required")
		return
	}
	state := "valid"
	if !cred.Expiry().After(now) {
		state = "expired, refreshed on next use"
	}
	fmt.Fprintf(out, "Authentication: %s\nSubject: %s\nExpiry: %s\n", state, cred.Subject, cred.Expiry().Format(time.RFC3339))
}

func openManager(ctx context.Context, cfg *config.Config) (*auth.Manager, func(), error) {
	log := logger.Get()
	store, err := repository.Open(ctx, cfg.Storage.Path,
		repository.WithSecret(cfg.Storage.Secret),
		repository.WithLogger(log.Named("repository")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	relay, err := auth.NewRelayClient(cfg.Auth.RelayURL,
		auth.WithRelayHTTPClient(&http.Client{Timeout: cfg.Auth.Timeout}),
		auth.WithRelayLogger(log.Named("relay")),
	)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	m := auth.NewManager(store, relay,
		auth.WithOAuthClient(cfg.Auth.ClientID, cfg.Auth.RedirectURL, cfg.Auth.Scopes),
		auth.WithRefreshMargin(cfg.Auth.RefreshMargin),
		auth.WithLogger(log.Named("auth")),
	)
	if err := m.Load(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("load credential: %w", err)
	}
	return m, func() {
		_ = m.Close()
		_ = store.Close()
	}, nil
}
