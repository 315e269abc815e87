package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/applytrack/pkg/applicant"
	"github.com/harrisonrobin/applytrack/pkg/clickup"
	"github.com/harrisonrobin/applytrack/pkg/config"
	"github.com/harrisonrobin/applytrack/pkg/logger"
	"github.com/harrisonrobin/applytrack/pkg/session"
	"github.com/harrisonrobin/applytrack/pkg/supabase"
	"github.com/spf13/cobra"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg *config.Config
	log *log.Logger

	logLevel string
	logJSON  bool
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "applytrack",
		Short:         "Browse and export job applications tracked in ClickUp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Log as JSON")

	root.AddCommand(
		a.listCmd(),
		a.exportCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.serveCmd(),
		a.configCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func (a *app) init(stderr io.Writer) error {
	a.log = logger.New(logger.Config{Level: a.logLevel, JSON: a.logJSON, Output: stderr})
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) fetcher() (*applicant.Fetcher, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	client := clickup.NewClient(clickup.Options{
		BaseURL: a.cfg.ClickUpBaseURL,
		Token:   a.cfg.ClickUpToken,
		TeamID:  a.cfg.TeamID,
		Timeout: a.cfg.HTTPTimeout,
	}, a.log)
	normalizer := applicant.NewNormalizer(a.cfg.Location(), a.log)
	return applicant.NewFetcher(client, normalizer, applicant.FetchOptions{
		SpaceID:  a.cfg.SpaceID,
		MaxPages: a.cfg.MaxPages,
	}, a.log), nil
}

// sessions returns the session manager, or an error when no Supabase project
// is configured.
func (a *app) sessions() (*session.Manager, error) {
	if !a.cfg.AuthEnabled() {
		return nil, fmt.Errorf("authentication is not configured, set SUPABASE_URL and SUPABASE_KEY")
	}
	path, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	auth := supabase.NewClient(a.cfg.SupabaseURL, a.cfg.SupabaseKey, a.cfg.HTTPTimeout)
	return session.NewManager(auth, path, a.log), nil
}

// requireSession enforces a valid login when authentication is configured.
func (a *app) requireSession(ctx context.Context) error {
	if !a.cfg.AuthEnabled() {
		return nil
	}
	m, err := a.sessions()
	if err != nil {
		return err
	}
	s, err := m.Current(ctx)
	if err != nil {
		return err
	}
	a.log.Debug("session ok", "email", s.User.Email)
	return nil
}

// loadRecords checks the session and fetches every record.
func (a *app) loadRecords(ctx context.Context) ([]applicant.Record, error) {
	if err := a.requireSession(ctx); err != nil {
		return nil, err
	}
	f, err := a.fetcher()
	if err != nil {
		return nil, err
	}
	return f.FetchAll(ctx)
}
