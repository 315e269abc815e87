package cli

import (
	"github.com/harrisonrobin/applytrack/pkg/server"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fetcher()
			if err != nil {
				return err
			}
			var verifier server.Verifier
			if a.cfg.AuthEnabled() {
				m, err := a.sessions()
				if err != nil {
					return err
				}
				verifier = m
			} else {
				a.log.Warn("SUPABASE_URL/SUPABASE_KEY not set, the API is unauthenticated")
			}
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			return server.New(f, verifier, a.log).Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from HTTP_ADDR, :8080)")
	return cmd
}
