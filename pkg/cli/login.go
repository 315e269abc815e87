package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harrisonrobin/applytrack/pkg/auth"
	"github.com/harrisonrobin/applytrack/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *app) loginCmd() *cobra.Command {
	var (
		email      string
		withGoogle bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the dashboard, or authorize Google Sheets with --google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if withGoogle {
				return a.loginGoogle(cmd)
			}
			m, err := a.sessions()
			if err != nil {
				return err
			}
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Email: ")
				if email, err = readLine(in); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			password, err := readPassword(in)
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			s, err := m.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", s.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (prompted when empty)")
	cmd.Flags().BoolVar(&withGoogle, "google", false, "Authorize Google Sheets access instead")
	return cmd
}

// loginGoogle drops the cached Google token and runs the browser flow again.
func (a *app) loginGoogle(cmd *cobra.Command) error {
	if err := auth.RemoveToken(); err != nil {
		return err
	}
	if _, err := auth.GetClient(cmd.Context(), auth.SheetsScopes, a.log); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	path, _ := auth.TokenPath()
	fmt.Fprintf(cmd.OutOrStdout(), "Google authorization saved to %s\n", path)
	return nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.sessions()
			if err != nil {
				return err
			}
			if err := m.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.sessions()
			if err != nil {
				return err
			}
			s, err := m.Current(cmd.Context())
			if errors.Is(err, session.ErrNotLoggedIn) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), token valid until %s\n",
				s.User.Email, s.User.ID, s.Token.Expiry.Local().Format("02/01/2006 15:04"))
			return nil
		},
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("could not read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line for piped input.
func readPassword(r *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if r.Buffered() == 0 && term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("could not read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(r)
}
