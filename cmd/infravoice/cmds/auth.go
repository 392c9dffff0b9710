package cmds

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-go-golems/infravoice/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string
	var rememberMe bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				password, err = readSecretLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			if email == "" || password == "" {
				return errors.New("--email and a password are required")
			}
			if err := a.Auth.Login(cmd.Context(), email, password, rememberMe); err != nil {
				return commandError(err, "login")
			}
			u := a.Auth.User()
			scope := credentials.ScopeSession
			if rememberMe {
				scope = credentials.ScopePersistent
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s> (%s credentials)\n", u.Username, u.Email, scope)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when empty)")
	cmd.Flags().BoolVar(&rememberMe, "remember-me", false, "Keep the session across terminal sessions")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				password, err = readSecretLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			u, err := a.Auth.Signup(cmd.Context(), email, username, password)
			if err != nil {
				return commandError(err, "signup")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created account %s <%s>. Run `infravoice login --email %s` next.\n", u.Username, u.Email, u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			if err := a.Auth.Logout(cmd.Context()); err != nil {
				// Local credentials are gone either way.
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: backend logout failed: %v\n", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user and token expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			if err := a.Auth.LoadUser(cmd.Context()); err != nil {
				return commandError(err, "load user")
			}
			u := a.Auth.User()
			if u == nil {
				return errors.New("not logged in")
			}
			scope, err := a.Creds.Scope()
			if err != nil {
				return err
			}

			out := map[string]any{
				"user":  u,
				"scope": scope,
			}
			if tok, _ := a.Creds.AccessToken(); tok != "" {
				if info, err := credentials.Inspect(tok); err == nil {
					out["token"] = info
					out["token_expired"] = info.Expired(time.Now())
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			rt, err := a.Creds.RefreshToken()
			if err != nil {
				return errors.Wrap(err, "read credentials")
			}
			if rt == "" {
				return errors.New("no refresh token stored; run `infravoice login` first")
			}
			t, err := a.Services.Auth.Refresh(cmd.Context(), rt)
			if err != nil {
				return commandError(err, "refresh")
			}
			if err := a.Creds.UpdateTokens(t); err != nil {
				return errors.Wrap(err, "save tokens")
			}
			msg := "Refreshed access token"
			if info, err := credentials.Inspect(t.AccessToken); err == nil && !info.ExpiresAt.IsZero() {
				msg += fmt.Sprintf(", expires %s", info.ExpiresAt.Local().Format(time.RFC3339))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
