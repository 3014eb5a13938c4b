package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/spf13/cobra"
)

// loginCommand exchanges a username and password for stored tokens.
func loginCommand(rt *runtime) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store credentials",
		Long:  "Log in with a username and password. The password is read from stdin when --password is omitted.",
		Example: color.HiBlackString(`  # Prompt for the password.
  hubctl login -u marie

  # Non-interactive, e.g. in scripts.
  echo "$PASSWORD" | hubctl login -u marie`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				p, err := readSecret(cmd, "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			client, err := rt.client()
			if err != nil {
				return err
			}
			resp, err := client.Login(cmd.Context(), username, password)
			if err != nil {
				var httpErr *hubsdk.HTTPError
				if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
					// Not an expired session: the credentials were wrong.
					return fmt.Errorf("login failed: %s", httpErr.Message)
				}
				return err
			}

			name := username
			if resp.User != nil {
				name = fmt.Sprintf("%s (%s)", resp.User.FullName(), resp.User.Username)
			}
			success(cmd.OutOrStdout(), "Logged in as %s", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")

	return cmd
}

// readSecret reads one line from the command's stdin after printing prompt
// to stderr.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

// logoutCommand ends the session on the server and clears stored tokens.
func logoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// registerCommand creates an account.
func registerCommand(rt *runtime) *cobra.Command {
	var req hubsdk.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Example: color.HiBlackString(`  hubctl register -u marie -e marie@example.com --first-name Marie
  hubctl register -u claire -e claire@example.com --role teacher`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Username == "" || req.Email == "" {
				return errors.New("--username and --email are required")
			}
			if req.Password == "" {
				p, err := readSecret(cmd, "Choose a password: ")
				if err != nil {
					return err
				}
				req.Password = p
			}

			client, err := rt.client()
			if err != nil {
				return err
			}
			user, err := client.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Account %s created, run %s to continue",
				user.Username, color.HiCyanString("hubctl login -u "+user.Username))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.Username, "username", "u", "", "username")
	f.StringVarP(&req.Email, "email", "e", "", "email address")
	f.StringVarP(&req.Password, "password", "p", "", "password (prompted when omitted)")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.StringVar(&req.Role, "role", "", "student or teacher (default student)")

	return cmd
}

// whoamiCommand asks the server who the stored token belongs to.
func whoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}
			user, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			field(out, "Name", user.FullName())
			field(out, "Username", user.Username)
			field(out, "Email", orDash(user.Email))
			field(out, "Role", orDash(user.Role))
			return nil
		},
	}
}

// statusCommand reports local credential state without calling the server.
func statusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored credential state (offline)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.application()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			cfg := a.Config()

			field(out, "API", a.Client().BaseURL())
			field(out, "Store", cfg.Store)
			field(out, "Profile", cfg.Profile)

			ok, err := a.Client().IsAuthenticated(ctx)
			if err != nil {
				return err
			}
			if !ok {
				failure(out, "Not logged in")
				return nil
			}

			if info, err := a.Store().UserInfo(ctx); err == nil && info != nil {
				var u hubsdk.User
				if json.Unmarshal(info, &u) == nil {
					field(out, "User", fmt.Sprintf("%s (%s)", u.FullName(), u.Username))
				}
			}

			refresh, err := a.Store().RefreshToken(ctx)
			if err != nil {
				return err
			}
			field(out, "Refreshable", refresh != "")

			info, err := a.Client().TokenInfo(ctx)
			if err != nil {
				warn(out, "Stored access token is unreadable: %v", err)
				return nil
			}
			field(out, "User ID", orDash(info.UserID))
			field(out, "Expires", formatTime(info.ExpiresAt))

			switch {
			case !info.Expired:
				success(out, "Logged in, access token valid for %s", time.Until(info.ExpiresAt).Round(time.Second))
			case refresh != "":
				warn(out, "Access token expired, it will be refreshed on the next request")
			default:
				failure(out, "Access token expired, run %s", color.HiCyanString("hubctl login"))
			}
			return nil
		},
	}
}
