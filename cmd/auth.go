package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/grovetools/inbox/cli"
	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/logging"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/grovetools/inbox/pkg/session"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var (
		token    string
		noVerify bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the auth token of a Lemmy account",
		Long: `Store a Lemmy JWT in the token file. A running daemon picks it up
without a restart. Pass --token - to read the token from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "-" {
				read, err := readToken(cmd.InOrStdin())
				if err != nil {
					return err
				}
				token = read
			}
			if token == "" {
				return errors.New(errors.ErrCodeInvalidInput, "--token is required")
			}

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			store := session.NewStore(cfg.TokenFile, logging.NewLogger("session"))

			if !noVerify {
				probe := session.NewStore("", logging.NewLogger("session"))
				if err := probe.Login(token); err != nil {
					return err
				}
				client, err := lemmy.NewClient(cfg.Instance, lemmy.WithTimeout(cfg.RequestTimeout))
				if err != nil {
					return err
				}
				if err := probe.Refresh(cmd.Context(), client); err != nil {
					return err
				}
				defer printWhoami(cmd, probe.Current())
			}

			if err := store.Login(token); err != nil {
				return err
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).
				Success(fmt.Sprintf("Token saved to %s", store.TokenFile()))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "JWT issued by the instance, or - for stdin")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Save the token without checking it against the instance")
	return cmd
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read token from stdin")
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored auth token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			store := session.NewStore(cfg.TokenFile, logging.NewLogger("session"))
			if err := store.Clear(); err != nil {
				return err
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("Logged out")
			return nil
		},
	}
}

// whoamiOutput is the --json form of inboxd whoami.
type whoamiOutput struct {
	LoggedIn    bool     `json:"logged_in"`
	PersonID    int      `json:"person_id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Admin       bool     `json:"admin"`
	Moderator   bool     `json:"moderator"`
	Communities []string `json:"communities,omitempty"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account and its roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.store.Refresh(cmd.Context(), rt.client); err != nil {
				return err
			}
			printWhoami(cmd, rt.store.Current())
			return nil
		},
	}
}

func printWhoami(cmd *cobra.Command, snap session.Snapshot) {
	out := whoamiOutput{
		LoggedIn:  snap.LoggedIn(),
		PersonID:  snap.PersonID,
		Admin:     snap.IsAdmin(),
		Moderator: snap.IsModerator(),
	}
	if snap.MyUser != nil {
		out.Name = snap.MyUser.LocalUserView.Person.Name
	}
	for _, m := range snap.Moderates() {
		out.Communities = append(out.Communities, m.Community.Name)
	}
	if !snap.ExpiresAt.IsZero() {
		out.ExpiresAt = snap.ExpiresAt.Format("2006-01-02 15:04:05Z07:00")
	}

	if cli.GetOptions(cmd).JSONOutput {
		_ = printJSON(cmd.OutOrStdout(), out)
		return
	}

	pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
	if !out.LoggedIn {
		pretty.WarnPretty("Not logged in")
		return
	}
	pretty.Field("Account", out.Name)
	pretty.Field("Person ID", out.PersonID)
	pretty.Field("Admin", out.Admin)
	pretty.Field("Moderator", out.Moderator)
	if len(out.Communities) > 0 {
		pretty.Field("Moderates", strings.Join(out.Communities, ", "))
	}
	if out.ExpiresAt != "" {
		pretty.Field("Expires", out.ExpiresAt)
	}
}
