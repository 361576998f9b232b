package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func newSessionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create or inspect Crowd SSO sessions",
	}
	cmd.AddCommand(newSessionCreateCmd(opts), newSessionGetCmd(opts))
	return cmd
}

func newSessionCreateCmd(opts *options) *cobra.Command {
	var (
		password   string
		remoteAddr string
		trusted    bool
	)
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Open a Crowd SSO session and print its token",
		Long: `Abre una sesión SSO en Crowd. El password se toma de --password o de
CROWDCTL_PASSWORD; con --trusted se crea sin validar password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("CROWDCTL_PASSWORD")
			}
			if !trusted && password == "" {
				return errors.New("password required (--password or CROWDCTL_PASSWORD), or use --trusted")
			}

			cl, _, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var token string
			if trusted {
				token, err = cl.CreateSessionWithoutPassword(ctx, args[0], remoteAddr)
			} else {
				token, err = cl.CreateSession(ctx, args[0], password, remoteAddr)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"username": args[0], "token": token})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "user password (env CROWDCTL_PASSWORD)")
	cmd.Flags().StringVar(&remoteAddr, "remote-addr", "127.0.0.1", "client address reported to Crowd")
	cmd.Flags().BoolVar(&trusted, "trusted", false, "create the session without validating the password")
	return cmd
}

func newSessionGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <token>",
		Short: "Resolve an SSO token to its user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			u, err := cl.UserByToken(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"username":     u.Name,
				"display_name": u.DisplayName,
				"email":        u.Email,
				"active":       u.Active,
			})
		},
	}
}
