package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/rememberme"
	"github.com/spf13/cobra"
)

func newCookieCmd(opts *options) *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "cookie",
		Short: "Encode or decode remember-me cookie values",
	}
	cmd.PersistentFlags().StringVar(&secret, "secret", "", "signing secret (env REMEMBER_ME_SIGNATURE, else config)")

	resolve := func() (string, error) {
		if secret != "" {
			return secret, nil
		}
		if s := os.Getenv("REMEMBER_ME_SIGNATURE"); s != "" {
			return s, nil
		}
		cfg, err := opts.config()
		if err != nil {
			return "", err
		}
		if cfg.RememberMe.Signature == "" {
			return "", errors.New("no remember-me signature configured")
		}
		return cfg.RememberMe.Signature, nil
	}

	var lifetime time.Duration
	encode := &cobra.Command{
		Use:   "encode <username>",
		Short: "Sign a remember-me value for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolve()
			if err != nil {
				return err
			}
			expires := time.Now().Add(lifetime).Unix()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"username": args[0],
				"expires":  expires,
				"value":    rememberme.Encode(args[0], expires, key),
			})
		},
	}
	encode.Flags().DurationVar(&lifetime, "lifetime", 14*24*time.Hour, "validity of the value")

	decode := &cobra.Command{
		Use:   "decode <value>",
		Short: "Validate a remember-me value and print its user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolve()
			if err != nil {
				return err
			}
			user, expires, err := rememberme.Decode(args[0], key, time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"username": user,
				"expires":  time.Unix(expires, 0).UTC().Format(time.RFC3339),
			})
		},
	}

	cmd.AddCommand(encode, decode)
	return cmd
}
