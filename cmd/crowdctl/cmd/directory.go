package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newUserCmd(opts *options) *cobra.Command {
	var attributes bool
	cmd := &cobra.Command{
		Use:   "user <username>",
		Short: "Show a Crowd user with its mapped roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.engine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			p, err := eng.UserByUsername(ctx, args[0], attributes)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().BoolVar(&attributes, "attributes", false, "include custom attributes")
	return cmd
}

func newGroupsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "groups <username>",
		Short: "List the nested groups of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			groups, err := cl.GroupsForUser(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"username": args[0], "groups": groups})
		},
	}
}

func newMembersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "members <group>",
		Short: "List the nested members of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			users, err := cl.UsersInGroup(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"group": args[0], "users": users})
		},
	}
}

func newRoleMembersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "role-members <role>",
		Short: "List the users holding a local role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.engine()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			users, err := eng.UsernamesByRole(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"role": args[0], "users": users})
		},
	}
}
