package commands

import (
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// profilesCommand groups the commands that manage stored profiles.
func profilesCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage credential profiles in the local database",
		Example: color.HiBlackString(`  hubctl profiles list
  hubctl profiles delete staging`),
	}
	cmd.AddCommand(
		profilesListCommand(rt),
		profilesDeleteCommand(rt),
	)
	return cmd
}

func profilesListCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles holding stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.application()
			if err != nil {
				return err
			}
			profiles, err := a.Profiles(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(profiles) == 0 {
				warn(out, "No stored profiles")
				return nil
			}
			current := a.Config().Profile
			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				mark := ""
				if p == current {
					mark = "*"
				}
				rows = append(rows, []string{mark, p})
			}
			return table(out, []string{"", "PROFILE"}, rows)
		},
	}
}

func profilesDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete the stored credentials of a profile",
		Long:  "Delete the stored credentials of a profile. The server session is not ended; use logout for that.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.application()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			name := args[0]

			profiles, err := a.Profiles(ctx)
			if err != nil {
				return err
			}
			if !slices.Contains(profiles, name) {
				warn(cmd.OutOrStdout(), "Profile %s has no stored credentials", name)
				return nil
			}
			if err := a.DeleteProfile(ctx, name); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted profile %s", name)
			return nil
		},
	}
}
