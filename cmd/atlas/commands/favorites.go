package commands

import (
	"github.com/spf13/cobra"
)

// favorites: every subcommand needs a session.
func favoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage your favorite countries",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra runs only the nearest PersistentPreRunE, so chain to root.
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			_, err := a.session.RequireSession()
			return err
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorites by name",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				entries := a.favorites.Sorted()
				if len(entries) == 0 {
					printf(cmd.OutOrStdout(), "No favorites yet.\n")
					return nil
				}
				for _, e := range entries {
					printf(cmd.OutOrStdout(), "%s  %s (%s)\n", e.Code, e.Name, e.Region)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add CODE",
			Short: "Add a country",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				country, err := a.directory.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := a.favorites.Add(cmd.Context(), country); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "Added %s.\n", country.CommonName)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove CODE",
			Short: "Remove a country",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.favorites.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
