package commands

import (
	"github.com/spf13/cobra"
)

func loginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL PASSWORD",
		Short: "Sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session.Login(cmd.Context(), args[0], args[1])
			if sess == nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", sess.DisplayName, sess.Email)
			return err
		},
	}
}

func registerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register NAME EMAIL PASSWORD",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session.Register(cmd.Context(), args[0], args[1], args[2])
			if sess == nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Welcome, %s. You are signed in.\n", sess.DisplayName)
			return err
		},
	}
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Signed out.\n")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := a.session.Current()
			if sess == nil {
				printf(cmd.OutOrStdout(), "Not signed in.\n")
				return nil
			}
			printf(cmd.OutOrStdout(), "%s <%s> (session expires %s)\n",
				sess.DisplayName, sess.Email, sess.ExpiresAt().Format("2006-01-02 15:04"))
			return nil
		},
	}
}
