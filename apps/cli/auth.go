package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PWRApex/english-prep-companion/core/session"
)

func (a *app) signInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin EMAIL",
		Short: "Sign in (the password is prompted when --password is not set)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := password(cmd, "password", "Password")
			if err != nil {
				return err
			}
			return a.c.Session.SignIn(cmd.Context(), session.Credentials{Email: args[0], Password: pwd})
		},
	}
	cmd.Flags().StringP("password", "p", "", "password")
	return cmd
}

func (a *app) signUpCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "signup EMAIL",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := password(cmd, "password", "Password")
			if err != nil {
				return err
			}
			return a.c.Session.SignUp(cmd.Context(), session.Registration{Email: args[0], Password: pwd, Name: name})
		},
	}
	cmd.Flags().StringP("password", "p", "", "password")
	cmd.Flags().StringVarP(&name, "name", "n", "", "full name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.c.Session.SignOut(cmd.Context())
		},
	}
}

func (a *app) resetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password EMAIL",
		Short: "Email a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.c.Session.ResetPassword(cmd.Context(), session.PasswordResetRequest{Email: args[0]})
		},
	}
}

func (a *app) recoverCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "recover --token TOKEN",
		Short: "Open the recovery session of a password reset link, then choose a new password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.c.Session.BeginRecovery(cmd.Context(), token); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Recovery session opened: run `englishprep update-password` to choose a new password.\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "token of the reset link")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (a *app) updatePasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-password",
		Short: "Set a new password from a recovery session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := password(cmd, "password", "New password")
			if err != nil {
				return err
			}
			confirm, err := password(cmd, "confirm", "Confirm password")
			if err != nil {
				return err
			}
			return a.c.Session.UpdatePassword(cmd.Context(), session.PasswordUpdate{Password: pwd, PasswordConfirm: confirm})
		},
	}
	cmd.Flags().StringP("password", "p", "", "new password")
	cmd.Flags().String("confirm", "", "new password again")
	return cmd
}

func (a *app) whoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			usr, err := a.requireUser()
			if err != nil {
				return err
			}
			sess := a.c.Session.Session()
			if sess == nil {
				return errors.New("no session")
			}
			printf(cmd.OutOrStdout(), "%s <%s>\n", orDash(usr.Name), usr.Email)
			printf(cmd.OutOrStdout(), "id: %s\nexpires: %s\n", usr.ID, sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			if sess.Recovery {
				printf(cmd.OutOrStdout(), "recovery session: choose a new password with `englishprep update-password`\n")
			}
			return nil
		},
	}
}
