package cli

import (
	"github.com/spf13/cobra"

	"github.com/PWRApex/english-prep-companion/core/profile"
)

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}
	cmd.AddCommand(a.profileShowCmd(), a.profileEditCmd())
	return cmd
}

func (a *app) profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			usr, err := a.requireUser()
			if err != nil {
				return err
			}
			p, err := a.c.Profile.Get(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if p == nil {
				printf(out, "email: %s\nname: %s\nlevel: %s (no profile yet)\n", usr.Email, orDash(usr.Name), profile.DefaultLevel)
				return nil
			}
			printf(out, "email: %s\nname: %s\nlevel: %s\n", p.Email, orDash(p.Name.String), p.EnglishLevel)
			return nil
		},
	}
}

func (a *app) profileEditCmd() *cobra.Command {
	var name, level string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change your name and English level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			up := profile.UpdateProfile{Name: name, EnglishLevel: profile.EnglishLevel(level)}
			// unset flags keep the current values
			if current, err := a.c.Profile.Get(cmd.Context()); err != nil {
				return err
			} else if current != nil {
				if !cmd.Flags().Changed("name") {
					up.Name = current.Name.String
				}
				if !cmd.Flags().Changed("level") {
					up.EnglishLevel = current.EnglishLevel
				}
			}
			_, err := a.c.Profile.Update(cmd.Context(), up)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&level, "level", "", "English level: A1, A2, B1, B2 or C1")
	return cmd
}
