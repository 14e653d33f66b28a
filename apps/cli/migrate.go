package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PWRApex/english-prep-companion/storage/database"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo|reset|status|version",
		Short: "Run database migrations (sql backend)",
		Long:  "Run goose commands on the embedded migrations. Every start of the sql backend applies `up` already.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.c.DB == nil {
				return errors.Errorf("migrations need the sql backend (current: %s)", a.conf.Backend)
			}
			return database.RunMigrations(cmd.Context(), a.c.DB, args[0], args[1:]...)
		},
	}
}
