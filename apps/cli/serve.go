package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	echoapi "github.com/PWRApex/english-prep-companion/apps/api/echo"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API, refreshing the session in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := a.c.Logger
			if err := a.c.StartScheduler(); err != nil {
				return err
			}

			server := echoapi.NewServer(echoapi.ServerDeps{Conf: a.conf, Logger: logger, Container: a.c})
			go server.Start()
			logger.Info(fmt.Sprintf("API listening on %s", a.conf.Server.Address))

			select {
			case err := <-server.Errors():
				return err
			case sig := <-server.ShutdownSignal():
				logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
			case <-cmd.Context().Done():
			}

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), a.conf.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
				return server.Close()
			}
			return nil
		},
	}
}
