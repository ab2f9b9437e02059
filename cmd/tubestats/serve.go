package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"thirdcoast.systems/tubestats/internal/web"
)

func newServeCmd(c *cli) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report as JSON over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				c.cfg.WebServerPort = port
			}

			ctx := cmd.Context()
			store, closeStore, err := c.openTables(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			e, err := web.NewWebserver(store, reportOptions(c))
			if err != nil {
				return err
			}

			addr := ":" + strconv.Itoa(c.cfg.WebServerPort)

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = e.Shutdown(shutdownCtx)
			}()

			slog.Info("Listening", "addr", addr)
			if err := e.Start(addr); err != nil {
				if errors.Is(err, http.ErrServerClosed) || ctx.Err() != nil {
					return nil
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (WEBSERVER_PORT)")

	return cmd
}
