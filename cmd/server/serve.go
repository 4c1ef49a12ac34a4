package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"booking-service/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the booking HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := rt.openDB(ctx); err != nil {
				return err
			}
			if err := rt.openRedis(ctx); err != nil {
				return err
			}

			if rt.cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}
			a, err := rt.buildApp(ctx)
			if err != nil {
				return err
			}
			return server.Run(ctx, rt.cfg.AppPort, a.Router(), rt.log)
		},
	}
}
