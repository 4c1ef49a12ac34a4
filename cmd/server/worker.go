package main

import (
	"errors"

	"github.com/spf13/cobra"

	"booking-service/internal/mail"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued reminder emails when they fall due",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.cfg.RedisAddr == "" {
				return errors.New("worker requires REDIS_ADDR")
			}
			sender := rt.providerMailer()
			if sender == nil {
				return errors.New("worker requires RESEND_API_KEY")
			}

			rt.log.Info("starting reminder worker")
			return mail.NewWorker(rt.queueOpt(), sender, rt.log.Named("worker")).Run()
		},
	}
}
