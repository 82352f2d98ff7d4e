/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/manisense/constellation-push-dispatcher/internal/bootstrap"
	"github.com/manisense/constellation-push-dispatcher/internal/config"
	"github.com/manisense/constellation-push-dispatcher/internal/infra/persistence"
	"github.com/spf13/cobra"
)

var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Poll the outbox and deliver push notifications",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		log, err := bootstrap.BuildLogger(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "log error:", err)
			os.Exit(1)
		}
		if err := cfg.ValidatePush(); err != nil {
			fmt.Fprintln(os.Stderr, "push config error:", err)
			os.Exit(1)
		}

		db, err := persistence.New(cmd.Context(), persistence.Config{
			WriteDSN:          cfg.Database.WriteDSN,
			ReadDSN:           cfg.Database.ReadDSN,
			MaxConns:          cfg.Database.MaxConns,
			MinConns:          cfg.Database.MinConns,
			MaxConnLifetime:   cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "db error:", err)
			os.Exit(1)
		}
		defer db.Close()

		dispatcher, _, err := bootstrap.BuildServices(cfg, db, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "service error:", err)
			os.Exit(1)
		}

		log.Infof("dispatcher: started (batch=%d, interval=%s)", cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)

		ticker := time.NewTicker(cfg.Outbox.PollInterval)
		defer ticker.Stop()

		for {
			// Each tick is one independent run with the same semantics
			// as a POST / trigger.
			summary, err := dispatcher.Run(cmd.Context(), cfg.Outbox.BatchSize)
			if err != nil {
				log.WithError(err).Warn("dispatcher: run failed")
			} else if summary.Claimed > 0 {
				log.Infof("dispatcher: claimed=%d sent=%d failed=%d discarded=%d",
					summary.Claimed, summary.Sent, summary.Failed, summary.Discarded)
			}
			select {
			case <-cmd.Context().Done():
				return
			case <-ticker.C:
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(dispatcherCmd)
}
