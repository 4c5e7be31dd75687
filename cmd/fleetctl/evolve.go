package main

import (
	"context"
	"fmt"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/bootstrap"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/spf13/cobra"
)

var evolveCmd = &cobra.Command{
	Use:       "evolve <micro|tactical|strategic>",
	Short:     "Run one evolution cycle",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"micro", "tactical", "strategic"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cadence, ok := domain.ParseCadence(args[0])
		if !ok {
			return fmt.Errorf("unknown cadence %q", args[0])
		}
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) (interface{}, error) {
			return svc.Evolution.RunCycle(ctx, cadence)
		})
	},
}

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Sample worker health once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) (interface{}, error) {
			return svc.Heartbeat.Sample(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(evolveCmd, heartbeatCmd)
}
