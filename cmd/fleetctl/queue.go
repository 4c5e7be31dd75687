package main

import (
	"context"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/bootstrap"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/spf13/cobra"
)

var batchSize int

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and drain the task queue",
}

var queueProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Dequeue one batch of tasks and dispatch it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) (interface{}, error) {
			return svc.Queue.ProcessQueue(ctx, batchSize)
		})
	},
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show task counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) (interface{}, error) {
			counts, err := svc.Tasks.StatusCounts(ctx)
			if err != nil {
				return nil, err
			}
			return dto.NewQueueStatusResponse(counts), nil
		})
	},
}

func init() {
	queueProcessCmd.Flags().IntVarP(&batchSize, "batch-size", "n", 0, "tasks to dequeue (0 uses the configured default)")
	queueCmd.AddCommand(queueProcessCmd, queueStatusCmd)
	rootCmd.AddCommand(queueCmd)
}
