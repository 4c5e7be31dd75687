// Command fleetctl runs fleet operations directly against the configured
// storage, without going through the HTTP server. It is meant for cron jobs
// and operators.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/bootstrap"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/config"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "Operate the worker fleet from the command line",
	Long: `fleetctl runs queue processing, evolution cycles and heartbeat sampling
against the same storage the server uses.

Every command prints its result as JSON on stdout.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to the config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withServices loads config, opens storage and hands the services to fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *bootstrap.Services) (interface{}, error)) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	out, err := fn(ctx, svc)
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
