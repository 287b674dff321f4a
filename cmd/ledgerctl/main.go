// Command ledgerctl runs ledger maintenance jobs from the shell: schema
// migration, balance audits, order replay and the worker jobs on demand.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"affiliate-ledger/config"
	"affiliate-ledger/internal/database"
)

var Version = "dev"

func main() {
	cfg := config.LoadConfig()
	a := &app{
		cfg: cfg,
		log: slog.New(slog.NewTextHandler(os.Stderr, nil)),
		openDB: func(context.Context) (*gorm.DB, error) {
			return database.NewConnection(cfg.DB.DSN)
		},
		openRedis: func(ctx context.Context) (*redis.Client, error) {
			return config.DialRedis(ctx, cfg.Redis)
		},
	}

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "ledgerctl - affiliate commission ledger maintenance",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(auditCmd(a))
	rootCmd.AddCommand(submitCmd(a))
	rootCmd.AddCommand(autoApproveCmd(a))
	rootCmd.AddCommand(retryOverridesCmd(a))
	rootCmd.AddCommand(leaderboardCmd(a))
	rootCmd.AddCommand(tokenCmd(a))
	return rootCmd
}
