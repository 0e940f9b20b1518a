package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/app"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	providerinfra "github.com/wekeepgrowing/grantpay/internal/infrastructure/provider"
	"github.com/wekeepgrowing/grantpay/pkg/messaging"
)

const dateLayout = "2006-01-02"

func reconcileCmd(opts *rootOptions) *cobra.Command {
	var (
		date  string
		scope string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile one day of payments against the settlement feed",
		Long: `Reconcile matches SUBMITTED and COMPLETED payments created on the given
day against settlement records of the same day and stores the report.

Examples:
  grantpayctl reconcile
  grantpayctl reconcile --date 2024-03-01 --scope eft`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := reportDate(date, time.Now())
			if err != nil {
				return err
			}

			env, err := opts.setup()
			if err != nil {
				return err
			}
			defer env.close()

			useCases, err := app.NewUseCases(env.cfg, env.repos, providerinfra.NewRegistry(), nil, env.logger)
			if err != nil {
				return err
			}

			report, err := useCases.Reconciliation.Reconcile(cmd.Context(), day, scope)
			if err != nil {
				return fmt.Errorf("reconciliation failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to reconcile, YYYY-MM-DD (default: yesterday, UTC)")
	cmd.Flags().StringVar(&scope, "scope", entity.ReconciliationScopeAll, "eft, card, cash or all")

	return cmd
}

// reportDate parses value, defaulting to the UTC day before now.
func reportDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.UTC().AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}

func sweepCmd(opts *rootOptions) *cobra.Command {
	var (
		staleAfter time.Duration
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-verify payments stuck in PENDING or SUBMITTED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.setup()
			if err != nil {
				return err
			}
			defer env.close()

			if staleAfter > 0 {
				env.cfg.Sweeper.StaleAfter = staleAfter
			}
			if limit > 0 {
				env.cfg.Sweeper.Limit = limit
			}

			providers, err := providerinfra.NewFactory(env.cfg.Providers, env.logger)
			if err != nil {
				return err
			}

			var publisher messaging.Publisher
			if env.cfg.Redis.Enabled() {
				client, err := messaging.NewRedisClient(env.cfg.Redis.Addr, env.cfg.Redis.Password, env.cfg.Redis.DB)
				if err != nil {
					env.logger.Warn("Redis unavailable, status events are discarded", zap.Error(err))
				} else {
					defer client.Close()
					publisher = client
				}
			}

			useCases, err := app.NewUseCases(env.cfg, env.repos, providers, publisher, env.logger)
			if err != nil {
				return err
			}

			result, err := useCases.Sweeper.SweepPending(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().DurationVar(&staleAfter, "stale-after", 0, "minimum time since the last update (default: sweeper.stale_after)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum payments per run (default: sweeper.limit)")

	return cmd
}

func ingestStatementCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest-statement <file.csv>",
		Short: "Load a bank settlement statement into the settlement feed",
		Long: `The statement is a CSV file with the columns
reference,amount,settlement_date,method. The header row is optional and a
file is loaded at most once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read statement: %w", err)
			}

			env, err := opts.setup()
			if err != nil {
				return err
			}
			defer env.close()

			useCases, err := app.NewUseCases(env.cfg, env.repos, providerinfra.NewRegistry(), nil, env.logger)
			if err != nil {
				return err
			}

			statement, err := useCases.Statements.Ingest(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), statement)
		},
	}
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.setup()
			if err != nil {
				return err
			}
			defer env.close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
