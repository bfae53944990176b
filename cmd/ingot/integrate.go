package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ingot/internal/config"
	"ingot/internal/integration"
	"ingot/internal/ledger"
)

func newIntegrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "integrate <client-schema>",
		Short: "Run gold integration procedures for a client's latest batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *ledger.Store, logger *slog.Logger) error {
				logger = logger.With("run_id", uuid.NewString())

				registry := integration.NewRegistry()
				if err := integration.LoadSQLProcedures(registry, cfg.Paths.ProceduresDir); err != nil {
					return err
				}

				scheduler := integration.New(cfg, store, registry, logger)
				result, err := scheduler.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d succeeded, %d failed, %d skipped\n",
					result.BatchID, result.Succeeded, result.Failed, result.Skipped)
				if !result.Clean() {
					return fmt.Errorf("integration for batch %s did not complete cleanly", result.BatchID)
				}
				return nil
			})
		},
	}
}
