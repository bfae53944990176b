package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ingot/internal/config"
	"ingot/internal/ledger"
	"ingot/internal/orchestrator"
)

func newOrchestrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "orchestrate [client-schema] [mode]",
		Short: "Run a batch ingestion pass (every active client in start mode when called bare)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return errors.New("mode required (start, restart, reprocessing)")
			}
			mode := orchestrator.ModeStart
			if len(args) == 2 {
				parsed, err := orchestrator.ParseMode(args[1])
				if err != nil {
					return err
				}
				mode = parsed
			}
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *ledger.Store, logger *slog.Logger) error {
				logger = logger.With("run_id", uuid.NewString())
				runner := orchestrator.NewExecRunner(cfg.Executors, ctx.configPath,
					time.Duration(cfg.Workflow.ExecutorTimeoutSec)*time.Second)
				orch := orchestrator.New(cfg, store, runner, logger)

				var targets []string
				if len(args) == 2 {
					targets = []string{args[0]}
				} else {
					clients, err := store.ListClients(cmd.Context())
					if err != nil {
						return err
					}
					for _, c := range clients {
						if c.Active {
							targets = append(targets, c.Schema)
						}
					}
					if len(targets) == 0 {
						return errors.New("no active clients registered")
					}
				}

				out := cmd.OutOrStdout()
				failed := 0
				for _, schema := range targets {
					result, err := orch.Run(cmd.Context(), schema, mode)
					if err != nil {
						if len(targets) == 1 {
							return err
						}
						fmt.Fprintf(out, "%s: %v\n", schema, err)
						failed++
						continue
					}
					if result.NoFiles {
						fmt.Fprintf(out, "%s: batch %s, no files to process\n", schema, result.BatchID)
						failed++
						continue
					}
					fmt.Fprintf(out, "%s: batch %s, %d processed, %d failed\n",
						schema, result.BatchID, result.Processed, result.Failed)
					if result.Failed > 0 {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d clients finished with failures", failed, len(targets))
				}
				return nil
			})
		},
	}
}
