package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"ingot/internal/config"
	"ingot/internal/ledger"
	"ingot/internal/stages"
)

// newStageCommands exposes each pipeline stage as its own subcommand. The
// orchestrator invokes these as child processes, and operators can run them
// by hand against a claimed file.
func newStageCommands(ctx *commandContext) []*cobra.Command {
	stageCommand := func(use, short string, fn func(*stages.Env, context.Context, string, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <client-schema> <file-name>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *ledger.Store, logger *slog.Logger) error {
					env := stages.NewEnv(cfg, store, logger)
					return fn(env, cmd.Context(), args[0], args[1])
				})
			},
		}
	}

	return []*cobra.Command{
		stageCommand("convert", "Convert a claimed source file to parquet",
			(*stages.Env).Convert),
		stageCommand("validate-mapping", "Validate a file's parquet columns against its column mapping",
			(*stages.Env).ValidateMapping),
		stageCommand("validate-rows", "Tally rows violating required columns (advisory)",
			(*stages.Env).ValidateRows),
		stageCommand("load", "Load a file's parquet artifact into its bronze table",
			(*stages.Env).Load),
	}
}
