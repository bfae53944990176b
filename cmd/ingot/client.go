package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"ingot/internal/config"
	"ingot/internal/ledger"
)

func newClientCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage client registrations and ingestion configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newClientAddCommand(ctx))
	cmd.AddCommand(newClientAddConfigCommand(ctx))
	cmd.AddCommand(newClientAddMappingCommand(ctx))
	cmd.AddCommand(newClientAddIntegrationCommand(ctx))
	return cmd
}

func newClientAddCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <client-schema>",
		Short: "Register a client schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *ledger.Store, logger *slog.Logger) error {
				client, err := store.CreateClient(cmd.Context(), args[0], name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered client %s (id %d)\n", client.Schema, client.ClientID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name for the client")
	return cmd
}

func newClientAddConfigCommand(ctx *commandContext) *cobra.Command {
	var (
		system       string
		sourceType   string
		logical      string
		targetSchema string
		targetTable  string
		sourceConfig string
	)

	cmd := &cobra.Command{
		Use:   "add-config <client-schema>",
		Short: "Register an ingestion config for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *ledger.Store, logger *slog.Logger) error {
				client, err := store.ClientBySchema(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				id, err := store.CreateIngestionConfig(cmd.Context(), ledger.IngestionConfig{
					ClientID:          client.ClientID,
					SourceSystem:      system,
					SourceType:        sourceType,
					LogicalSourceFile: logical,
					TargetSchema:      targetSchema,
					TargetTable:       targetTable,
					SourceConfig:      sourceConfig,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created config %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "Source system the files arrive from")
	cmd.Flags().StringVar(&sourceType, "type", "csv", "Source file type (csv, json)")
	cmd.Flags().StringVar(&logical, "logical", "", "Logical source file name to match")
	cmd.Flags().StringVar(&targetSchema, "target-schema", "", "Bronze target schema")
	cmd.Flags().StringVar(&targetTable, "target-table", "", "Bronze target table")
	cmd.Flags().StringVar(&sourceConfig, "source-config", "", "Serialized parser options carried into the batch manifest")
	for _, flag := range []string{"system", "logical", "target-schema", "target-table"} {
		cobra.CheckErr(cmd.MarkFlagRequired(flag))
	}
	return cmd
}

func newClientAddMappingCommand(ctx *commandContext) *cobra.Command {
	var (
		source   string
		target   string
		dataType string
		required bool
		ordinal  int
	)

	cmd := &cobra.Command{
		Use:   "add-mapping <config-id>",
		Short: "Register a column mapping for an ingestion config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("config id must be numeric: %w", err)
			}
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *ledger.Store, logger *slog.Logger) error {
				id, err := store.CreateColumnMapping(cmd.Context(), ledger.ColumnMapping{
					ConfigID:     configID,
					SourceColumn: source,
					TargetColumn: target,
					DataType:     dataType,
					IsRequired:   required,
					Ordinal:      ordinal,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created mapping %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Source column name")
	cmd.Flags().StringVar(&target, "target", "", "Target column name")
	cmd.Flags().StringVar(&dataType, "data-type", "text", "Declared data type")
	cmd.Flags().BoolVar(&required, "required", false, "Rows missing this column count as invalid")
	cmd.Flags().IntVar(&ordinal, "ordinal", 0, "Column position")
	for _, flag := range []string{"source", "target"} {
		cobra.CheckErr(cmd.MarkFlagRequired(flag))
	}
	return cmd
}

func newClientAddIntegrationCommand(ctx *commandContext) *cobra.Command {
	var (
		tableType string
		runOrder  int
		dependsOn []string
	)

	cmd := &cobra.Command{
		Use:   "add-integration <client-schema> <procedure-name>",
		Short: "Register a gold integration procedure for a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *ledger.Store, logger *slog.Logger) error {
				client, err := store.ClientBySchema(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				id, err := store.CreateIntegration(cmd.Context(), ledger.Integration{
					ClientID:      client.ClientID,
					ProcedureName: args[1],
					TableType:     tableType,
					RunOrder:      runOrder,
					Active:        true,
					DependsOn:     dependsOn,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created integration %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tableType, "type", "dimension", "Table type (dimension, fact)")
	cmd.Flags().IntVar(&runOrder, "run-order", 0, "Execution order within the tier")
	cmd.Flags().StringSliceVar(&dependsOn, "depends-on", nil, "Procedures this one depends on")
	return cmd
}
