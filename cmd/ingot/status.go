package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"ingot/internal/config"
	"ingot/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status [client-schema]",
		Short: "Show registered clients, recent job executions, and a client's last batch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *ledger.Store, logger *slog.Logger) error {
				clients, err := store.ListClients(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Ledger: %s\n\n", store.Path())

				clientRows := make([][]string, 0, len(clients))
				for _, c := range clients {
					lastBatch := c.LastBatchID
					if lastBatch == "" {
						lastBatch = "-"
					}
					clientRows = append(clientRows, []string{c.Schema, c.Name, lastBatch, yesNo(c.Active)})
				}
				fmt.Fprintln(out, "Clients")
				writeTable(out, []string{"SCHEMA", "NAME", "LAST BATCH", "ACTIVE"}, clientRows, nil)

				jobs, err := store.RecentJobs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				jobRows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					jobRows = append(jobRows, []string{
						j.JobName, j.ClientSchema, j.BatchID, j.Status, j.StartedAt, j.ErrorMessage, j.FileName,
					})
				}
				fmt.Fprintln(out, "\nRecent jobs")
				writeTable(out, []string{"JOB", "CLIENT", "BATCH", "STATUS", "STARTED", "MESSAGE", "FILE"}, jobRows, nil)

				if len(args) == 1 {
					client, err := store.ClientBySchema(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if client.LastBatchID == "" {
						fmt.Fprintf(out, "\nClient %s has no batches yet\n", client.Schema)
						return nil
					}
					audits, err := store.BatchAudits(cmd.Context(), client.ClientID, client.LastBatchID)
					if err != nil {
						return err
					}
					auditRows := make([][]string, 0, len(audits))
					for _, a := range audits {
						auditRows = append(auditRows, []string{
							a.PhysicalFileName,
							a.ConvertStatus,
							a.MappingValidationStatus,
							a.RowValidationStatus,
							a.LoadStatus,
							a.BatchStatus,
							strconv.FormatInt(a.TotalRows, 10),
							strconv.FormatInt(a.InvalidRows, 10),
						})
					}
					fmt.Fprintf(out, "\nBatch %s for %s\n", client.LastBatchID, client.Schema)
					writeTable(out, []string{"FILE", "CONVERT", "MAPPING", "ROWS", "LOAD", "BATCH", "TOTAL", "INVALID"}, auditRows, nil)

					outcomes, err := store.IntegrationOutcomes(cmd.Context(), client.ClientID, client.LastBatchID)
					if err != nil {
						return err
					}
					if len(outcomes) > 0 {
						procedures := make([]string, 0, len(outcomes))
						for name := range outcomes {
							procedures = append(procedures, name)
						}
						sort.Strings(procedures)
						integrationRows := make([][]string, 0, len(procedures))
						for _, name := range procedures {
							message := ""
							messages, err := store.IntegrationMessages(cmd.Context(), client.ClientID, client.LastBatchID, name)
							if err != nil {
								return err
							}
							if len(messages) > 0 {
								message = messages[len(messages)-1]
							}
							integrationRows = append(integrationRows, []string{name, outcomes[name], message})
						}
						fmt.Fprintln(out, "\nIntegration")
						writeTable(out, []string{"PROCEDURE", "STATUS", "MESSAGE"}, integrationRows, nil)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of job rows to show")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
