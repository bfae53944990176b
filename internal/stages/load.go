package stages

import (
	"context"
	"fmt"
	"path/filepath"

	"ingot/internal/layout"
	"ingot/internal/ledger"
	"ingot/internal/logging"
)

// Load writes the parquet artifact's rows into the config's bronze table.
// The batch's previous rows are deleted first so reruns never double load,
// and the artifact moves to the data archive once the load commits.
func (e *Env) Load(ctx context.Context, clientSchema, fileName string) error {
	fc, err := e.resolve(ctx, clientSchema, fileName)
	if err != nil {
		return err
	}
	ctx, log := e.stageLogger(ctx, fc, "load", fileName)

	artifact, err := e.artifactPath(fc, fileName)
	if err != nil {
		e.markStage(ctx, fc, "load", ledger.StatusFailed, err.Error())
		return err
	}
	_, rows, err := readParquet(artifact)
	if err != nil {
		e.markStage(ctx, fc, "load", ledger.StatusFailed, err.Error())
		return err
	}

	mappings, err := e.Store.ColumnMappings(ctx, fc.cfg.ConfigID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		msg := fmt.Sprintf("no column mappings configured for config %d", fc.cfg.ConfigID)
		e.markStage(ctx, fc, "load", ledger.StatusFailed, msg)
		return fmt.Errorf("%s", msg)
	}

	targetColumns := make([]string, 0, len(mappings))
	for _, m := range mappings {
		targetColumns = append(targetColumns, m.TargetColumn)
	}

	mapped := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]string, len(mappings))
		for _, m := range mappings {
			if value, ok := row[m.SourceColumn]; ok {
				out[m.TargetColumn] = value
			}
		}
		mapped = append(mapped, out)
	}

	if err := e.Store.EnsureBronzeTable(ctx, fc.cfg.TargetSchema, fc.cfg.TargetTable, targetColumns); err != nil {
		e.markStage(ctx, fc, "load", ledger.StatusFailed, err.Error())
		return err
	}
	if _, err := e.Store.DeleteBatchRows(ctx, fc.cfg.TargetSchema, fc.cfg.TargetTable, fc.batchID); err != nil {
		e.markStage(ctx, fc, "load", ledger.StatusFailed, err.Error())
		return err
	}
	inserted, err := e.Store.InsertBronzeRows(ctx, fc.cfg.TargetSchema, fc.cfg.TargetTable, targetColumns, mapped, fc.batchID)
	if err != nil {
		e.markStage(ctx, fc, "load", ledger.StatusFailed, err.Error())
		return err
	}

	archived := filepath.Join(e.Lay.DataDir(clientSchema, fc.audit.SourceSystem, layout.AreaArchive), filepath.Base(artifact))
	if err := layout.MoveFile(artifact, archived); err != nil {
		log.Warn("archiving parquet artifact", logging.Error(err))
	}

	e.markStage(ctx, fc, "load", ledger.StatusSuccess, "")
	log.Info("loaded into bronze",
		logging.String("table", ledger.BronzeTableName(fc.cfg.TargetSchema, fc.cfg.TargetTable)),
		logging.Int64("rows", inserted))
	return nil
}
