package stages

import (
	"context"
	"fmt"

	"ingot/internal/ledger"
	"ingot/internal/logging"
)

// ValidateRows tallies rows whose required columns are null or empty. The
// stage is advisory: tallies and a FAILED status are recorded when invalid
// rows exist, but the error return stays nil so the pipeline continues.
func (e *Env) ValidateRows(ctx context.Context, clientSchema, fileName string) error {
	fc, err := e.resolve(ctx, clientSchema, fileName)
	if err != nil {
		return err
	}
	ctx, log := e.stageLogger(ctx, fc, "row_validation", fileName)

	artifact, err := e.artifactPath(fc, fileName)
	if err != nil {
		e.markStage(ctx, fc, "row_validation", ledger.StatusFailed, err.Error())
		return err
	}
	_, rows, err := readParquet(artifact)
	if err != nil {
		e.markStage(ctx, fc, "row_validation", ledger.StatusFailed, err.Error())
		return err
	}

	mappings, err := e.Store.ColumnMappings(ctx, fc.cfg.ConfigID)
	if err != nil {
		return err
	}
	var required []string
	for _, m := range mappings {
		if m.IsRequired {
			required = append(required, m.SourceColumn)
		}
	}

	total := int64(len(rows))
	var invalid int64
	for _, row := range rows {
		for _, col := range required {
			if value, ok := row[col]; !ok || value == "" {
				invalid++
				break
			}
		}
	}
	valid := total - invalid

	if err := e.Store.UpdateRowCounts(ctx, fc.audit.AuditID, total, valid, invalid); err != nil {
		return err
	}

	if invalid > 0 {
		msg := fmt.Sprintf("%d of %d rows missing required values", invalid, total)
		e.markStage(ctx, fc, "row_validation", ledger.StatusFailed, msg)
		log.Warn("row validation found invalid rows",
			logging.String(logging.FieldEventType, "invalid_rows"),
			logging.Int64("invalid", invalid),
			logging.Int64("total", total))
		return nil
	}

	e.markStage(ctx, fc, "row_validation", ledger.StatusSuccess, "")
	log.Info("rows validated", logging.Int64("total", total))
	return nil
}
