package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ingot/internal/batch"
	"ingot/internal/layout"
	"ingot/internal/ledger"
	"ingot/internal/logging"
	"ingot/internal/manifest"
	"ingot/internal/matcher"
)

// runTask pushes a single file through the pipeline. The returned error
// marks the file as failed; sibling files keep going regardless.
func (o *Orchestrator) runTask(ctx context.Context, log *slog.Logger, client *ledger.Client, configs []ledger.IngestionConfig, mode Mode, batchID string, t task) error {
	fileLog := log.With(logging.String(logging.FieldFile, t.fileName))

	fileName := t.fileName
	if mode == ModeStart {
		renamed := batch.SuffixedName(t.fileName, batchID)
		src := filepath.Join(o.lay.RawDir(client.Schema, t.sourceSystem, layout.AreaIncoming), t.fileName)
		dst := filepath.Join(o.lay.RawDir(client.Schema, t.sourceSystem, layout.AreaIncoming), renamed)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("stamp batch identifier: %w", err)
		}
		fileName = renamed
		fileLog = log.With(logging.String(logging.FieldFile, fileName))
	}

	cfg, err := matcher.Resolve(configs, t.sourceSystem, fileName)
	if err != nil {
		return err
	}

	auditID, err := o.ensureAudit(ctx, client, batchID, t, fileName, cfg)
	if err != nil {
		return err
	}

	if cfg == nil {
		fileLog.Error("no ingestion config claims file")
		o.recordFailure(ctx, fileLog, client, t.sourceSystem, fileName, auditID, "config_validation", MsgFileConfigNotFound)
		return fmt.Errorf("%w: %s", ErrFileConfigNotFound, fileName)
	}

	if err := o.publishManifestEntry(client, batchID, t.sourceSystem, fileName, cfg); err != nil {
		o.recordFailure(ctx, fileLog, client, t.sourceSystem, fileName, auditID, "config_validation", err.Error())
		return err
	}

	// Stage executors read the file from the success area.
	staging := filepath.Join(o.lay.RawDir(client.Schema, t.sourceSystem, layout.AreaSuccess), fileName)
	current := filepath.Join(o.lay.RawDir(client.Schema, t.sourceSystem, t.fromArea), fileName)
	if err := layout.MoveFile(current, staging); err != nil {
		o.recordFailure(ctx, fileLog, client, t.sourceSystem, fileName, auditID, "config_validation", err.Error())
		return err
	}

	if err := o.runStages(ctx, fileLog, client, batchID, t, fileName, auditID); err != nil {
		return err
	}

	archived := filepath.Join(o.lay.RawDir(client.Schema, t.sourceSystem, layout.AreaArchive), fileName)
	if err := layout.MoveFile(staging, archived); err != nil {
		fileLog.Error("archiving processed file", logging.Error(err))
		return err
	}
	if err := o.store.UpdateBatchStatus(ctx, auditID, ledger.StatusSuccess); err != nil {
		return err
	}
	fileLog.Info("file processed")
	return nil
}

// ensureAudit creates the audit row in start mode and resets the existing
// one on restart and reprocessing runs.
func (o *Orchestrator) ensureAudit(ctx context.Context, client *ledger.Client, batchID string, t task, fileName string, cfg *ledger.IngestionConfig) (int64, error) {
	if t.audit != nil {
		if err := o.store.ResetStagesForRerun(ctx, t.audit.AuditID, t.skipConvert); err != nil {
			return 0, err
		}
		return t.audit.AuditID, nil
	}

	audit := ledger.FileAudit{
		ClientID:          client.ClientID,
		BatchID:           batchID,
		PhysicalFileName:  fileName,
		LogicalSourceFile: batch.StripSuffix(batch.Normalize(fileName)),
		SourceSystem:      t.sourceSystem,
		SourceType:        strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), "."),
	}
	if cfg != nil {
		audit.SourceType = cfg.SourceType
		audit.ConfigID = cfg.ConfigID
		audit.ConfigValidationStatus = ledger.StatusSuccess
	} else {
		audit.ConfigValidationStatus = ledger.StatusFailed
	}
	return o.store.InsertFileAudit(ctx, audit)
}

func (o *Orchestrator) publishManifestEntry(client *ledger.Client, batchID, sourceSystem, fileName string, cfg *ledger.IngestionConfig) error {
	header := manifest.Manifest{
		ClientSchema: client.Schema,
		ClientID:     client.ClientID,
		BatchID:      batchID,
	}
	entry := manifest.FileEntry{
		PhysicalFileName:  fileName,
		LogicalSourceFile: batch.StripSuffix(batch.Normalize(fileName)),
		SourceSystem:      sourceSystem,
		SourceType:        cfg.SourceType,
		TargetSchema:      cfg.TargetSchema,
		TargetTable:       cfg.TargetTable,
		SourceConfig:      cfg.SourceConfig,
	}
	path := o.lay.ManifestPath(client.Schema, batchID, layout.AreaIncoming)
	return o.manifests.UpsertFileEntry(path, header, entry)
}

// runStages drives the per-file stage sequence. Row validation is advisory;
// its failure is recorded by the executor but does not stop the file.
func (o *Orchestrator) runStages(ctx context.Context, fileLog *slog.Logger, client *ledger.Client, batchID string, t task, fileName string, auditID int64) error {
	manifestPath := o.lay.ManifestPath(client.Schema, batchID, layout.AreaIncoming)

	if t.skipConvert {
		fileLog.Info("parquet artifact already present, skipping convert")
	} else {
		if err := o.runOneStage(ctx, fileLog, client, t.sourceSystem, fileName, auditID, StageConvert); err != nil {
			return err
		}
		timeout := time.Duration(o.cfg.Workflow.ArtifactWaitTimeoutSec) * time.Second
		poll := time.Duration(o.cfg.Workflow.ArtifactPollIntervalMS) * time.Millisecond
		artifact, err := o.manifests.WaitForArtifact(ctx, manifestPath, fileName, timeout, poll)
		if err != nil {
			o.recordFailure(ctx, fileLog, client, t.sourceSystem, fileName, auditID, string(StageConvert), err.Error())
			return err
		}
		fileLog.Info("parquet artifact published", logging.String("artifact", artifact))
	}

	if err := o.runOneStage(ctx, fileLog, client, t.sourceSystem, fileName, auditID, StageMappingValidation); err != nil {
		return err
	}

	if err := o.runner.RunStage(ctx, StageRowValidation, client.Schema, fileName); err != nil {
		fileLog.Warn("row validation reported problems", logging.Error(err))
	}

	return o.runOneStage(ctx, fileLog, client, t.sourceSystem, fileName, auditID, StageLoad)
}

func (o *Orchestrator) runOneStage(ctx context.Context, fileLog *slog.Logger, client *ledger.Client, sourceSystem, fileName string, auditID int64, stage Stage) error {
	fileLog.Info("stage starting", logging.String(logging.FieldStage, string(stage)))
	if err := o.runner.RunStage(ctx, stage, client.Schema, fileName); err != nil {
		o.recordFailure(ctx, fileLog, client, sourceSystem, fileName, auditID, string(stage), err.Error())
		return err
	}
	return nil
}

// recordFailure marks the audit row failed and quarantines the file. The
// file may sit in the success or the incoming area depending on how far it
// got; whichever exists is moved.
func (o *Orchestrator) recordFailure(ctx context.Context, fileLog *slog.Logger, client *ledger.Client, sourceSystem, fileName string, auditID int64, stage, message string) {
	if err := o.store.UpdateStageStatus(ctx, auditID, stage, ledger.StatusFailed, message); err != nil {
		fileLog.Error("updating stage status", logging.Error(err))
	}
	if err := o.store.UpdateBatchStatus(ctx, auditID, ledger.StatusFailed); err != nil {
		fileLog.Error("updating batch status", logging.Error(err))
	}

	failedPath := filepath.Join(o.lay.RawDir(client.Schema, sourceSystem, layout.AreaFailed), fileName)
	for _, area := range []layout.Area{layout.AreaSuccess, layout.AreaIncoming} {
		candidate := filepath.Join(o.lay.RawDir(client.Schema, sourceSystem, area), fileName)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := layout.MoveFile(candidate, failedPath); err != nil {
			fileLog.Error("quarantining failed file", logging.Error(err))
		}
		return
	}
}
