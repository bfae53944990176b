// Package orchestrator drives batch ingestion runs. A run claims files for
// a batch, records them in the audit ledger and the batch manifest, and
// pushes each file through the convert, validation, and load stages via
// external stage executors. Files fail independently; the batch fails when
// any of its files fail.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ingot/internal/batch"
	"ingot/internal/config"
	"ingot/internal/layout"
	"ingot/internal/ledger"
	"ingot/internal/logging"
	"ingot/internal/manifest"
	"ingot/internal/matcher"
)

// Orchestrator coordinates one client's batch runs.
type Orchestrator struct {
	cfg       *config.Config
	store     *ledger.Store
	lay       *layout.Layout
	manifests *manifest.Store
	runner    StageRunner
	logger    *slog.Logger
}

// New builds an Orchestrator over the given ledger store and stage runner.
func New(cfg *config.Config, store *ledger.Store, runner StageRunner, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		lay:       layout.New(cfg.Paths.DataRoot),
		manifests: manifest.NewStore(cfg.Workflow.ManifestRetryAttempts, time.Duration(cfg.Workflow.ManifestRetryDelayMS)*time.Millisecond),
		runner:    runner,
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// Result summarizes a completed run.
type Result struct {
	BatchID   string
	Processed int
	Failed    int
	NoFiles   bool
}

// Run executes one orchestration pass for a client in the given mode.
// Exactly one job_execution_log row is written per invocation, whatever the
// outcome; even setup failures leave a FAILED row behind.
func (o *Orchestrator) Run(ctx context.Context, clientSchema string, mode Mode) (*Result, error) {
	client, err := o.store.ClientBySchema(ctx, clientSchema)
	if err != nil {
		o.recordAbort(ctx, mode, clientSchema, "", err)
		return nil, err
	}
	configs, err := o.store.ActiveConfigs(ctx, client.ClientID)
	if err != nil {
		o.recordAbort(ctx, mode, clientSchema, "", err)
		return nil, err
	}
	if err := matcher.ValidateConfigs(configs); err != nil {
		o.recordAbort(ctx, mode, clientSchema, "", err)
		return nil, err
	}
	if err := o.lay.EnsureClientDirs(client.Schema, o.cfg.Sources.Systems); err != nil {
		o.recordAbort(ctx, mode, clientSchema, "", err)
		return nil, err
	}

	batchID, allocErr := o.batchIDFor(ctx, client, mode)

	jobID, err := o.store.StartJob(ctx, mode.JobName(), client.Schema, batchID)
	if err != nil {
		return nil, err
	}
	if allocErr != nil {
		o.failJob(ctx, jobID, allocErr)
		return nil, allocErr
	}

	ctx = logging.WithClient(ctx, client.Schema)
	ctx = logging.WithBatch(ctx, batchID)
	log := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldMode, mode.String()))
	log.Info("run starting")

	tasks, planErr := o.plan(ctx, client, mode, batchID)
	if planErr != nil {
		log.Error("planning failed", logging.Error(planErr))
		o.failJob(ctx, jobID, planErr)
		return nil, planErr
	}

	if mode == ModeStart {
		// A start run burns its identifier even when the scan comes up
		// empty, so consecutive empty runs stay distinguishable in the logs.
		if err := o.store.UpdateLastBatchID(ctx, client.ClientID, batchID); err != nil {
			o.failJob(ctx, jobID, err)
			return nil, err
		}
		// Persist the manifest header before any file runs, so downstream
		// consumers always find a document even when every file fails.
		header := &manifest.Manifest{
			ClientSchema: client.Schema,
			ClientID:     client.ClientID,
			BatchID:      batchID,
			Files:        []manifest.FileEntry{},
		}
		if err := o.manifests.WriteAtomic(o.lay.ManifestPath(client.Schema, batchID, layout.AreaIncoming), header); err != nil {
			o.failJob(ctx, jobID, err)
			return nil, err
		}
	}

	if len(tasks) == 0 {
		// Only start mode plans an empty run; the other planners error.
		// The empty manifest above still stands so downstream consumers
		// see the batch, and the job records the run as failed.
		log.Warn("no files to process")
		if err := o.store.CompleteJob(ctx, jobID, ledger.StatusFailed, MsgNoFileMatched, ""); err != nil {
			return nil, err
		}
		return &Result{BatchID: batchID, NoFiles: true}, nil
	}

	result := &Result{BatchID: batchID}
	firstFailed := ""
	unmatched := 0
	for _, t := range tasks {
		fileName := t.fileName
		if mode == ModeStart {
			fileName = batch.SuffixedName(t.fileName, batchID)
		}
		if err := o.runTask(ctx, log, client, configs, mode, batchID, t); err != nil {
			log.Error("file failed",
				logging.String(logging.FieldFile, fileName),
				logging.String(logging.FieldEventType, "file_failed"),
				logging.Error(err))
			if errors.Is(err, ErrFileConfigNotFound) {
				unmatched++
			}
			if firstFailed == "" {
				firstFailed = fileName
			}
			result.Failed++
		} else {
			result.Processed++
		}
	}

	status := ledger.StatusSuccess
	if result.Failed > 0 {
		status = ledger.StatusFailed
	}
	message := fmt.Sprintf("%d files processed, %d failed", result.Processed, result.Failed)
	if result.Processed == 0 && unmatched > 0 && unmatched == result.Failed {
		message = MsgNoFileMatched
	}
	if err := o.store.CompleteJob(ctx, jobID, status, message, firstFailed); err != nil {
		return nil, err
	}
	log.Info("run finished",
		logging.Int("processed", result.Processed),
		logging.Int("failed", result.Failed))
	return result, nil
}

func (o *Orchestrator) failJob(ctx context.Context, jobID int64, cause error) {
	if err := o.store.CompleteJob(ctx, jobID, ledger.StatusFailed, cause.Error(), ""); err != nil {
		o.logger.Error("completing job record", logging.Error(err))
	}
}

// recordAbort writes the job row for a run that died before its regular one
// was opened. Every invocation leaves a job record, setup failures included.
func (o *Orchestrator) recordAbort(ctx context.Context, mode Mode, clientSchema, batchID string, cause error) {
	jobID, err := o.store.StartJob(ctx, mode.JobName(), clientSchema, batchID)
	if err != nil {
		o.logger.Error("recording aborted run", logging.Error(err))
		return
	}
	o.failJob(ctx, jobID, cause)
}

// batchIDFor determines the identifier a run operates under. Start mode
// increments the client's last identifier; a malformed stored identifier is
// logged and the sequence restarts from the beginning.
func (o *Orchestrator) batchIDFor(ctx context.Context, client *ledger.Client, mode Mode) (string, error) {
	if mode != ModeStart {
		if client.LastBatchID == "" {
			return "", ErrNoLastBatch
		}
		return client.LastBatchID, nil
	}
	if client.LastBatchID == "" {
		return batch.First(), nil
	}
	next, err := batch.Next(client.LastBatchID)
	if err != nil {
		if errors.Is(err, batch.ErrMalformedBatchID) {
			o.logger.Warn("stored batch identifier is malformed, restarting sequence",
				logging.String(logging.FieldClient, client.Schema),
				logging.String("stored", client.LastBatchID))
			return batch.First(), nil
		}
		return "", err
	}
	return next, nil
}
