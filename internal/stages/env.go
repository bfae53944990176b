// Package stages implements the per-file pipeline stage executors: convert
// to parquet, mapping validation, row validation, and bronze load. Each
// stage runs as its own process invocation and records its outcome on the
// file's audit row; the orchestrator only sequences them.
package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ingot/internal/batch"
	"ingot/internal/config"
	"ingot/internal/layout"
	"ingot/internal/ledger"
	"ingot/internal/logging"
	"ingot/internal/manifest"
	"ingot/internal/matcher"
)

// Env carries the shared dependencies of the stage executors.
type Env struct {
	Cfg       *config.Config
	Store     *ledger.Store
	Lay       *layout.Layout
	Manifests *manifest.Store
	Logger    *slog.Logger
}

// NewEnv wires an Env from loaded configuration and an open ledger.
func NewEnv(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Env {
	return &Env{
		Cfg:       cfg,
		Store:     store,
		Lay:       layout.New(cfg.Paths.DataRoot),
		Manifests: manifest.NewStore(cfg.Workflow.ManifestRetryAttempts, time.Duration(cfg.Workflow.ManifestRetryDelayMS)*time.Millisecond),
		Logger:    logging.NewComponentLogger(logger, "stages"),
	}
}

// fileContext is everything a stage needs to know about the file it was
// handed: the owning client, its audit row, the matched config, and the
// batch identifier embedded in the file name.
type fileContext struct {
	client  *ledger.Client
	audit   *ledger.FileAudit
	cfg     *ledger.IngestionConfig
	batchID string
}

func (e *Env) resolve(ctx context.Context, clientSchema, fileName string) (*fileContext, error) {
	batchID := batch.Extract(fileName)
	if batchID == "" {
		return nil, fmt.Errorf("file %q carries no batch identifier", fileName)
	}
	client, err := e.Store.ClientBySchema(ctx, clientSchema)
	if err != nil {
		return nil, err
	}
	audit, err := e.Store.LookupFileAudit(ctx, client.ClientID, batchID, fileName)
	if err != nil {
		return nil, err
	}
	configs, err := e.Store.ActiveConfigs(ctx, client.ClientID)
	if err != nil {
		return nil, err
	}
	cfg, err := matcher.Resolve(configs, audit.SourceSystem, fileName)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no active config for %q in %s", fileName, audit.SourceSystem)
	}
	return &fileContext{client: client, audit: audit, cfg: cfg, batchID: batchID}, nil
}

// stageLogger annotates the context with the file's identity and returns a
// logger carrying those fields plus the physical file name.
func (e *Env) stageLogger(ctx context.Context, fc *fileContext, stage, fileName string) (context.Context, *slog.Logger) {
	ctx = logging.WithClient(ctx, fc.client.Schema)
	ctx = logging.WithBatch(ctx, fc.batchID)
	ctx = logging.WithStage(ctx, stage)
	log := logging.WithContext(ctx, e.Logger).With(logging.String(logging.FieldFile, fileName))
	return ctx, log
}

// locateRawFile finds the physical file across the staging areas. Files
// normally sit in success while stages run, but a manually invoked stage
// may find them still in incoming.
func (e *Env) locateRawFile(clientSchema, sourceSystem, fileName string) (string, error) {
	for _, area := range []layout.Area{layout.AreaSuccess, layout.AreaIncoming, layout.AreaFailed} {
		candidate := filepath.Join(e.Lay.RawDir(clientSchema, sourceSystem, area), fileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("file %q not found in any raw area of %s", fileName, sourceSystem)
}

// artifactPath returns the parquet artifact location recorded in the batch
// manifest for a file.
func (e *Env) artifactPath(fc *fileContext, fileName string) (string, error) {
	manifestPath := e.Lay.ManifestPath(fc.client.Schema, fc.batchID, layout.AreaIncoming)
	m, err := e.Manifests.Read(manifestPath)
	if err != nil {
		return "", err
	}
	entry, ok := m.Entry(fileName)
	if !ok || entry.ParquetName == nil || *entry.ParquetName == "" {
		return "", fmt.Errorf("no parquet artifact recorded for %q", fileName)
	}
	return filepath.Join(e.Lay.DataDir(fc.client.Schema, fc.audit.SourceSystem, layout.AreaIncoming), *entry.ParquetName), nil
}

// markStage records a stage outcome, logging rather than failing when the
// audit update itself cannot be written.
func (e *Env) markStage(ctx context.Context, fc *fileContext, stage, status, message string) {
	if err := e.Store.UpdateStageStatus(ctx, fc.audit.AuditID, stage, status, message); err != nil {
		e.Logger.Error("recording stage status",
			logging.String(logging.FieldStage, stage),
			logging.Error(err))
	}
}
