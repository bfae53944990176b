package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ingot/internal/layout"
	"ingot/internal/ledger"
	"ingot/internal/logging"
	"ingot/internal/manifest"
)

// task is one file a run will push through the pipeline.
type task struct {
	fileName     string
	sourceSystem string
	fromArea     layout.Area
	audit        *ledger.FileAudit
	skipConvert  bool
}

func (o *Orchestrator) plan(ctx context.Context, client *ledger.Client, mode Mode, batchID string) ([]task, error) {
	switch mode {
	case ModeRestart:
		return o.planRestart(ctx, client, batchID)
	case ModeReprocessing:
		return o.planReprocessing(ctx, client, batchID)
	default:
		return o.planStart(client)
	}
}

// planStart scans the incoming areas. Finding nothing is not a planning
// error; the run still claims its identifier and fails its job record.
func (o *Orchestrator) planStart(client *ledger.Client) ([]task, error) {
	var tasks []task
	for _, system := range o.cfg.Sources.Systems {
		names, err := layout.ListIncoming(o.lay.RawDir(client.Schema, system, layout.AreaIncoming))
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			tasks = append(tasks, task{
				fileName:     name,
				sourceSystem: system,
				fromArea:     layout.AreaIncoming,
			})
		}
	}
	return tasks, nil
}

// planRestart resumes the last batch. Candidates come from the manifest's
// file list, falling back to a scan of the incoming areas when the manifest
// lists nothing. Every candidate still on disk must already hold an audit
// record; a single missing record aborts the whole run, because a
// half-audited batch is corrupt state, not work to be resumed.
func (o *Orchestrator) planRestart(ctx context.Context, client *ledger.Client, batchID string) ([]task, error) {
	m, err := o.loadManifest(client.Schema, batchID)
	if err != nil {
		return nil, err
	}

	type candidate struct{ name, system string }
	var candidates []candidate
	if len(m.Files) > 0 {
		for _, entry := range m.Files {
			candidates = append(candidates, candidate{name: entry.PhysicalFileName, system: entry.SourceSystem})
		}
	} else {
		for _, system := range o.cfg.Sources.Systems {
			names, err := layout.ListIncoming(o.lay.RawDir(client.Schema, system, layout.AreaIncoming))
			if err != nil {
				return nil, err
			}
			for _, name := range names {
				candidates = append(candidates, candidate{name: name, system: system})
			}
		}
	}

	var tasks []task
	missing := 0
	for _, c := range candidates {
		audit, err := o.store.LookupFileAudit(ctx, client.ClientID, batchID, c.name)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				missing++
				continue
			}
			return nil, err
		}
		area, found := o.locateRaw(client.Schema, c.system, c.name)
		if !found {
			// Archived before the crash, or gone; nothing to resume.
			continue
		}
		tasks = append(tasks, task{
			fileName:     c.name,
			sourceSystem: c.system,
			fromArea:     area,
			audit:        audit,
		})
	}
	if missing > 0 {
		return nil, fmt.Errorf("%w for %d files", ErrAuditRecordMissing, missing)
	}
	if len(tasks) == 0 {
		return nil, ErrNoFilesOnRestart
	}
	return tasks, nil
}

// planReprocessing reruns validation and load for parquet artifacts sitting
// in the data incoming areas. Each artifact is correlated back to a manifest
// entry; an artifact nothing correlates to is skipped with a warning, not a
// failure. Convert never runs, and a manifest entry whose parquet_name was
// lost before a crash is repaired from the artifact on disk.
func (o *Orchestrator) planReprocessing(ctx context.Context, client *ledger.Client, batchID string) ([]task, error) {
	m, err := o.loadManifest(client.Schema, batchID)
	if err != nil {
		return nil, err
	}
	manifestPath := o.lay.ManifestPath(client.Schema, batchID, layout.AreaIncoming)

	var tasks []task
	missing := 0
	for _, system := range o.cfg.Sources.Systems {
		names, err := layout.ListIncoming(o.lay.DataDir(client.Schema, system, layout.AreaIncoming))
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if !strings.HasSuffix(strings.ToLower(name), ".parquet") {
				continue
			}
			entry, ok := m.Entry(name)
			if !ok {
				o.logger.Warn("artifact correlates to no manifest entry",
					logging.String(logging.FieldFile, name))
				continue
			}
			if entry.ParquetName == nil || *entry.ParquetName == "" {
				if err := o.manifests.SetArtifact(manifestPath, entry.PhysicalFileName, entry.SourceSystem, name); err != nil {
					return nil, err
				}
			}
			audit, err := o.store.LookupFileAudit(ctx, client.ClientID, batchID, entry.PhysicalFileName)
			if err != nil {
				if errors.Is(err, ledger.ErrNotFound) {
					missing++
					continue
				}
				return nil, err
			}
			area, found := o.locateRaw(client.Schema, entry.SourceSystem, entry.PhysicalFileName)
			if !found {
				area = layout.AreaFailed
			}
			tasks = append(tasks, task{
				fileName:     entry.PhysicalFileName,
				sourceSystem: entry.SourceSystem,
				fromArea:     area,
				audit:        audit,
				skipConvert:  true,
			})
		}
	}
	if missing > 0 {
		return nil, fmt.Errorf("%w for %d files", ErrAuditRecordMissing, missing)
	}
	if len(tasks) == 0 {
		return nil, ErrNoFilesToReprocess
	}
	return tasks, nil
}

// loadManifest reads the batch manifest from the incoming area, mapping a
// missing or undecodable document onto the planner sentinels.
func (o *Orchestrator) loadManifest(clientSchema, batchID string) (*manifest.Manifest, error) {
	m, err := o.manifests.Read(o.lay.ManifestPath(clientSchema, batchID, layout.AreaIncoming))
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w_FOR_%s", ErrNoBatchInfo, batchID)
	case errors.Is(err, manifest.ErrCorrupt):
		return nil, fmt.Errorf("%w_%s: %v", ErrInvalidBatchInfo, batchID, err)
	default:
		return nil, err
	}
}

// locateRaw finds which lifecycle area currently holds a file. A crashed run
// may have left it in incoming, in the success staging area, or quarantined.
func (o *Orchestrator) locateRaw(clientSchema, system, fileName string) (layout.Area, bool) {
	for _, area := range []layout.Area{layout.AreaIncoming, layout.AreaSuccess, layout.AreaFailed} {
		if _, err := os.Stat(filepath.Join(o.lay.RawDir(clientSchema, system, area), fileName)); err == nil {
			return area, true
		}
	}
	return "", false
}
