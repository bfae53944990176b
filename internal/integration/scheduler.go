package integration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"ingot/internal/config"
	"ingot/internal/layout"
	"ingot/internal/ledger"
	"ingot/internal/logging"
	"ingot/internal/manifest"
)

// JobName is the job_execution_log name recorded for integration runs.
const JobName = "Gold Integration"

var (
	// ErrNoBatch reports a client that has never completed a batch run.
	ErrNoBatch = errors.New("client has no batch to integrate")
	// ErrBatchNotLoaded reports files that did not finish the bronze
	// pipeline; integration refuses to run on partial batches.
	ErrBatchNotLoaded = errors.New("batch has unprocessed files")
	// ErrNoManifest reports a missing batch manifest.
	ErrNoManifest = errors.New("batch manifest not found")
)

// Scheduler executes a client's integration plan for its latest batch.
type Scheduler struct {
	cfg       *config.Config
	store     *ledger.Store
	lay       *layout.Layout
	manifests *manifest.Store
	registry  *Registry
	logger    *slog.Logger
}

// New builds a Scheduler.
func New(cfg *config.Config, store *ledger.Store, registry *Registry, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		store:     store,
		lay:       layout.New(cfg.Paths.DataRoot),
		manifests: manifest.NewStore(cfg.Workflow.ManifestRetryAttempts, time.Duration(cfg.Workflow.ManifestRetryDelayMS)*time.Millisecond),
		registry:  registry,
		logger:    logging.NewComponentLogger(logger, "integration"),
	}
}

// Result summarizes an integration run.
type Result struct {
	BatchID   string
	Succeeded int
	Failed    int
	Skipped   int
}

// Clean reports whether no procedure failed outright. Skips are dependency
// holdbacks, not failures; a skip-only run still archives its manifest.
func (r *Result) Clean() bool {
	return r.Failed == 0
}

// Run executes the integration plan for the client's last batch. Procedures
// run in catalog order; a fact whose dependency has not succeeded in this
// run or a prior pass over the batch is skipped with a message naming each
// unsatisfied dependency. The batch manifest is annotated with the outcomes
// and moved to the archive area on a clean run, the failed area otherwise.
func (s *Scheduler) Run(ctx context.Context, clientSchema string) (*Result, error) {
	client, err := s.store.ClientBySchema(ctx, clientSchema)
	if err != nil {
		s.recordAbort(ctx, clientSchema, "", err)
		return nil, err
	}
	if client.LastBatchID == "" {
		s.recordAbort(ctx, clientSchema, "", ErrNoBatch)
		return nil, ErrNoBatch
	}
	batchID := client.LastBatchID

	manifestPath, err := s.findManifest(client.Schema, batchID)
	if err != nil {
		s.recordAbort(ctx, clientSchema, batchID, err)
		return nil, err
	}
	if err := s.requireLoadedBatch(ctx, client, batchID); err != nil {
		s.recordAbort(ctx, clientSchema, batchID, err)
		return nil, err
	}

	integrations, err := s.store.ActiveIntegrations(ctx, client.ClientID)
	if err != nil {
		s.recordAbort(ctx, clientSchema, batchID, err)
		return nil, err
	}
	names := make([]string, len(integrations))
	for i, in := range integrations {
		names[i] = in.ProcedureName
	}
	if err := s.registry.Validate(names); err != nil {
		s.recordAbort(ctx, clientSchema, batchID, err)
		return nil, err
	}

	// Outcomes persisted by earlier passes over this batch satisfy
	// dependencies, so a rerun need not repeat dimensions that already
	// landed.
	prior, err := s.store.IntegrationOutcomes(ctx, client.ClientID, batchID)
	if err != nil {
		s.recordAbort(ctx, clientSchema, batchID, err)
		return nil, err
	}

	jobID, err := s.store.StartJob(ctx, JobName, client.Schema, batchID)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithClient(ctx, client.Schema)
	ctx = logging.WithBatch(ctx, batchID)
	log := logging.WithContext(ctx, s.logger)
	log.Info("integration starting", logging.Int("procedures", len(integrations)))

	result := &Result{BatchID: batchID}
	outcomes := make(map[string]string, len(integrations))
	for _, in := range integrations {
		procLog := log.With(logging.String("procedure", in.ProcedureName))

		if blocked := unsatisfied(in.DependsOn, outcomes, prior); blocked != "" {
			message := "Skipped due to failed dependency: " + blocked
			procLog.Warn("procedure skipped",
				logging.String(logging.FieldEventType, "dependency_skip"),
				logging.String("reason", blocked))
			outcomes[in.ProcedureName] = ledger.StatusSkipped
			result.Skipped++
			s.logOutcome(ctx, log, client, batchID, in.ProcedureName, ledger.StatusSkipped, message)
			continue
		}

		proc, _ := s.registry.Lookup(in.ProcedureName)
		if err := proc.Run(ctx, s.store, client.Schema, batchID); err != nil {
			procLog.Error("procedure failed", logging.Error(err))
			outcomes[in.ProcedureName] = ledger.StatusFailed
			result.Failed++
			s.logOutcome(ctx, log, client, batchID, in.ProcedureName, ledger.StatusFailed, err.Error())
			continue
		}
		procLog.Info("procedure succeeded")
		outcomes[in.ProcedureName] = ledger.StatusSuccess
		result.Succeeded++
		s.logOutcome(ctx, log, client, batchID, in.ProcedureName, ledger.StatusSuccess, "")
	}

	if err := s.manifests.AnnotateIntegration(manifestPath, outcomes); err != nil {
		log.Error("annotating manifest", logging.Error(err))
	}
	targetArea := layout.AreaArchive
	status := ledger.StatusSuccess
	if !result.Clean() {
		targetArea = layout.AreaFailed
		status = ledger.StatusFailed
	}
	dst := s.lay.ManifestPath(client.Schema, batchID, targetArea)
	if manifestPath != dst {
		if err := layout.MoveFile(manifestPath, dst); err != nil {
			log.Error("moving manifest", logging.Error(err))
		}
	}

	detail := fmt.Sprintf("%d succeeded, %d failed, %d skipped",
		result.Succeeded, result.Failed, result.Skipped)
	if err := s.store.CompleteJob(ctx, jobID, status, detail, ""); err != nil {
		return nil, err
	}
	log.Info("integration finished", logging.String("detail", detail))
	return result, nil
}

// recordAbort writes a FAILED job row for a run that never reached its
// procedure loop, so setup failures are visible in the execution log.
func (s *Scheduler) recordAbort(ctx context.Context, clientSchema, batchID string, cause error) {
	jobID, err := s.store.StartJob(ctx, JobName, clientSchema, batchID)
	if err != nil {
		s.logger.Error("recording aborted run", logging.Error(err))
		return
	}
	if err := s.store.CompleteJob(ctx, jobID, ledger.StatusFailed, cause.Error(), ""); err != nil {
		s.logger.Error("completing job record", logging.Error(err))
	}
}

// findManifest locates the batch manifest. First runs read it from the
// incoming area; reruns after a failed integration find it in failed.
func (s *Scheduler) findManifest(clientSchema, batchID string) (string, error) {
	for _, area := range []layout.Area{layout.AreaIncoming, layout.AreaFailed, layout.AreaArchive} {
		path := s.lay.ManifestPath(clientSchema, batchID, area)
		if _, err := s.manifests.Read(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoManifest, batchID)
}

// requireLoadedBatch refuses to integrate a batch with files that never
// reached a successful load.
func (s *Scheduler) requireLoadedBatch(ctx context.Context, client *ledger.Client, batchID string) error {
	audits, err := s.store.BatchAudits(ctx, client.ClientID, batchID)
	if err != nil {
		return err
	}
	unprocessed := 0
	for _, a := range audits {
		if a.BatchStatus != ledger.StatusSuccess {
			unprocessed++
		}
	}
	if unprocessed > 0 {
		return fmt.Errorf("%w: %d of %d files in %s", ErrBatchNotLoaded, unprocessed, len(audits), batchID)
	}
	return nil
}

func (s *Scheduler) logOutcome(ctx context.Context, log *slog.Logger, client *ledger.Client, batchID, procedure, status, message string) {
	err := s.store.InsertIntegrationLog(ctx, ledger.IntegrationRecord{
		ClientID:      client.ClientID,
		BatchID:       batchID,
		ProcedureName: procedure,
		Status:        status,
		Message:       message,
	})
	if err != nil {
		log.Error("recording integration outcome", logging.Error(err))
	}
}

// unsatisfied renders the dependencies that block a procedure, in the form
// "dep[FAILED], other[MISSING]". The current run's outcome wins; a dependency
// that has not run this pass falls back to its latest logged status for the
// batch. An empty string means the procedure may run.
func unsatisfied(deps []string, current, prior map[string]string) string {
	var blocked []string
	for _, dep := range deps {
		status, ran := current[dep]
		if !ran {
			status, ran = prior[dep]
		}
		switch {
		case !ran:
			blocked = append(blocked, dep+"[MISSING]")
		case status != ledger.StatusSuccess:
			blocked = append(blocked, dep+"["+status+"]")
		}
	}
	return strings.Join(blocked, ", ")
}
