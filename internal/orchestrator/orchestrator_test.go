package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ingot/internal/batch"
	"ingot/internal/config"
	"ingot/internal/layout"
	"ingot/internal/ledger"
	"ingot/internal/logging"
	"ingot/internal/manifest"
	"ingot/internal/testsupport"
)

// fakeRunner stands in for the stage executors. Convert publishes the
// parquet artifact into the manifest the way the real executor does.
type fakeRunner struct {
	t         *testing.T
	manifests *manifest.Store
	lay       *layout.Layout
	schema    string
	batchID   string
	calls     []string
	fail      map[string]error // "stage:file" -> error
	mute      bool             // suppress convert's artifact publication
}

func (r *fakeRunner) RunStage(ctx context.Context, stage Stage, clientSchema, fileName string) error {
	key := string(stage) + ":" + fileName
	r.calls = append(r.calls, key)
	if err, ok := r.fail[key]; ok {
		return err
	}
	if stage == StageConvert && !r.mute {
		path := r.lay.ManifestPath(r.schema, r.batchID, layout.AreaIncoming)
		parquet := strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ".parquet"
		if err := r.manifests.SetArtifact(path, fileName, "crm", parquet); err != nil {
			r.t.Fatalf("publish artifact: %v", err)
		}
	}
	return nil
}

func (r *fakeRunner) called(stage Stage, fileName string) bool {
	key := string(stage) + ":" + fileName
	for _, call := range r.calls {
		if call == key {
			return true
		}
	}
	return false
}

type fixture struct {
	cfg    *config.Config
	store  *ledger.Store
	lay    *layout.Layout
	client *ledger.Client
	runner *fakeRunner
	orch   *Orchestrator
}

func newFixture(t *testing.T, batchID string) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.OpenStore(t, cfg)
	client := testsupport.SeedClient(t, store, "acme")
	testsupport.SeedConfig(t, store, client.ClientID, "crm", "csv", "orders", "orders")

	lay := layout.New(cfg.Paths.DataRoot)
	runner := &fakeRunner{
		t:         t,
		manifests: manifest.NewStore(3, 5*time.Millisecond),
		lay:       lay,
		schema:    "acme",
		batchID:   batchID,
		fail:      map[string]error{},
	}
	return &fixture{
		cfg:    cfg,
		store:  store,
		lay:    lay,
		client: client,
		runner: runner,
		orch:   New(cfg, store, runner, logging.NewNop()),
	}
}

func (f *fixture) dropIncoming(t *testing.T, system, name string) {
	t.Helper()
	dir := f.lay.RawDir("acme", system, layout.AreaIncoming)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("id,amount\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) fileIn(system string, area layout.Area, name string) bool {
	_, err := os.Stat(filepath.Join(f.lay.RawDir("acme", system, area), name))
	return err == nil
}

// dropArtifact places a parquet artifact into the data incoming area, as the
// convert executor would have before a crash.
func (f *fixture) dropArtifact(t *testing.T, system, name string) {
	t.Helper()
	dir := f.lay.DataDir("acme", system, layout.AreaIncoming)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("parquet"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunStartHappyPath(t *testing.T) {
	f := newFixture(t, "BATCH000001")
	f.dropIncoming(t, "crm", "orders.csv")

	result, err := f.orch.Run(t.Context(), "acme", ModeStart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.BatchID != "BATCH000001" || result.Processed != 1 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}

	renamed := "orders_BATCH000001.csv"
	if !f.fileIn("crm", layout.AreaArchive, renamed) {
		t.Fatal("processed file should land in archive")
	}

	client, err := f.store.ClientBySchema(t.Context(), "acme")
	if err != nil {
		t.Fatal(err)
	}
	if client.LastBatchID != "BATCH000001" {
		t.Fatalf("last_batch_id = %q", client.LastBatchID)
	}

	audit, err := f.store.LookupFileAudit(t.Context(), f.client.ClientID, "BATCH000001", renamed)
	if err != nil {
		t.Fatalf("audit lookup: %v", err)
	}
	if audit.BatchStatus != ledger.StatusSuccess || audit.ConfigValidationStatus != ledger.StatusSuccess {
		t.Fatalf("audit = %+v", audit)
	}

	m, err := f.runner.manifests.Read(f.lay.ManifestPath("acme", "BATCH000001", layout.AreaIncoming))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	entry, ok := m.Entry(renamed)
	if !ok || entry.ParquetName == nil {
		t.Fatalf("manifest entry = %+v ok = %v", entry, ok)
	}

	jobs, err := f.store.RecentJobs(t.Context(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].JobName != "Batch Processing Start" || jobs[0].Status != ledger.StatusSuccess {
		t.Fatalf("jobs = %+v", jobs)
	}

	for _, stage := range []Stage{StageConvert, StageMappingValidation, StageRowValidation, StageLoad} {
		if !f.runner.called(stage, renamed) {
			t.Fatalf("stage %s never ran", stage)
		}
	}
}

func TestRunStartNoFiles(t *testing.T) {
	f := newFixture(t, "BATCH000001")

	result, err := f.orch.Run(t.Context(), "acme", ModeStart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.NoFiles {
		t.Fatalf("result = %+v", result)
	}

	// An empty scan still claims the identifier and leaves the empty
	// manifest behind; the run itself counts as failed.
	client, err := f.store.ClientBySchema(t.Context(), "acme")
	if err != nil {
		t.Fatal(err)
	}
	if client.LastBatchID != "BATCH000001" {
		t.Fatalf("last_batch_id = %q, want BATCH000001", client.LastBatchID)
	}
	m, err := f.runner.manifests.Read(f.lay.ManifestPath("acme", "BATCH000001", layout.AreaIncoming))
	if err != nil {
		t.Fatalf("empty run should still write a manifest: %v", err)
	}
	if len(m.Files) != 0 {
		t.Fatalf("manifest = %+v", m)
	}

	jobs, err := f.store.RecentJobs(t.Context(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Status != ledger.StatusFailed {
		t.Fatalf("jobs = %+v", jobs)
	}
	if jobs[0].ErrorMessage != MsgNoFileMatched {
		t.Fatalf("error message = %q", jobs[0].ErrorMessage)
	}
}

func TestRunUnknownClientRecordsFailedJob(t *testing.T) {
	f := newFixture(t, "BATCH000001")

	_, err := f.orch.Run(t.Context(), "ghost", ModeStart)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	jobs, err := f.store.RecentJobs(t.Context(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Status != ledger.StatusFailed || jobs[0].ClientSchema != "ghost" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestRunStartUnmatchedFileFailsAloneSiblingsContinue(t *testing.T) {
	f := newFixture(t, "BATCH000001")
	f.dropIncoming(t, "crm", "orders.csv")
	f.dropIncoming(t, "crm", "mystery.csv")

	result, err := f.orch.Run(t.Context(), "acme", ModeStart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Processed != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}

	if !f.fileIn("crm", layout.AreaFailed, "mystery_BATCH000001.csv") {
		t.Fatal("unmatched file should be quarantined")
	}
	if !f.fileIn("crm", layout.AreaArchive, "orders_BATCH000001.csv") {
		t.Fatal("matched sibling should still process")
	}

	audit, err := f.store.LookupFileAudit(t.Context(), f.client.ClientID, "BATCH000001", "mystery_BATCH000001.csv")
	if err != nil {
		t.Fatal(err)
	}
	if audit.ConfigValidationStatus != ledger.StatusFailed || audit.ErrorMessage != MsgFileConfigNotFound {
		t.Fatalf("audit = %+v", audit)
	}

	jobs, _ := f.store.RecentJobs(t.Context(), 10)
	if len(jobs) != 1 || jobs[0].Status != ledger.StatusFailed {
		t.Fatalf("jobs = %+v", jobs)
	}

	// The unmatched file never enters the manifest.
	m, err := f.runner.manifests.Read(f.lay.ManifestPath("acme", "BATCH000001", layout.AreaIncoming))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 || m.Files[0].PhysicalFileName != "orders_BATCH000001.csv" {
		t.Fatalf("manifest files = %+v", m.Files)
	}
}

func TestRunStartAllUnmatchedStillWritesManifest(t *testing.T) {
	f := newFixture(t, "BATCH000001")
	f.dropIncoming(t, "crm", "mystery.csv")

	result, err := f.orch.Run(t.Context(), "acme", ModeStart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Processed != 0 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}

	m, err := f.runner.manifests.Read(f.lay.ManifestPath("acme", "BATCH000001", layout.AreaIncoming))
	if err != nil {
		t.Fatalf("manifest should exist even when every file fails: %v", err)
	}
	if len(m.Files) != 0 || m.BatchID != "BATCH000001" {
		t.Fatalf("manifest = %+v", m)
	}

	jobs, _ := f.store.RecentJobs(t.Context(), 10)
	if len(jobs) != 1 || jobs[0].Status != ledger.StatusFailed {
		t.Fatalf("jobs = %+v", jobs)
	}
	if jobs[0].ErrorMessage != MsgNoFileMatched || jobs[0].FileName != "mystery_BATCH000001.csv" {
		t.Fatalf("job = %+v", jobs[0])
	}
}

func TestRunStartStageFailureQuarantinesFile(t *testing.T) {
	f := newFixture(t, "BATCH000001")
	f.dropIncoming(t, "crm", "orders.csv")
	f.runner.fail["load:orders_BATCH000001.csv"] = errors.New("disk full")

	result, err := f.orch.Run(t.Context(), "acme", ModeStart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !f.fileIn("crm", layout.AreaFailed, "orders_BATCH000001.csv") {
		t.Fatal("failed file should be quarantined")
	}

	audit, err := f.store.LookupFileAudit(t.Context(), f.client.ClientID, "BATCH000001", "orders_BATCH000001.csv")
	if err != nil {
		t.Fatal(err)
	}
	if audit.LoadStatus != ledger.StatusFailed || audit.BatchStatus != ledger.StatusFailed {
		t.Fatalf("audit = %+v", audit)
	}
}

func TestRunStartArtifactTimeout(t *testing.T) {
	f := newFixture(t, "BATCH000001")
	f.cfg.Workflow.ArtifactWaitTimeoutSec = 1
	f.orch = New(f.cfg, f.store, f.runner, logging.NewNop())
	f.dropIncoming(t, "crm", "orders.csv")
	f.runner.mute = true

	result, err := f.orch.Run(t.Context(), "acme", ModeStart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}

	audit, err := f.store.LookupFileAudit(t.Context(), f.client.ClientID, "BATCH000001", "orders_BATCH000001.csv")
	if err != nil {
		t.Fatal(err)
	}
	if audit.ConvertStatus != ledger.StatusFailed {
		t.Fatalf("audit = %+v", audit)
	}
}

// seedCrashedRun simulates a start run that died after claiming a file:
// renamed file still in incoming, audit row present, manifest written.
func seedCrashedRun(t *testing.T, f *fixture, withAudit bool) string {
	t.Helper()
	if err := f.store.UpdateLastBatchID(t.Context(), f.client.ClientID, "BATCH000004"); err != nil {
		t.Fatal(err)
	}
	renamed := "orders_BATCH000004.csv"
	f.dropIncoming(t, "crm", renamed)

	path := f.lay.ManifestPath("acme", "BATCH000004", layout.AreaIncoming)
	header := manifest.Manifest{ClientSchema: "acme", ClientID: f.client.ClientID, BatchID: "BATCH000004"}
	entry := manifest.FileEntry{
		PhysicalFileName:  renamed,
		LogicalSourceFile: "orders",
		SourceSystem:      "crm",
		SourceType:        "csv",
		TargetSchema:      "bronze",
		TargetTable:       "orders",
	}
	if err := f.runner.manifests.UpsertFileEntry(path, header, entry); err != nil {
		t.Fatal(err)
	}

	if withAudit {
		if _, err := f.store.InsertFileAudit(t.Context(), ledger.FileAudit{
			ClientID:               f.client.ClientID,
			BatchID:                "BATCH000004",
			PhysicalFileName:       renamed,
			LogicalSourceFile:      "orders",
			SourceSystem:           "crm",
			ConfigValidationStatus: ledger.StatusSuccess,
		}); err != nil {
			t.Fatal(err)
		}
	}
	return renamed
}

func TestRunRestartResumes(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	renamed := seedCrashedRun(t, f, true)

	result, err := f.orch.Run(t.Context(), "acme", ModeRestart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.BatchID != "BATCH000004" || result.Processed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !f.fileIn("crm", layout.AreaArchive, renamed) {
		t.Fatal("resumed file should archive")
	}

	jobs, _ := f.store.RecentJobs(t.Context(), 10)
	if len(jobs) != 1 || jobs[0].JobName != "Batch Processing Restart" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestRunRestartAuditGateAborts(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	seedCrashedRun(t, f, false)

	_, err := f.orch.Run(t.Context(), "acme", ModeRestart)
	if !errors.Is(err, ErrAuditRecordMissing) {
		t.Fatalf("err = %v, want ErrAuditRecordMissing", err)
	}
	if !strings.Contains(err.Error(), "for 1 files") {
		t.Fatalf("err = %v", err)
	}

	// The gate aborts the whole run: no stage ran, one FAILED job row.
	if len(f.runner.calls) != 0 {
		t.Fatalf("stages ran despite audit gate: %v", f.runner.calls)
	}
	jobs, _ := f.store.RecentJobs(t.Context(), 10)
	if len(jobs) != 1 || jobs[0].Status != ledger.StatusFailed {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestRunRestartAuditGateAbortsWholeRun(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	audited := seedCrashedRun(t, f, true)

	// A second claimed file without an audit row poisons the whole run:
	// not even the audited sibling may reach a stage executor.
	stray := "extras_BATCH000004.csv"
	f.dropIncoming(t, "crm", stray)
	path := f.lay.ManifestPath("acme", "BATCH000004", layout.AreaIncoming)
	header := manifest.Manifest{ClientSchema: "acme", ClientID: f.client.ClientID, BatchID: "BATCH000004"}
	entry := manifest.FileEntry{
		PhysicalFileName:  stray,
		LogicalSourceFile: "extras",
		SourceSystem:      "crm",
		SourceType:        "csv",
	}
	if err := f.runner.manifests.UpsertFileEntry(path, header, entry); err != nil {
		t.Fatal(err)
	}

	_, err := f.orch.Run(t.Context(), "acme", ModeRestart)
	if !errors.Is(err, ErrAuditRecordMissing) {
		t.Fatalf("err = %v, want ErrAuditRecordMissing", err)
	}
	if len(f.runner.calls) != 0 {
		t.Fatalf("stages ran despite audit gate: %v", f.runner.calls)
	}
	if !f.fileIn("crm", layout.AreaIncoming, audited) {
		t.Fatal("audited sibling must stay untouched in incoming")
	}
}

func TestRunRestartMissingManifest(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	if err := f.store.UpdateLastBatchID(t.Context(), f.client.ClientID, "BATCH000004"); err != nil {
		t.Fatal(err)
	}
	f.dropIncoming(t, "crm", "orders_BATCH000004.csv")

	_, err := f.orch.Run(t.Context(), "acme", ModeRestart)
	if !errors.Is(err, ErrNoBatchInfo) {
		t.Fatalf("err = %v, want ErrNoBatchInfo", err)
	}
	if !strings.Contains(err.Error(), "NO_BATCH_INFO_FOR_BATCH000004") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunRestartFindsFileInStaging(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	renamed := seedCrashedRun(t, f, true)

	// The crash hit after the move to success staging but before the stages.
	src := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaIncoming), renamed)
	dst := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaSuccess), renamed)
	if err := layout.MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}

	result, err := f.orch.Run(t.Context(), "acme", ModeRestart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !f.fileIn("crm", layout.AreaArchive, renamed) {
		t.Fatal("resumed file should archive")
	}
}

func TestRunRestartNothingWaiting(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	renamed := seedCrashedRun(t, f, true)
	// The file completed before the crash after all.
	src := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaIncoming), renamed)
	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}

	_, err := f.orch.Run(t.Context(), "acme", ModeRestart)
	if !errors.Is(err, ErrNoFilesOnRestart) {
		t.Fatalf("err = %v, want ErrNoFilesOnRestart", err)
	}
}

func TestRunReprocessingSkipsConvert(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	renamed := seedCrashedRun(t, f, true)

	// The original run converted the file, then failed at load.
	path := f.lay.ManifestPath("acme", "BATCH000004", layout.AreaIncoming)
	if err := f.runner.manifests.SetArtifact(path, renamed, "crm", "orders_BATCH000004.parquet"); err != nil {
		t.Fatal(err)
	}
	f.dropArtifact(t, "crm", "orders_BATCH000004.parquet")
	src := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaIncoming), renamed)
	dst := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaFailed), renamed)
	if err := layout.MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}

	result, err := f.orch.Run(t.Context(), "acme", ModeReprocessing)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if f.runner.called(StageConvert, renamed) {
		t.Fatal("convert never runs during reprocessing")
	}
	if !f.runner.called(StageLoad, renamed) {
		t.Fatal("load should run")
	}
	if !f.fileIn("crm", layout.AreaArchive, renamed) {
		t.Fatal("reprocessed file should archive")
	}

	jobs, _ := f.store.RecentJobs(t.Context(), 10)
	if len(jobs) != 1 || jobs[0].JobName != "Batch Reprocessing" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestRunReprocessingRepairsLostArtifactName(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	renamed := seedCrashedRun(t, f, true)

	// The crash hit between the artifact write and the manifest update: the
	// parquet file exists on disk but the entry carries no parquet_name. The
	// artifact correlates back to the entry by its stripped base name.
	f.dropArtifact(t, "crm", "orders_BATCH000004.parquet")
	src := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaIncoming), renamed)
	dst := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaFailed), renamed)
	if err := layout.MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}

	result, err := f.orch.Run(t.Context(), "acme", ModeReprocessing)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if f.runner.called(StageConvert, renamed) {
		t.Fatal("convert never runs during reprocessing")
	}

	m, err := f.runner.manifests.Read(f.lay.ManifestPath("acme", "BATCH000004", layout.AreaIncoming))
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := m.Entry(renamed)
	if !ok || entry.ParquetName == nil || *entry.ParquetName != "orders_BATCH000004.parquet" {
		t.Fatalf("entry = %+v ok = %v", entry, ok)
	}
}

func TestRunReprocessingSkipsUncorrelatedArtifact(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	renamed := seedCrashedRun(t, f, true)

	f.dropArtifact(t, "crm", "orders_BATCH000004.parquet")
	f.dropArtifact(t, "crm", "stray_BATCH000004.parquet")
	src := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaIncoming), renamed)
	dst := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaFailed), renamed)
	if err := layout.MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}

	result, err := f.orch.Run(t.Context(), "acme", ModeReprocessing)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Only the correlated artifact reruns; the stray one is skipped, not failed.
	if result.Processed != 1 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunReprocessingNothingFailed(t *testing.T) {
	f := newFixture(t, "BATCH000004")
	renamed := seedCrashedRun(t, f, true)
	src := filepath.Join(f.lay.RawDir("acme", "crm", layout.AreaIncoming), renamed)
	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}

	_, err := f.orch.Run(t.Context(), "acme", ModeReprocessing)
	if !errors.Is(err, ErrNoFilesToReprocess) {
		t.Fatalf("err = %v, want ErrNoFilesToReprocess", err)
	}
}

func TestBatchIDMalformedFallsBack(t *testing.T) {
	f := newFixture(t, "BATCH000001")
	if err := f.store.UpdateLastBatchID(t.Context(), f.client.ClientID, "garbage"); err != nil {
		t.Fatal(err)
	}
	f.dropIncoming(t, "crm", "orders.csv")

	result, err := f.orch.Run(t.Context(), "acme", ModeStart)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.BatchID != batch.First() {
		t.Fatalf("batch id = %q, want %q", result.BatchID, batch.First())
	}
}

func TestParseMode(t *testing.T) {
	for value, want := range map[string]Mode{
		"start":        ModeStart,
		"restart":      ModeRestart,
		"reprocessing": ModeReprocessing,
	} {
		got, err := ParseMode(value)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", value, got, err)
		}
	}
	if _, err := ParseMode("resume"); err == nil {
		t.Fatal("unknown mode should error")
	}
}
