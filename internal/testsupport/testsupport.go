// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"ingot/internal/config"
	"ingot/internal/ledger"
)

// NewConfig returns a validated configuration rooted in a temp directory
// with timings tightened for tests.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Paths.DataRoot = root
	cfg.Paths.DBPath = filepath.Join(root, "ingot.db")
	cfg.Paths.ProceduresDir = filepath.Join(root, "procedures")
	cfg.Workflow.ArtifactWaitTimeoutSec = 2
	cfg.Workflow.ArtifactPollIntervalMS = 10
	cfg.Workflow.ManifestRetryAttempts = 3
	cfg.Workflow.ManifestRetryDelayMS = 5
	cfg.Workflow.ExecutorTimeoutSec = 10

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// OpenStore opens a ledger store on the config's database path and closes
// it when the test finishes.
func OpenStore(t *testing.T, cfg *config.Config) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(t.Context(), cfg.Paths.DBPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// SeedClient registers a client schema for tests.
func SeedClient(t *testing.T, store *ledger.Store, schema string) *ledger.Client {
	t.Helper()
	client, err := store.CreateClient(t.Context(), schema, schema+" test client")
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

// SeedConfig registers an active ingestion config and returns its id.
func SeedConfig(t *testing.T, store *ledger.Store, clientID int64, system, sourceType, logical, table string) int64 {
	t.Helper()
	id, err := store.CreateIngestionConfig(t.Context(), ledger.IngestionConfig{
		ClientID:          clientID,
		SourceSystem:      system,
		SourceType:        sourceType,
		LogicalSourceFile: logical,
		TargetSchema:      "bronze",
		TargetTable:       table,
	})
	if err != nil {
		t.Fatalf("seed config: %v", err)
	}
	return id
}
