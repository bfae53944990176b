package manifest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore() *Store {
	return NewStore(3, 5*time.Millisecond)
}

func header() Manifest {
	return Manifest{ClientSchema: "acme", ClientID: 7, BatchID: "BATCH000002"}
}

func TestUpsertCreatesManifest(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "batch_output_acme_BATCH000002.json")

	entry := FileEntry{
		PhysicalFileName:  "orders_BATCH000002.csv",
		LogicalSourceFile: "orders",
		SourceSystem:      "crm",
		SourceType:        "csv",
		TargetSchema:      "acme",
		TargetTable:       "orders",
		SourceConfig:      `{"delimiter":","}`,
	}
	if err := store.UpsertFileEntry(path, header(), entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	m, err := store.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.BatchID != "BATCH000002" || len(m.Files) != 1 {
		t.Fatalf("manifest = %+v", m)
	}
	if m.Files[0].ParquetName != nil {
		t.Fatal("fresh entry should have null parquet_name")
	}
}

func TestUpsertCreatesMissingDirectories(t *testing.T) {
	store := newTestStore()
	// The batch_info tree for a new client does not exist until the first
	// manifest write; the lock must not require it.
	path := filepath.Join(t.TempDir(), "batch_info", "acme", "incoming", "batch_output_acme_BATCH000002.json")

	entry := FileEntry{PhysicalFileName: "orders_BATCH000002.csv", LogicalSourceFile: "orders"}
	if err := store.UpsertFileEntry(path, header(), entry); err != nil {
		t.Fatalf("upsert into fresh tree: %v", err)
	}
	m, err := store.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(m.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(m.Files))
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "m.json")
	entry := FileEntry{PhysicalFileName: "orders_BATCH000002.csv", LogicalSourceFile: "orders", SourceConfig: `{"delimiter":","}`}

	for i := 0; i < 3; i++ {
		if err := store.UpsertFileEntry(path, header(), entry); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	m, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(m.Files))
	}
}

func TestUpsertPreservesParquetName(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "m.json")
	entry := FileEntry{PhysicalFileName: "orders_BATCH000002.csv", LogicalSourceFile: "orders"}

	if err := store.UpsertFileEntry(path, header(), entry); err != nil {
		t.Fatal(err)
	}
	if err := store.SetArtifact(path, "orders_BATCH000002.csv", "crm", "orders_BATCH000002.parquet"); err != nil {
		t.Fatal(err)
	}
	// Re-upsert with a null parquet_name must not erase the artifact.
	if err := store.UpsertFileEntry(path, header(), entry); err != nil {
		t.Fatal(err)
	}

	m, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Files[0].ParquetName == nil || *m.Files[0].ParquetName != "orders_BATCH000002.parquet" {
		t.Fatalf("parquet_name = %v", m.Files[0].ParquetName)
	}
}

func TestSetArtifactCorrelatesByLogicalName(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "m.json")
	entry := FileEntry{PhysicalFileName: "Orders_BATCH000002.CSV", LogicalSourceFile: "orders"}
	if err := store.UpsertFileEntry(path, header(), entry); err != nil {
		t.Fatal(err)
	}

	// Executor saw a differently cased name; the stripped stem still matches.
	if err := store.SetArtifact(path, "orders_BATCH000002.csv", "crm", "orders_BATCH000002.parquet"); err != nil {
		t.Fatal(err)
	}
	m, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 {
		t.Fatalf("files = %d, want 1 (no duplicate appended)", len(m.Files))
	}
	if m.Files[0].ParquetName == nil {
		t.Fatal("parquet_name not set")
	}
}

func TestSetArtifactAppendsWhenUncorrelated(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "m.json")
	if err := store.WriteAtomic(path, &Manifest{ClientSchema: "acme", BatchID: "BATCH000002"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetArtifact(path, "stray_BATCH000002.csv", "crm", "stray_BATCH000002.parquet"); err != nil {
		t.Fatal(err)
	}
	m, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 || m.Files[0].LogicalSourceFile != "stray" {
		t.Fatalf("manifest = %+v", m)
	}
}

func TestReadMissing(t *testing.T) {
	store := newTestStore()
	_, err := store.Read(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	store := NewStore(2, time.Millisecond)
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := store.Read(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestWaitForArtifact(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "m.json")
	entry := FileEntry{PhysicalFileName: "orders_BATCH000002.csv", LogicalSourceFile: "orders"}
	if err := store.UpsertFileEntry(path, header(), entry); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		store.SetArtifact(path, "orders_BATCH000002.csv", "crm", "orders_BATCH000002.parquet")
	}()

	name, err := store.WaitForArtifact(t.Context(), path, "orders_BATCH000002.csv", time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if name != "orders_BATCH000002.parquet" {
		t.Fatalf("artifact = %q", name)
	}
}

func TestWaitForArtifactTimeout(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "m.json")
	entry := FileEntry{PhysicalFileName: "orders_BATCH000002.csv"}
	if err := store.UpsertFileEntry(path, header(), entry); err != nil {
		t.Fatal(err)
	}

	_, err := store.WaitForArtifact(t.Context(), path, "orders_BATCH000002.csv", 40*time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrArtifactTimeout) {
		t.Fatalf("err = %v, want ErrArtifactTimeout", err)
	}
}

func TestAnnotateIntegrationRerunKeys(t *testing.T) {
	store := newTestStore()
	path := filepath.Join(t.TempDir(), "m.json")
	if err := store.WriteAtomic(path, &Manifest{ClientSchema: "acme", BatchID: "BATCH000002"}); err != nil {
		t.Fatal(err)
	}

	if err := store.AnnotateIntegration(path, map[string]string{"load_dim_customer": "SUCCESS"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AnnotateIntegration(path, map[string]string{"load_dim_customer": "FAILED"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AnnotateIntegration(path, map[string]string{"load_dim_customer": "SUCCESS"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"integration_procedure", "integration_procedure_rerun1", "integration_procedure_rerun2"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("missing annotation key %q in %v", key, doc)
		}
	}
	if doc["batch_id"] != "BATCH000002" {
		t.Fatal("annotation clobbered core manifest fields")
	}
}
