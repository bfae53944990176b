// Package manifest implements the per-batch JSON manifest that records the
// files claimed by a batch run and the parquet artifact derived for each.
// The manifest doubles as the synchronization point between the orchestrator
// and the convert executor, so every mutation goes through an advisory file
// lock and an atomic write.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"ingot/internal/batch"
)

// FileEntry describes a single file claimed by a batch.
type FileEntry struct {
	PhysicalFileName  string  `json:"physical_file_name"`
	LogicalSourceFile string  `json:"logical_source_file"`
	SourceSystem      string  `json:"source_system"`
	SourceType        string  `json:"source_type"`
	TargetSchema      string  `json:"target_schema"`
	TargetTable       string  `json:"target_table"`
	SourceConfig      string  `json:"source_config"`
	ParquetName       *string `json:"parquet_name"`
}

// Manifest is the batch-level document. Files is ordered by first upsert.
type Manifest struct {
	ClientSchema string      `json:"client_schema"`
	ClientID     int64       `json:"client_id"`
	BatchID      string      `json:"batch_id"`
	Files        []FileEntry `json:"files"`
}

// ErrCorrupt reports a manifest that exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt batch manifest")

// ErrArtifactTimeout reports that the convert executor never published a
// parquet name for a file within the wait window.
var ErrArtifactTimeout = errors.New("timed out waiting for parquet artifact")

// Store reads and writes manifests with a bounded retry discipline.
type Store struct {
	retryAttempts int
	retryDelay    time.Duration
}

// NewStore returns a Store. Reads that hit a partially visible manifest are
// retried attempts times with delay between tries.
func NewStore(retryAttempts int, retryDelay time.Duration) *Store {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Store{retryAttempts: retryAttempts, retryDelay: retryDelay}
}

// Read loads and decodes a manifest. A missing file is returned immediately
// as fs.ErrNotExist; decode failures are retried before ErrCorrupt surfaces.
func (s *Store) Read(path string) (*Manifest, error) {
	var lastErr error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.retryDelay)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			lastErr = err
			continue
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			lastErr = fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
			continue
		}
		return &m, nil
	}
	return nil, lastErr
}

// WriteAtomic persists a manifest with a same-directory temp file, fsync,
// and rename so readers never observe a torn document.
func (s *Store) WriteAtomic(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish manifest: %w", err)
	}
	return nil
}

// withLock serializes mutations across processes using a sidecar lock file.
// The manifest directory may not exist yet on the first mutation of a batch.
func (s *Store) withLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire manifest lock: %w", err)
	}
	defer lock.Unlock()
	return fn()
}

// UpsertFileEntry merges an entry into the manifest keyed by physical file
// name, creating the manifest when absent. A non-null parquet_name already
// on disk is never replaced by a null one, so convert results survive
// concurrent orchestrator rewrites.
func (s *Store) UpsertFileEntry(path string, header Manifest, entry FileEntry) error {
	return s.withLock(path, func() error {
		current, err := s.Read(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			current = &Manifest{
				ClientSchema: header.ClientSchema,
				ClientID:     header.ClientID,
				BatchID:      header.BatchID,
			}
		}
		merged := false
		for i := range current.Files {
			if !strings.EqualFold(current.Files[i].PhysicalFileName, entry.PhysicalFileName) {
				continue
			}
			if entry.ParquetName == nil && current.Files[i].ParquetName != nil {
				entry.ParquetName = current.Files[i].ParquetName
			}
			current.Files[i] = entry
			merged = true
			break
		}
		if !merged {
			current.Files = append(current.Files, entry)
		}
		return s.WriteAtomic(path, current)
	})
}

// SetArtifact records the parquet artifact derived for a source file. The
// entry is correlated by exact physical name, then case-insensitive physical
// name, then logical source file, then the normalized batch-stripped stem.
// When no entry correlates, a minimal one is appended so the artifact is
// never lost.
func (s *Store) SetArtifact(path, fileName, sourceSystem, parquetName string) error {
	return s.withLock(path, func() error {
		current, err := s.Read(path)
		if err != nil {
			return err
		}
		idx := correlate(current.Files, fileName)
		if idx < 0 {
			current.Files = append(current.Files, FileEntry{
				PhysicalFileName:  fileName,
				LogicalSourceFile: batch.StripSuffix(batch.Normalize(fileName)),
				SourceSystem:      sourceSystem,
				ParquetName:       &parquetName,
			})
		} else {
			current.Files[idx].ParquetName = &parquetName
		}
		return s.WriteAtomic(path, current)
	})
}

func correlate(files []FileEntry, fileName string) int {
	for i := range files {
		if files[i].PhysicalFileName == fileName {
			return i
		}
	}
	for i := range files {
		if strings.EqualFold(files[i].PhysicalFileName, fileName) {
			return i
		}
	}
	normalized := batch.Normalize(fileName)
	for i := range files {
		if files[i].LogicalSourceFile == normalized {
			return i
		}
	}
	stripped := batch.StripSuffix(normalized)
	for i := range files {
		if files[i].LogicalSourceFile == stripped {
			return i
		}
	}
	return -1
}

// WaitForArtifact polls the manifest until the entry for fileName carries a
// parquet name, the timeout elapses, or the context is canceled.
func (s *Store) WaitForArtifact(ctx context.Context, path, fileName string, timeout, pollInterval time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		m, err := s.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if m != nil {
			if idx := correlate(m.Files, fileName); idx >= 0 {
				if name := m.Files[idx].ParquetName; name != nil && *name != "" {
					return *name, nil
				}
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: %s", ErrArtifactTimeout, fileName)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// Entry returns the manifest entry for a physical file name.
func (m *Manifest) Entry(fileName string) (*FileEntry, bool) {
	if idx := correlate(m.Files, fileName); idx >= 0 {
		return &m.Files[idx], true
	}
	return nil, false
}
