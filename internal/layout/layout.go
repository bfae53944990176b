// Package layout defines the on-disk directory convention under the data
// root and the file movement primitives that shuttle files between areas.
//
//	raw/{client}/{system}/{incoming,success,failed,archive}
//	data/{client}/{system}/{incoming,archive,failed}
//	batch_info/{client}/{incoming,success,failed,archive}
package layout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Area names a lifecycle subdirectory within a raw, data, or batch_info tree.
type Area string

const (
	AreaIncoming Area = "incoming"
	AreaSuccess  Area = "success"
	AreaFailed   Area = "failed"
	AreaArchive  Area = "archive"
)

// Layout resolves paths beneath a single data root.
type Layout struct {
	root string
}

// New returns a Layout rooted at dataRoot.
func New(dataRoot string) *Layout {
	return &Layout{root: dataRoot}
}

// RawDir returns the raw file area for a client and source system.
func (l *Layout) RawDir(clientSchema, sourceSystem string, area Area) string {
	return filepath.Join(l.root, "raw", clientSchema, sourceSystem, string(area))
}

// DataDir returns the converted artifact area for a client and source system.
func (l *Layout) DataDir(clientSchema, sourceSystem string, area Area) string {
	return filepath.Join(l.root, "data", clientSchema, sourceSystem, string(area))
}

// BatchInfoDir returns the manifest area for a client.
func (l *Layout) BatchInfoDir(clientSchema string, area Area) string {
	return filepath.Join(l.root, "batch_info", clientSchema, string(area))
}

// ManifestFileName returns the manifest file name for a client batch.
func ManifestFileName(clientSchema, batchID string) string {
	return fmt.Sprintf("batch_output_%s_%s.json", clientSchema, batchID)
}

// ManifestPath returns the full manifest path in the given area.
func (l *Layout) ManifestPath(clientSchema, batchID string, area Area) string {
	return filepath.Join(l.BatchInfoDir(clientSchema, area), ManifestFileName(clientSchema, batchID))
}

// EnsureClientDirs creates every area directory for a client across the
// configured source systems. Creation is idempotent.
func (l *Layout) EnsureClientDirs(clientSchema string, sourceSystems []string) error {
	var dirs []string
	for _, system := range sourceSystems {
		for _, area := range []Area{AreaIncoming, AreaSuccess, AreaFailed, AreaArchive} {
			dirs = append(dirs, l.RawDir(clientSchema, system, area))
		}
		for _, area := range []Area{AreaIncoming, AreaArchive, AreaFailed} {
			dirs = append(dirs, l.DataDir(clientSchema, system, area))
		}
	}
	for _, area := range []Area{AreaIncoming, AreaSuccess, AreaFailed, AreaArchive} {
		dirs = append(dirs, l.BatchInfoDir(clientSchema, area))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MoveFile relocates a file, creating the destination directory when needed.
// A cross-device rename falls back to copy plus remove.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy contents: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("sync destination: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}

// ListIncoming returns the file names (not paths) sitting in a directory,
// skipping subdirectories and hidden files. A missing directory is treated
// as empty.
func ListIncoming(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %q: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) > 0 && name[0] == '.' {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
