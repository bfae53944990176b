// Package matcher resolves incoming files against ingestion configs. A file
// matches a config when its normalized, batch-stripped name equals the
// config's logical source file within the same source system and its
// extension equals the config's source type. Ambiguity is never resolved
// silently; overlapping configs are a setup defect surfaced as an error.
package matcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"ingot/internal/batch"
	"ingot/internal/ledger"
)

// ErrAmbiguousConfig reports that more than one active config claims a file.
var ErrAmbiguousConfig = errors.New("ambiguous ingestion config")

// Resolve finds the config for a physical file within a source system.
// No match returns (nil, nil); the caller decides whether that is an error.
// Multiple matches return ErrAmbiguousConfig naming the competing config ids.
func Resolve(configs []ledger.IngestionConfig, sourceSystem, fileName string) (*ledger.IngestionConfig, error) {
	logical := batch.StripSuffix(batch.Normalize(fileName))
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")

	var matches []ledger.IngestionConfig
	for _, cfg := range configs {
		if !cfg.Active {
			continue
		}
		if !strings.EqualFold(cfg.SourceSystem, sourceSystem) {
			continue
		}
		if !strings.EqualFold(cfg.SourceType, ext) {
			continue
		}
		if cfg.LogicalSourceFile == logical {
			matches = append(matches, cfg)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		cfg := matches[0]
		return &cfg, nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = fmt.Sprintf("%d", m.ConfigID)
		}
		return nil, fmt.Errorf("%w: file %q in %s matches configs [%s]",
			ErrAmbiguousConfig, fileName, sourceSystem, strings.Join(ids, ", "))
	}
}

// ValidateConfigs checks a client's config set for duplicate
// (source_system, source_type, logical_source_file) triples before any file
// is claimed.
func ValidateConfigs(configs []ledger.IngestionConfig) error {
	type key struct {
		system  string
		sType   string
		logical string
	}
	byKey := make(map[key][]int64)
	for _, cfg := range configs {
		if !cfg.Active {
			continue
		}
		k := key{
			system:  strings.ToLower(cfg.SourceSystem),
			sType:   strings.ToLower(cfg.SourceType),
			logical: cfg.LogicalSourceFile,
		}
		byKey[k] = append(byKey[k], cfg.ConfigID)
	}

	var conflicts []string
	for k, ids := range byKey {
		if len(ids) < 2 {
			continue
		}
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf("%d", id)
		}
		sort.Strings(parts)
		conflicts = append(conflicts, fmt.Sprintf("%s/%s/%s -> [%s]", k.system, k.sType, k.logical, strings.Join(parts, ", ")))
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return fmt.Errorf("%w: %s", ErrAmbiguousConfig, strings.Join(conflicts, "; "))
	}
	return nil
}
