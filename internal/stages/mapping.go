package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ingot/internal/ledger"
	"ingot/internal/logging"
)

// ValidateMapping checks that every source column named in the config's
// column mapping exists in the parquet artifact. A file whose shape drifted
// from its mapping fails here, before any row is inspected.
func (e *Env) ValidateMapping(ctx context.Context, clientSchema, fileName string) error {
	fc, err := e.resolve(ctx, clientSchema, fileName)
	if err != nil {
		return err
	}
	ctx, log := e.stageLogger(ctx, fc, "mapping_validation", fileName)

	artifact, err := e.artifactPath(fc, fileName)
	if err != nil {
		e.markStage(ctx, fc, "mapping_validation", ledger.StatusFailed, err.Error())
		return err
	}
	columns, _, err := readParquet(artifact)
	if err != nil {
		e.markStage(ctx, fc, "mapping_validation", ledger.StatusFailed, err.Error())
		return err
	}

	mappings, err := e.Store.ColumnMappings(ctx, fc.cfg.ConfigID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		msg := fmt.Sprintf("no column mappings configured for config %d", fc.cfg.ConfigID)
		e.markStage(ctx, fc, "mapping_validation", ledger.StatusFailed, msg)
		return fmt.Errorf("%s", msg)
	}

	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	var missing []string
	for _, m := range mappings {
		if _, ok := present[m.SourceColumn]; !ok {
			missing = append(missing, m.SourceColumn)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		msg := "missing source columns: " + strings.Join(missing, ", ")
		e.markStage(ctx, fc, "mapping_validation", ledger.StatusFailed, msg)
		return fmt.Errorf("%s", msg)
	}

	e.markStage(ctx, fc, "mapping_validation", ledger.StatusSuccess, "")
	log.Info("mapping validated", logging.Int("mapped_columns", len(mappings)))
	return nil
}
