package stages

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ingot/internal/batch"
	"ingot/internal/layout"
	"ingot/internal/ledger"
	"ingot/internal/logging"
)

// Convert parses a raw source file and publishes it as a parquet artifact in
// the data incoming area, then records the artifact name in the batch
// manifest. Only csv and json sources are supported; anything else fails the
// stage.
func (e *Env) Convert(ctx context.Context, clientSchema, fileName string) error {
	fc, err := e.resolve(ctx, clientSchema, fileName)
	if err != nil {
		return err
	}
	ctx, log := e.stageLogger(ctx, fc, "convert", fileName)

	src, err := e.locateRawFile(clientSchema, fc.audit.SourceSystem, fileName)
	if err != nil {
		e.markStage(ctx, fc, "convert", ledger.StatusFailed, err.Error())
		return err
	}

	columns, rows, err := parseSource(src, fc.cfg.SourceType)
	if err != nil {
		e.markStage(ctx, fc, "convert", ledger.StatusFailed, err.Error())
		return err
	}

	logical := batch.StripSuffix(batch.Normalize(fileName))
	parquetName := fmt.Sprintf("%s_%s.parquet", logical, fc.batchID)
	dst := filepath.Join(e.Lay.DataDir(clientSchema, fc.audit.SourceSystem, layout.AreaIncoming), parquetName)
	if err := writeParquet(dst, logical, columns, rows); err != nil {
		e.markStage(ctx, fc, "convert", ledger.StatusFailed, err.Error())
		return err
	}

	manifestPath := e.Lay.ManifestPath(clientSchema, fc.batchID, layout.AreaIncoming)
	if err := e.Manifests.SetArtifact(manifestPath, fileName, fc.audit.SourceSystem, parquetName); err != nil {
		e.markStage(ctx, fc, "convert", ledger.StatusFailed, err.Error())
		return err
	}

	e.markStage(ctx, fc, "convert", ledger.StatusSuccess, "")
	log.Info("converted to parquet",
		logging.String("artifact", parquetName),
		logging.Int("rows", len(rows)))
	return nil
}

func parseSource(path, sourceType string) ([]string, []map[string]any, error) {
	switch strings.ToLower(sourceType) {
	case "csv":
		return parseCSV(path)
	case "json":
		return parseJSON(path)
	default:
		return nil, nil, fmt.Errorf("unsupported source type %q (csv, json)", sourceType)
	}
}

func parseCSV(path string) ([]string, []map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty csv source")
		}
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.TrimSpace(col)
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// parseJSON accepts either a top-level array of objects or newline
// delimited objects.
func parseJSON(path string) ([]string, []map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}

	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		objects = objects[:0]
		decoder := json.NewDecoder(strings.NewReader(string(data)))
		for {
			var obj map[string]any
			if err := decoder.Decode(&obj); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, nil, fmt.Errorf("parse json source: %w", err)
			}
			objects = append(objects, obj)
		}
	}
	if len(objects) == 0 {
		return nil, nil, errors.New("empty json source")
	}

	colSet := map[string]struct{}{}
	for _, obj := range objects {
		for col := range obj {
			colSet[col] = struct{}{}
		}
	}
	columns := make([]string, 0, len(colSet))
	for col := range colSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	rows := make([]map[string]any, 0, len(objects))
	for _, obj := range objects {
		row := make(map[string]any, len(obj))
		for col, value := range obj {
			if value == nil {
				continue
			}
			row[col] = jsonValueToString(value)
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

func jsonValueToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64, bool:
		return fmt.Sprint(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
