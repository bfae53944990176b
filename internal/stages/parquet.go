package stages

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
)

// writeParquet persists rows as a parquet file with every column optional
// TEXT. Typing is deferred to downstream layers; the bronze contract is
// strings plus nulls. The write lands atomically via temp file and rename.
func writeParquet(path, name string, columns []string, rows []map[string]any) error {
	nodes := parquet.Group{}
	for _, col := range columns {
		nodes[col] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema(name, nodes)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	writer := parquet.NewGenericWriter[map[string]any](tmp, schema,
		parquet.Compression(&parquet.Snappy))
	for _, row := range rows {
		if _, err := writer.Write([]map[string]any{row}); err != nil {
			cleanup()
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// readParquet loads a parquet artifact back into column names and string
// rows. Null values are absent from the row maps.
func readParquet(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat artifact: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("parse artifact: %w", err)
	}

	var columns []string
	for _, field := range pf.Schema().Fields() {
		columns = append(columns, field.Name())
	}
	sort.Strings(columns)

	reader := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer reader.Close()

	var rows []map[string]string
	buf := make([]map[string]any, 64)
	for {
		for i := range buf {
			buf[i] = map[string]any{}
		}
		n, err := reader.Read(buf)
		for _, raw := range buf[:n] {
			row := make(map[string]string, len(raw))
			for col, value := range raw {
				if value == nil {
					continue
				}
				row[col] = toString(value)
			}
			rows = append(rows, row)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return columns, rows, nil
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
