package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// BatchColumn is appended to every bronze table so a batch's rows can be
// deleted and reloaded idempotently.
const BatchColumn = "dwh_batch_id"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// BronzeTableName returns the physical table for a target schema and table.
func BronzeTableName(targetSchema, targetTable string) string {
	return targetSchema + "_" + targetTable
}

// EnsureBronzeTable creates the bronze landing table for a config when it
// does not exist. All data columns are TEXT; typing happens downstream.
func (s *Store) EnsureBronzeTable(ctx context.Context, targetSchema, targetTable string, columns []string) error {
	table := BronzeTableName(targetSchema, targetTable)
	if err := validIdentifier(table); err != nil {
		return err
	}
	defs := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		if err := validIdentifier(col); err != nil {
			return err
		}
		if strings.EqualFold(col, BatchColumn) {
			continue
		}
		defs = append(defs, fmt.Sprintf("%s TEXT", col))
	}
	defs = append(defs, BatchColumn+" TEXT NOT NULL")

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create bronze table %s: %w", table, err)
	}
	return nil
}

// DeleteBatchRows removes a batch's rows from a bronze table so a rerun
// never double loads.
func (s *Store) DeleteBatchRows(ctx context.Context, targetSchema, targetTable, batchID string) (int64, error) {
	table := BronzeTableName(targetSchema, targetTable)
	if err := validIdentifier(table); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, BatchColumn), batchID)
	if err != nil {
		return 0, fmt.Errorf("delete batch rows from %s: %w", table, err)
	}
	return res.RowsAffected()
}

// InsertBronzeRows loads mapped rows into a bronze table inside a single
// transaction. Missing columns land as NULL.
func (s *Store) InsertBronzeRows(ctx context.Context, targetSchema, targetTable string, columns []string, rows []map[string]string, batchID string) (int64, error) {
	table := BronzeTableName(targetSchema, targetTable)
	if err := validIdentifier(table); err != nil {
		return 0, err
	}
	for _, col := range columns {
		if err := validIdentifier(col); err != nil {
			return 0, err
		}
	}

	all := append(append([]string{}, columns...), BatchColumn)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")
	stmtText := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(all, ", "), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, stmtText)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		args := make([]any, 0, len(all))
		for _, col := range columns {
			if value, ok := row[col]; ok {
				args = append(args, value)
			} else {
				args = append(args, nil)
			}
		}
		args = append(args, batchID)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row into %s: %w", table, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}
	return inserted, nil
}

// CountBatchRows returns how many rows a batch holds in a bronze table.
func (s *Store) CountBatchRows(ctx context.Context, targetSchema, targetTable, batchID string) (int64, error) {
	table := BronzeTableName(targetSchema, targetTable)
	if err := validIdentifier(table); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", table, BatchColumn), batchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count batch rows in %s: %w", table, err)
	}
	return count, nil
}

// ExecScript runs a SQL script with named parameters. Integration procedures
// execute through this so scripts can reference :client_schema and :batch_id.
func (s *Store) ExecScript(ctx context.Context, script string, params map[string]any) error {
	args := make([]any, 0, len(params))
	for name, value := range params {
		args = append(args, sql.Named(name, value))
	}
	if _, err := s.db.ExecContext(ctx, script, args...); err != nil {
		return fmt.Errorf("execute script: %w", err)
	}
	return nil
}
