package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
)

const auditColumns = `audit_id, client_id, batch_id, physical_file_name, logical_source_file,
	source_system, source_type, COALESCE(config_id, 0), config_validation_status, convert_status,
	mapping_validation_status, row_validation_status, load_status, batch_status,
	total_rows, valid_rows, invalid_rows, error_message, processed_by, file_received_time,
	created_at, updated_at`

func scanAudit(row interface{ Scan(...any) error }) (*FileAudit, error) {
	var a FileAudit
	err := row.Scan(&a.AuditID, &a.ClientID, &a.BatchID, &a.PhysicalFileName, &a.LogicalSourceFile,
		&a.SourceSystem, &a.SourceType, &a.ConfigID, &a.ConfigValidationStatus, &a.ConvertStatus,
		&a.MappingValidationStatus, &a.RowValidationStatus, &a.LoadStatus, &a.BatchStatus,
		&a.TotalRows, &a.ValidRows, &a.InvalidRows, &a.ErrorMessage, &a.ProcessedBy, &a.FileReceivedTime,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// processIdentity names the process writing an audit row, for tracing which
// host and invocation touched a file.
func processIdentity() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

// InsertFileAudit creates the audit row for a file joining a batch. The row
// starts with every stage PENDING and batch_status IN_PROGRESS. ProcessedBy
// and FileReceivedTime default to this process and the current time.
func (s *Store) InsertFileAudit(ctx context.Context, a FileAudit) (int64, error) {
	ts := now()
	var configID any
	if a.ConfigID != 0 {
		configID = a.ConfigID
	}
	if a.ProcessedBy == "" {
		a.ProcessedBy = processIdentity()
	}
	if a.FileReceivedTime == "" {
		a.FileReceivedTime = ts
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO file_audit_log (client_id, batch_id, physical_file_name, logical_source_file,
			source_system, source_type, config_id, config_validation_status, batch_status,
			processed_by, file_received_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'IN_PROGRESS', ?, ?, ?, ?)`,
		a.ClientID, a.BatchID, a.PhysicalFileName, a.LogicalSourceFile,
		a.SourceSystem, a.SourceType, configID, orPending(a.ConfigValidationStatus),
		a.ProcessedBy, a.FileReceivedTime, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("insert file audit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("audit id: %w", err)
	}
	return id, nil
}

func orPending(status string) string {
	if status == "" {
		return StatusPending
	}
	return status
}

// LookupFileAudit returns the audit row for a physical file within a batch.
// The restart gate depends on this returning ErrNotFound for unseen files.
func (s *Store) LookupFileAudit(ctx context.Context, clientID int64, batchID, physicalFileName string) (*FileAudit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+auditColumns+`
		FROM file_audit_log
		WHERE client_id = ? AND batch_id = ? AND physical_file_name = ?
		ORDER BY audit_id DESC LIMIT 1`, clientID, batchID, physicalFileName)
	a, err := scanAudit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: audit record for %q in %s", ErrNotFound, physicalFileName, batchID)
		}
		return nil, fmt.Errorf("lookup file audit: %w", err)
	}
	return a, nil
}

// BatchAudits returns all audit rows for a batch ordered by creation.
func (s *Store) BatchAudits(ctx context.Context, clientID int64, batchID string) ([]FileAudit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM file_audit_log
		WHERE client_id = ? AND batch_id = ?
		ORDER BY audit_id`, clientID, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch audits: %w", err)
	}
	defer rows.Close()

	var audits []FileAudit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		audits = append(audits, *a)
	}
	return audits, rows.Err()
}

// stageColumns whitelists the per-stage status columns so callers can never
// smuggle arbitrary SQL through a stage name.
var stageColumns = map[string]string{
	"config_validation":  "config_validation_status",
	"convert":            "convert_status",
	"mapping_validation": "mapping_validation_status",
	"row_validation":     "row_validation_status",
	"load":               "load_status",
}

// UpdateStageStatus sets one stage's status on an audit row, appending the
// error message when one is supplied.
func (s *Store) UpdateStageStatus(ctx context.Context, auditID int64, stage, status, errorMessage string) error {
	column, ok := stageColumns[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	query := fmt.Sprintf(`UPDATE file_audit_log SET %s = ?, error_message = ?, updated_at = ? WHERE audit_id = ?`, column)
	res, err := s.db.ExecContext(ctx, query, status, errorMessage, now(), auditID)
	if err != nil {
		return fmt.Errorf("update %s status: %w", stage, err)
	}
	return requireRow(res, auditID)
}

// UpdateBatchStatus sets the overall batch_status on an audit row.
func (s *Store) UpdateBatchStatus(ctx context.Context, auditID int64, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE file_audit_log SET batch_status = ?, updated_at = ? WHERE audit_id = ?`,
		status, now(), auditID)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	return requireRow(res, auditID)
}

// UpdateRowCounts records the row validation tallies for an audit row.
func (s *Store) UpdateRowCounts(ctx context.Context, auditID, total, valid, invalid int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE file_audit_log SET total_rows = ?, valid_rows = ?, invalid_rows = ?, updated_at = ?
		WHERE audit_id = ?`, total, valid, invalid, now(), auditID)
	if err != nil {
		return fmt.Errorf("update row counts: %w", err)
	}
	return requireRow(res, auditID)
}

// ResetStagesForRerun returns an audit row to its pre-pipeline state so a
// restart or reprocessing run can drive it through the stages again.
func (s *Store) ResetStagesForRerun(ctx context.Context, auditID int64, skipConvert bool) error {
	convertStatus := StatusPending
	if skipConvert {
		convertStatus = StatusSkipped
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE file_audit_log SET
			convert_status = ?,
			mapping_validation_status = 'PENDING',
			row_validation_status = 'PENDING',
			load_status = 'PENDING',
			batch_status = 'IN_PROGRESS',
			error_message = '',
			updated_at = ?
		WHERE audit_id = ?`, convertStatus, now(), auditID)
	if err != nil {
		return fmt.Errorf("reset audit stages: %w", err)
	}
	return requireRow(res, auditID)
}

func requireRow(res sql.Result, auditID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: audit row %d", ErrNotFound, auditID)
	}
	return nil
}
