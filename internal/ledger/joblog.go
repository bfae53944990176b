package ledger

import (
	"context"
	"fmt"
)

// StartJob opens a job_execution_log row in RUNNING state and returns its id.
func (s *Store) StartJob(ctx context.Context, jobName, clientSchema, batchID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_execution_log (job_name, client_schema, batch_id, status, started_at)
		VALUES (?, ?, ?, 'RUNNING', ?)`, jobName, clientSchema, batchID, now())
	if err != nil {
		return 0, fmt.Errorf("start job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job id: %w", err)
	}
	return id, nil
}

// CompleteJob finalizes a job row with its terminal status, the run summary
// or failure reason, and the first failing file when one is known.
func (s *Store) CompleteJob(ctx context.Context, jobID int64, status, errorMessage, fileName string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_execution_log SET status = ?, error_message = ?, file_name = ?, completed_at = ?
		WHERE job_id = ?`, status, errorMessage, fileName, now(), jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: job row %d", ErrNotFound, jobID)
	}
	return nil
}

// RecentJobs returns the newest job executions, most recent first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]JobExecution, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, job_name, client_schema, batch_id, status, error_message, file_name,
		       started_at, completed_at
		FROM job_execution_log
		ORDER BY job_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobExecution
	for rows.Next() {
		var j JobExecution
		if err := rows.Scan(&j.JobID, &j.JobName, &j.ClientSchema, &j.BatchID,
			&j.Status, &j.ErrorMessage, &j.FileName, &j.StartedAt, &j.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
