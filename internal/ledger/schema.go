package ledger

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS client_reference (
		client_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_schema TEXT NOT NULL UNIQUE,
		client_name TEXT NOT NULL DEFAULT '',
		last_batch_id TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS client_config (
		config_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL REFERENCES client_reference(client_id),
		source_system TEXT NOT NULL,
		source_type TEXT NOT NULL,
		logical_source_file TEXT NOT NULL,
		target_schema TEXT NOT NULL,
		target_table TEXT NOT NULL,
		source_config TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_client_config_lookup
		ON client_config(client_id, source_system, logical_source_file, active);`,
	`CREATE TABLE IF NOT EXISTS column_mapping (
		mapping_id INTEGER PRIMARY KEY AUTOINCREMENT,
		config_id INTEGER NOT NULL REFERENCES client_config(config_id),
		source_column TEXT NOT NULL,
		target_column TEXT NOT NULL,
		data_type TEXT NOT NULL DEFAULT 'text',
		is_required INTEGER NOT NULL DEFAULT 0,
		ordinal INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS file_audit_log (
		audit_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL REFERENCES client_reference(client_id),
		batch_id TEXT NOT NULL,
		physical_file_name TEXT NOT NULL,
		logical_source_file TEXT NOT NULL,
		source_system TEXT NOT NULL,
		source_type TEXT NOT NULL DEFAULT '',
		config_id INTEGER,
		config_validation_status TEXT NOT NULL DEFAULT 'PENDING',
		convert_status TEXT NOT NULL DEFAULT 'PENDING',
		mapping_validation_status TEXT NOT NULL DEFAULT 'PENDING',
		row_validation_status TEXT NOT NULL DEFAULT 'PENDING',
		load_status TEXT NOT NULL DEFAULT 'PENDING',
		batch_status TEXT NOT NULL DEFAULT 'IN_PROGRESS',
		total_rows INTEGER NOT NULL DEFAULT 0,
		valid_rows INTEGER NOT NULL DEFAULT 0,
		invalid_rows INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		processed_by TEXT NOT NULL DEFAULT '',
		file_received_time TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_file_audit_batch
		ON file_audit_log(client_id, batch_id);`,
	`CREATE TABLE IF NOT EXISTS job_execution_log (
		job_id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_name TEXT NOT NULL,
		client_schema TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS integration_config (
		integration_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL REFERENCES client_reference(client_id),
		procedure_name TEXT NOT NULL,
		table_type TEXT NOT NULL CHECK (table_type IN ('dimension', 'fact')),
		run_order INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		UNIQUE (client_id, procedure_name)
	);`,
	`CREATE TABLE IF NOT EXISTS integration_dependency (
		dependency_id INTEGER PRIMARY KEY AUTOINCREMENT,
		integration_id INTEGER NOT NULL REFERENCES integration_config(integration_id),
		depends_on TEXT NOT NULL,
		UNIQUE (integration_id, depends_on)
	);`,
	`CREATE TABLE IF NOT EXISTS integration_log (
		log_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL REFERENCES client_reference(client_id),
		batch_id TEXT NOT NULL,
		procedure_name TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		executed_at TEXT NOT NULL
	);`,
}

func (s *Store) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
