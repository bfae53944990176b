package ledger

import (
	"context"
	"fmt"
)

// ActiveConfigs returns the active ingestion configs for a client, ordered
// by source system then logical source file for stable matching diagnostics.
func (s *Store) ActiveConfigs(ctx context.Context, clientID int64) ([]IngestionConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT config_id, client_id, source_system, source_type, logical_source_file,
		       target_schema, target_table, source_config, active
		FROM client_config
		WHERE client_id = ? AND active = 1
		ORDER BY source_system, logical_source_file, config_id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query configs: %w", err)
	}
	defer rows.Close()

	var configs []IngestionConfig
	for rows.Next() {
		var c IngestionConfig
		var active int
		if err := rows.Scan(&c.ConfigID, &c.ClientID, &c.SourceSystem, &c.SourceType,
			&c.LogicalSourceFile, &c.TargetSchema, &c.TargetTable, &c.SourceConfig, &active); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		c.Active = active != 0
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// CreateIngestionConfig inserts a new active ingestion config.
func (s *Store) CreateIngestionConfig(ctx context.Context, cfg IngestionConfig) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO client_config (client_id, source_system, source_type, logical_source_file,
			target_schema, target_table, source_config, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		cfg.ClientID, cfg.SourceSystem, cfg.SourceType, cfg.LogicalSourceFile,
		cfg.TargetSchema, cfg.TargetTable, cfg.SourceConfig, now())
	if err != nil {
		return 0, fmt.Errorf("create config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("config id: %w", err)
	}
	return id, nil
}

// ColumnMappings returns the column mappings for a config in ordinal order.
func (s *Store) ColumnMappings(ctx context.Context, configID int64) ([]ColumnMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mapping_id, config_id, source_column, target_column, data_type, is_required, ordinal
		FROM column_mapping
		WHERE config_id = ?
		ORDER BY ordinal, mapping_id`, configID)
	if err != nil {
		return nil, fmt.Errorf("query column mappings: %w", err)
	}
	defer rows.Close()

	var mappings []ColumnMapping
	for rows.Next() {
		var m ColumnMapping
		var required int
		if err := rows.Scan(&m.MappingID, &m.ConfigID, &m.SourceColumn, &m.TargetColumn,
			&m.DataType, &required, &m.Ordinal); err != nil {
			return nil, fmt.Errorf("scan column mapping: %w", err)
		}
		m.IsRequired = required != 0
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// CreateColumnMapping inserts a column mapping row for a config.
func (s *Store) CreateColumnMapping(ctx context.Context, m ColumnMapping) (int64, error) {
	required := 0
	if m.IsRequired {
		required = 1
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO column_mapping (config_id, source_column, target_column, data_type, is_required, ordinal)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ConfigID, m.SourceColumn, m.TargetColumn, m.DataType, required, m.Ordinal)
	if err != nil {
		return 0, fmt.Errorf("create column mapping: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("mapping id: %w", err)
	}
	return id, nil
}
