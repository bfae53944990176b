package ledger

import (
	"context"
	"fmt"
)

// ActiveIntegrations returns a client's active integration procedures with
// their dependencies resolved. Dimensions sort before facts; within a tier
// ordering is run_order then procedure name, which fixes the execution plan.
func (s *Store) ActiveIntegrations(ctx context.Context, clientID int64) ([]Integration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT integration_id, client_id, procedure_name, table_type, run_order, active
		FROM integration_config
		WHERE client_id = ? AND active = 1
		ORDER BY CASE table_type WHEN 'dimension' THEN 0 ELSE 1 END, run_order, procedure_name`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query integrations: %w", err)
	}
	defer rows.Close()

	var integrations []Integration
	for rows.Next() {
		var in Integration
		var active int
		if err := rows.Scan(&in.IntegrationID, &in.ClientID, &in.ProcedureName,
			&in.TableType, &in.RunOrder, &active); err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		in.Active = active != 0
		integrations = append(integrations, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range integrations {
		deps, err := s.integrationDependencies(ctx, integrations[i].IntegrationID)
		if err != nil {
			return nil, err
		}
		integrations[i].DependsOn = deps
	}
	return integrations, nil
}

func (s *Store) integrationDependencies(ctx context.Context, integrationID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT depends_on FROM integration_dependency
		WHERE integration_id = ?
		ORDER BY depends_on`, integrationID)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

// CreateIntegration registers an integration procedure with dependencies.
func (s *Store) CreateIntegration(ctx context.Context, in Integration) (int64, error) {
	active := 0
	if in.Active {
		active = 1
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO integration_config (client_id, procedure_name, table_type, run_order, active)
		VALUES (?, ?, ?, ?, ?)`,
		in.ClientID, in.ProcedureName, in.TableType, in.RunOrder, active)
	if err != nil {
		return 0, fmt.Errorf("create integration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("integration id: %w", err)
	}
	for _, dep := range in.DependsOn {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO integration_dependency (integration_id, depends_on)
			VALUES (?, ?)`, id, dep); err != nil {
			return 0, fmt.Errorf("create dependency %q: %w", dep, err)
		}
	}
	return id, nil
}

// InsertIntegrationLog appends one procedure outcome for a batch run.
func (s *Store) InsertIntegrationLog(ctx context.Context, rec IntegrationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO integration_log (client_id, batch_id, procedure_name, status, message, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ClientID, rec.BatchID, rec.ProcedureName, rec.Status, rec.Message, now())
	if err != nil {
		return fmt.Errorf("insert integration log: %w", err)
	}
	return nil
}

// IntegrationMessages returns the recorded messages for one procedure in a
// batch, oldest first.
func (s *Store) IntegrationMessages(ctx context.Context, clientID int64, batchID, procedureName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message FROM integration_log
		WHERE client_id = ? AND batch_id = ? AND procedure_name = ?
		ORDER BY log_id`, clientID, batchID, procedureName)
	if err != nil {
		return nil, fmt.Errorf("query integration messages: %w", err)
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var message string
		if err := rows.Scan(&message); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// IntegrationOutcomes returns the latest status per procedure for a batch.
func (s *Store) IntegrationOutcomes(ctx context.Context, clientID int64, batchID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT procedure_name, status FROM integration_log
		WHERE client_id = ? AND batch_id = ?
		ORDER BY log_id`, clientID, batchID)
	if err != nil {
		return nil, fmt.Errorf("query integration outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make(map[string]string)
	for rows.Next() {
		var name, status string
		if err := rows.Scan(&name, &status); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes[name] = status
	}
	return outcomes, rows.Err()
}
