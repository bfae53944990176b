package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ClientBySchema returns the client registered under a schema name.
func (s *Store) ClientBySchema(ctx context.Context, schema string) (*Client, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT client_id, client_schema, client_name, last_batch_id, active
		FROM client_reference
		WHERE client_schema = ?`, schema)

	var c Client
	var active int
	if err := row.Scan(&c.ClientID, &c.Schema, &c.Name, &c.LastBatchID, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: client %q", ErrNotFound, schema)
		}
		return nil, fmt.Errorf("query client: %w", err)
	}
	c.Active = active != 0
	return &c, nil
}

// ListClients returns all registered clients ordered by schema.
func (s *Store) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, client_schema, client_name, last_batch_id, active
		FROM client_reference
		ORDER BY client_schema`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		var active int
		if err := rows.Scan(&c.ClientID, &c.Schema, &c.Name, &c.LastBatchID, &active); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.Active = active != 0
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CreateClient registers a new client schema.
func (s *Store) CreateClient(ctx context.Context, schema, name string) (*Client, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO client_reference (client_schema, client_name, last_batch_id, active, created_at, updated_at)
		VALUES (?, ?, '', 1, ?, ?)`, schema, name, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("client id: %w", err)
	}
	return &Client{ClientID: id, Schema: schema, Name: name, Active: true}, nil
}

// UpdateLastBatchID records the identifier a client's next run increments.
func (s *Store) UpdateLastBatchID(ctx context.Context, clientID int64, batchID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE client_reference SET last_batch_id = ?, updated_at = ?
		WHERE client_id = ?`, batchID, now(), clientID)
	if err != nil {
		return fmt.Errorf("update last batch id: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last batch id: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: client %d", ErrNotFound, clientID)
	}
	return nil
}
