// Package integration runs the gold-layer procedures after a batch loads
// successfully. Dimensions execute before facts, and a fact is skipped when
// any procedure it depends on did not succeed in the current run.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ingot/internal/ledger"
)

// Procedure executes one integration step for a client batch.
type Procedure interface {
	Name() string
	Run(ctx context.Context, store *ledger.Store, clientSchema, batchID string) error
}

// Registry holds the procedures available to the scheduler. Every active
// integration config must resolve to a registered procedure before any of
// them runs; procedure names are never interpolated into SQL.
type Registry struct {
	procs map[string]Procedure
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[string]Procedure)}
}

// Register adds a procedure. Duplicate names are a wiring bug.
func (r *Registry) Register(p Procedure) error {
	name := p.Name()
	if _, exists := r.procs[name]; exists {
		return fmt.Errorf("procedure %q registered twice", name)
	}
	r.procs[name] = p
	return nil
}

// Lookup returns a registered procedure.
func (r *Registry) Lookup(name string) (Procedure, bool) {
	p, ok := r.procs[name]
	return p, ok
}

// Validate checks that every required name is registered.
func (r *Registry) Validate(required []string) error {
	var missing []string
	for _, name := range required {
		if _, ok := r.procs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("unregistered integration procedures: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SQLProcedure executes a SQL script against the ledger database. Scripts
// reference the run through the named parameters :client_schema and
// :batch_id.
type SQLProcedure struct {
	name   string
	script string
}

// Name implements Procedure.
func (p *SQLProcedure) Name() string {
	return p.name
}

// Run implements Procedure.
func (p *SQLProcedure) Run(ctx context.Context, store *ledger.Store, clientSchema, batchID string) error {
	return store.ExecScript(ctx, p.script, map[string]any{
		"client_schema": clientSchema,
		"batch_id":      batchID,
	})
}

// LoadSQLProcedures registers every *.sql file in dir as a procedure named
// after the file stem. A missing directory is fine; it just registers
// nothing.
func LoadSQLProcedures(r *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read procedures directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		script, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read procedure %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".sql")
		if err := r.Register(&SQLProcedure{name: name, script: string(script)}); err != nil {
			return err
		}
	}
	return nil
}

// ProcedureFunc adapts a function into a Procedure.
type ProcedureFunc struct {
	ProcName string
	Fn       func(ctx context.Context, store *ledger.Store, clientSchema, batchID string) error
}

// Name implements Procedure.
func (p ProcedureFunc) Name() string {
	return p.ProcName
}

// Run implements Procedure.
func (p ProcedureFunc) Run(ctx context.Context, store *ledger.Store, clientSchema, batchID string) error {
	return p.Fn(ctx, store, clientSchema, batchID)
}
