// Package ledger provides SQLite persistence for the ingestion control
// plane: client registry, ingestion configs and column mappings, the
// per-file audit log that gates restarts, the job execution log, the
// integration catalog, and the bronze target tables loads write into.
package ledger
