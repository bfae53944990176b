package orchestrator

import "errors"

// Sentinel errors surfaced by the planners. Their messages are stable
// identifiers that downstream tooling greps for, so they stay SCREAMING.
var (
	ErrNoFilesOnRestart   = errors.New("NO_FILES_TO_PROCESS_ON_RESTART")
	ErrNoFilesToReprocess = errors.New("FILES NOT FOUND TO REPROCESS")
	ErrAuditRecordMissing = errors.New("FILE_AUDIT_RECORD_NOT_FOUND")
	ErrNoBatchInfo        = errors.New("NO_BATCH_INFO")
	ErrInvalidBatchInfo   = errors.New("INVALID_BATCH_INFO")
	ErrNoLastBatch        = errors.New("client has no previous batch")
)

// MsgFileConfigNotFound is the audit error message recorded when no active
// ingestion config claims a file.
const MsgFileConfigNotFound = "FILE CONFIG NOT FOUND"

// ErrFileConfigNotFound is the pipeline error for the same condition.
var ErrFileConfigNotFound = errors.New(MsgFileConfigNotFound)

// MsgNoFileMatched is the job failure reason when a start run claims no
// work: the scan found nothing, or no active config claimed any file.
const MsgNoFileMatched = "no file matched any config"
