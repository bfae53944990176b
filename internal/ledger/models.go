package ledger

// Stage status values recorded in file_audit_log.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
	StatusSkipped    = "SKIPPED"
)

// Client is a row of client_reference.
type Client struct {
	ClientID    int64
	Schema      string
	Name        string
	LastBatchID string
	Active      bool
}

// IngestionConfig is a row of client_config. SourceConfig is an opaque
// serialized blob of parser options carried through to the manifest.
type IngestionConfig struct {
	ConfigID          int64
	ClientID          int64
	SourceSystem      string
	SourceType        string
	LogicalSourceFile string
	TargetSchema      string
	TargetTable       string
	SourceConfig      string
	Active            bool
}

// ColumnMapping is a row of column_mapping.
type ColumnMapping struct {
	MappingID    int64
	ConfigID     int64
	SourceColumn string
	TargetColumn string
	DataType     string
	IsRequired   bool
	Ordinal      int
}

// FileAudit is a row of file_audit_log. One row exists per physical file per
// batch; restart and reprocessing runs update the row in place.
type FileAudit struct {
	AuditID                 int64
	ClientID                int64
	BatchID                 string
	PhysicalFileName        string
	LogicalSourceFile       string
	SourceSystem            string
	SourceType              string
	ConfigID                int64
	ConfigValidationStatus  string
	ConvertStatus           string
	MappingValidationStatus string
	RowValidationStatus     string
	LoadStatus              string
	BatchStatus             string
	TotalRows               int64
	ValidRows               int64
	InvalidRows             int64
	ErrorMessage            string
	ProcessedBy             string
	FileReceivedTime        string
	CreatedAt               string
	UpdatedAt               string
}

// JobExecution is a row of job_execution_log. ErrorMessage carries the run
// summary or failure reason; FileName names the first failing file, if any.
type JobExecution struct {
	JobID        int64
	JobName      string
	ClientSchema string
	BatchID      string
	Status       string
	ErrorMessage string
	FileName     string
	StartedAt    string
	CompletedAt  string
}

// Integration is a row of integration_config.
type Integration struct {
	IntegrationID int64
	ClientID      int64
	ProcedureName string
	TableType     string
	RunOrder      int
	Active        bool
	DependsOn     []string
}

// IntegrationRecord is a row of integration_log.
type IntegrationRecord struct {
	LogID         int64
	ClientID      int64
	BatchID       string
	ProcedureName string
	Status        string
	Message       string
	ExecutedAt    string
}
