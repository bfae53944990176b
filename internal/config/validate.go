package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks semantic constraints after normalization.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataRoot) == "" {
		problems = append(problems, "paths.data_root must be set")
	}
	if strings.TrimSpace(c.Paths.DBPath) == "" {
		problems = append(problems, "paths.db_path must be set")
	}
	if len(c.Sources.Systems) == 0 {
		problems = append(problems, "sources.systems must list at least one source system")
	}
	if c.Workflow.ArtifactWaitTimeoutSec <= 0 {
		problems = append(problems, "workflow.artifact_wait_timeout_sec must be positive")
	}
	if c.Workflow.ArtifactPollIntervalMS <= 0 {
		problems = append(problems, "workflow.artifact_poll_interval_ms must be positive")
	}
	if c.Workflow.ManifestRetryAttempts <= 0 {
		problems = append(problems, "workflow.manifest_retry_attempts must be positive")
	}
	if c.Workflow.ManifestRetryDelayMS <= 0 {
		problems = append(problems, "workflow.manifest_retry_delay_ms must be positive")
	}
	if c.Workflow.ExecutorTimeoutSec <= 0 {
		problems = append(problems, "workflow.executor_timeout_sec must be positive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console or json)", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
