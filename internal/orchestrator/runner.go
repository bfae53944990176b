package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"ingot/internal/config"
)

// Stage names a pipeline step executed against one file.
type Stage string

const (
	StageConvert           Stage = "convert"
	StageMappingValidation Stage = "mapping_validation"
	StageRowValidation     Stage = "row_validation"
	StageLoad              Stage = "load"
)

// StageRunner executes one pipeline stage for one file. Implementations
// report failure through the returned error; partial output travels inside
// a StageError.
type StageRunner interface {
	RunStage(ctx context.Context, stage Stage, clientSchema, fileName string) error
}

// StageError wraps an executor failure with the stage and captured output.
type StageError struct {
	Stage  Stage
	Output string
	Err    error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// subcommands maps stages onto this binary's own CLI surface, used when no
// executor override is configured.
var subcommands = map[Stage]string{
	StageConvert:           "convert",
	StageMappingValidation: "validate-mapping",
	StageRowValidation:     "validate-rows",
	StageLoad:              "load",
}

// ExecRunner launches stage executors as child processes. Each invocation
// receives the client schema and physical file name as trailing arguments.
type ExecRunner struct {
	executors  config.Executors
	configPath string
	timeout    time.Duration
}

// NewExecRunner builds a runner from the configured executor overrides.
// configPath is forwarded to self-invocations so children resolve the same
// configuration file as the parent.
func NewExecRunner(executors config.Executors, configPath string, timeout time.Duration) *ExecRunner {
	return &ExecRunner{executors: executors, configPath: configPath, timeout: timeout}
}

func (r *ExecRunner) argv(stage Stage) ([]string, error) {
	var override []string
	switch stage {
	case StageConvert:
		override = r.executors.Convert
	case StageMappingValidation:
		override = r.executors.MappingValidation
	case StageRowValidation:
		override = r.executors.RowValidation
	case StageLoad:
		override = r.executors.Load
	}
	if len(override) > 0 {
		return append([]string{}, override...), nil
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	argv := []string{self, subcommands[stage]}
	if r.configPath != "" {
		argv = append(argv, "--config", r.configPath)
	}
	return argv, nil
}

// RunStage implements StageRunner.
func (r *ExecRunner) RunStage(ctx context.Context, stage Stage, clientSchema, fileName string) error {
	argv, err := r.argv(stage)
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	argv = append(argv, clientSchema, fileName)

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return &StageError{
			Stage:  stage,
			Output: strings.TrimSpace(output.String()),
			Err:    err,
		}
	}
	return nil
}
