package orchestrator

import "fmt"

// Mode selects which planner drives a run. The set is closed; anything else
// fails at parse time.
type Mode int

const (
	// ModeStart claims new files from the incoming areas under a fresh
	// batch identifier.
	ModeStart Mode = iota
	// ModeRestart resumes the client's last batch after a crash. Every
	// resumed file must already hold an audit record.
	ModeRestart
	// ModeReprocessing reruns the failed files of the client's last batch.
	ModeReprocessing
)

// ParseMode maps a CLI argument onto a Mode.
func ParseMode(value string) (Mode, error) {
	switch value {
	case "start":
		return ModeStart, nil
	case "restart":
		return ModeRestart, nil
	case "reprocessing":
		return ModeReprocessing, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (start, restart, reprocessing)", value)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeStart:
		return "start"
	case ModeRestart:
		return "restart"
	case ModeReprocessing:
		return "reprocessing"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// JobName returns the job_execution_log name recorded for a run in this mode.
func (m Mode) JobName() string {
	switch m {
	case ModeRestart:
		return "Batch Processing Restart"
	case ModeReprocessing:
		return "Batch Reprocessing"
	default:
		return "Batch Processing Start"
	}
}
