package cli

import (
	"fmt"

	"github.com/sdejongh/treesync/pkg/models"
)

// ExitError carries a process exit code out of a command. Err is nil when the
// command already reported the outcome and only the code matters.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode returns nil for code 0 without an error
func exitCode(code int, err error) error {
	if err == nil && code == 0 {
		return nil
	}
	if code == 0 {
		code = models.StatusFailed.ExitCode()
	}
	return &ExitError{Code: code, Err: err}
}

// reportCode maps a report to its exit code; a missing report is a failure
func reportCode(report *models.SyncReport) int {
	if report == nil {
		return models.StatusFailed.ExitCode()
	}
	return report.Status.ExitCode()
}
