package command

import (
	"errors"
	"os/exec"
	"strings"
)

const (
	NoDir = ""
)

// FromError renders a subprocess failure with any captured stderr attached.
func FromError(err error) string {
	if err == nil {
		return ""
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if len(ee.Stderr) > 0 {
			return ee.Error() + ". stderr: " + strings.TrimSpace(string(ee.Stderr))
		}
		return ee.Error()
	}
	return err.Error()
}

// FromErrorCode extracts the subprocess exit code, -1 when not an exit error.
func FromErrorCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
