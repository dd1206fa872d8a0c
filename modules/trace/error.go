package trace

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
)

func Location(skip int) (string, int) {
	pc, _, line, ok := runtime.Caller(skip)
	if !ok {
		return "?", line
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "?", line
	}
	return fn.Name(), line
}

// Logf records an error-level message attributed to the caller skip
// frames above the immediate call site (skip 0 is the caller of Logf).
func Logf(skip int, format string, a ...any) {
	fn, line := Location(skip + 2)
	logrus.Error(fn, ":", line, " ", fmt.Sprintf(format, a...))
}
