// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Console is the line-oriented user surface of a migration run: progress
// and warnings on stderr, confirmation prompts on stdin.
type Console struct {
	verbose   bool
	assumeYes bool
	colored   bool
	in        *bufio.Reader
	err       io.Writer
}

func NewConsole(verbose, assumeYes bool) *Console {
	return &Console{
		verbose:   verbose,
		assumeYes: assumeYes,
		colored:   isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		in:        bufio.NewReader(os.Stdin),
		err:       os.Stderr,
	}
}

// newTestConsole wires a console to the given streams; used by tests.
func newTestConsole(in io.Reader, err io.Writer, assumeYes bool) *Console {
	return &Console{assumeYes: assumeYes, in: bufio.NewReader(in), err: err}
}

func (c *Console) emit(color, prefix, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if c.colored {
		fmt.Fprintf(c.err, "\x1b[%sm%s\x1b[0m %s\n", color, prefix, msg)
		return
	}
	fmt.Fprintf(c.err, "%s %s\n", prefix, msg)
}

func (c *Console) Infof(format string, a ...any) {
	c.emit("32", "INFO:", format, a...)
}

func (c *Console) Warnf(format string, a ...any) {
	c.emit("33", "WARN:", format, a...)
}

func (c *Console) Errorf(format string, a ...any) {
	c.emit("31", "ERROR:", format, a...)
}

// Verbosef writes only when verbose output was requested.
func (c *Console) Verbosef(format string, a ...any) {
	if !c.verbose {
		return
	}
	c.emit("2", "DEBUG:", format, a...)
}

// Confirm prompts for a yes/no answer, defaulting to no. When the
// console runs with assumeYes the prompt is skipped.
func (c *Console) Confirm(format string, a ...any) (bool, error) {
	if c.assumeYes {
		return true, nil
	}
	fmt.Fprintf(c.err, "%s [y/N] ", fmt.Sprintf(format, a...))
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
