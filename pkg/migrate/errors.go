// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"errors"
	"fmt"

	"github.com/ferryscm/ferry/modules/trace"
)

// Kind classifies migration failures. The CLI maps kinds to exit codes.
type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindVCS
	KindTransform
	KindReversibility
	KindCanceled
	KindNoWork
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindVCS:
		return "vcs error"
	case KindTransform:
		return "transform error"
	case KindReversibility:
		return "reversibility error"
	case KindCanceled:
		return "canceled"
	case KindNoWork:
		return "no work"
	default:
		return "internal error"
	}
}

// Error is the single error type crossing the engine boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an error of the given kind, logging it with its
// construction site.
func NewError(kind Kind, format string, a ...any) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
	e.log()
	return e
}

// WrapError attaches a kind and context to an underlying error, logging
// it with its construction site.
func WrapError(kind Kind, err error, format string, a ...any) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, a...), Err: err}
	e.log()
	return e
}

// log records failures where they are raised. User-facing terminal
// outcomes are not failures.
func (e *Error) log() {
	switch e.Kind {
	case KindNoWork, KindCanceled:
		return
	}
	trace.Logf(2, "%s: %s", e.Kind, e.Error())
}

// KindOf extracts the kind from err, KindInternal when untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ExitCode maps an error to the process exit code contract:
// 0 success, 1 configuration, 2 VCS/external, 3 canceled, 4 no work.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindConfig:
		return 1
	case KindCanceled:
		return 3
	case KindNoWork:
		return 4
	default:
		return 2
	}
}
