package flow

import (
	"errors"
	"fmt"
)

// ErrorKind names a class of fatal failure. All kinds map to the same exit code.
type ErrorKind string

const (
	UsageError           ErrorKind = "UsageError"
	SourcesDirNotFound   ErrorKind = "SourcesDirNotFound"
	NoSourcesFound       ErrorKind = "NoSourcesFound"
	ToolchainUnavailable ErrorKind = "ToolchainUnavailable"
	IngestFailed         ErrorKind = "IngestFailed"
	TargetFailed         ErrorKind = "TargetFailed"
	SynthesisFailed      ErrorKind = "SynthesisFailed"
	ImplementationFailed ErrorKind = "ImplementationFailed"
	StageIOFailed        ErrorKind = "StageIOFailed"
	BitstreamFailed      ErrorKind = "BitstreamFailed"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Error is a fatal pipeline error. Input names the offending argument, file
// or sub-step.
type Error struct {
	Kind  ErrorKind
	Input string
	Err   error
}

func newError(kind ErrorKind, input string, err error) *Error {
	return &Error{Kind: kind, Input: input, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Input != "" {
		msg = fmt.Sprintf("%v: %v", msg, e.Input)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%v: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so that
// errors.Is(err, &Error{Kind: SynthesisFailed}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitFailure
}
