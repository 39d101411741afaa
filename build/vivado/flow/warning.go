package flow

import "fmt"

// WarningKind names a non-fatal condition. Warnings never change control flow.
type WarningKind string

const (
	UnsupportedFile       WarningKind = "UnsupportedFileWarning"
	MissingConstraintFile WarningKind = "MissingConstraintFileWarning"
	ConstraintRejected    WarningKind = "ConstraintRejectedWarning"
	UtilizationUnreadable WarningKind = "UtilizationUnreadableWarning"
	StageDegraded         WarningKind = "StageDegradedWarning"
)

type Warning struct {
	Kind    WarningKind `yaml:"kind"`
	Path    string      `yaml:"path"`
	Message string      `yaml:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%v: %v", w.Path, w.Message)
}
