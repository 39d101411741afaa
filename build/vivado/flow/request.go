package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const Usage = "<target_device> <top_module> <sources_dir> <output_dir> [constraint_file ...]"

// requiredArgs is the number of positional arguments every run needs.
const requiredArgs = 4

// Args is the raw, normalized argument list, before any source discovery.
type Args struct {
	TargetDevice    string
	TopModule       string
	SourcesDir      string
	OutputDir       string
	ConstraintFiles []string
}

// BuildRequest is the validated input of one run. It is not modified once
// NewBuildRequest returns it.
type BuildRequest struct {
	// TargetDevice is the part designator, e.g. "xc7a200tfbg484-2".
	TargetDevice string
	// TopModule is the name of the top level design unit.
	TopModule string
	// SourcesDir is absolute and clean.
	SourcesDir string
	// OutputDir is absolute and clean. All artifacts go below it.
	OutputDir string
	// SourceFiles is never empty.
	SourceFiles []SourceFile
	// ConstraintFiles are kept as given; they are resolved when applied.
	ConstraintFiles []string
}

// ParseArgs checks the positional argument count and normalizes paths. It
// touches nothing on disk.
func ParseArgs(args []string) (Args, error) {
	if len(args) < requiredArgs {
		return Args{}, newError(UsageError, "",
			fmt.Errorf("expected at least %d arguments, got %d", requiredArgs, len(args)))
	}
	a := Args{
		TargetDevice: strings.TrimSpace(args[0]),
		TopModule:    strings.TrimSpace(args[1]),
	}
	if a.TargetDevice == "" {
		return Args{}, newError(UsageError, "target_device", fmt.Errorf("must not be empty"))
	}
	if a.TopModule == "" {
		return Args{}, newError(UsageError, "top_module", fmt.Errorf("must not be empty"))
	}
	var err error
	if a.SourcesDir, err = absClean(args[2]); err != nil {
		return Args{}, newError(UsageError, args[2], err)
	}
	if a.OutputDir, err = absClean(args[3]); err != nil {
		return Args{}, newError(UsageError, args[3], err)
	}
	if len(args) > requiredArgs {
		a.ConstraintFiles = append([]string(nil), args[requiredArgs:]...)
	}
	return a, nil
}

// CheckSourcesDir reports SourcesDirNotFound unless the sources dir exists
// and is a directory.
func (a Args) CheckSourcesDir() error {
	fi, err := os.Stat(a.SourcesDir)
	if err != nil {
		return newError(SourcesDirNotFound, a.SourcesDir, err)
	}
	if !fi.IsDir() {
		return newError(SourcesDirNotFound, a.SourcesDir, fmt.Errorf("not a directory"))
	}
	return nil
}

// NewBuildRequest combines validated arguments with the classified sources.
func NewBuildRequest(a Args, sources []SourceFile) (*BuildRequest, error) {
	if len(sources) == 0 {
		return nil, newError(NoSourcesFound, a.SourcesDir, nil)
	}
	return &BuildRequest{
		TargetDevice:    a.TargetDevice,
		TopModule:       a.TopModule,
		SourcesDir:      a.SourcesDir,
		OutputDir:       a.OutputDir,
		SourceFiles:     append([]SourceFile(nil), sources...),
		ConstraintFiles: append([]string(nil), a.ConstraintFiles...),
	}, nil
}

func absClean(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("could not make absolute: %v:\n\t\t%w", p, err)
	}
	return filepath.Clean(abs), nil
}
