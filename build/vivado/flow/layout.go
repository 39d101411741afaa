package flow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Fixed artifact names.
const (
	LogsDirName    = "logs"
	ReportsDirName = "reports"

	PostSynthCheckpoint = "post_synth.dcp"
	PostRouteCheckpoint = "post_route.dcp"

	UtilPostSynthReport = "util_post_synth.rpt"
	TimingSummaryReport = "timing_summary.rpt"
	PowerReport         = "power.rpt"
	UtilPostRouteReport = "util_post_route.rpt"

	ManifestFile = "manifest.yaml"
)

// Layout is the artifact tree under one output directory. Every path it
// hands out depends only on the output directory and the top module name.
type Layout struct {
	Root      string
	TopModule string
}

func NewLayout(outputDir, topModule string) Layout {
	return Layout{Root: filepath.Clean(outputDir), TopModule: topModule}
}

func (l Layout) LogsDir() string { return filepath.Join(l.Root, LogsDirName) }
func (l Layout) ReportsDir() string { return filepath.Join(l.Root, ReportsDirName) }

// Prepare creates the output, logs and reports directories and removes the
// artifacts of any earlier run, so that only what this run produces is left.
func (l Layout) Prepare() error {
	for _, d := range []string{l.Root, l.LogsDir(), l.ReportsDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return newError(StageIOFailed, d, fmt.Errorf("could not create directory: %w", err))
		}
	}
	for _, p := range l.Products() {
		if err := removeStale(p); err != nil {
			return newError(StageIOFailed, p, err)
		}
	}
	return nil
}

// Products lists every file a complete run leaves under the output dir,
// logs excluded.
func (l Layout) Products() []string {
	return []string{
		l.Checkpoint(PostSynthCheckpoint),
		l.Report(UtilPostSynthReport),
		l.Checkpoint(PostRouteCheckpoint),
		l.Report(TimingSummaryReport),
		l.Report(PowerReport),
		l.Report(UtilPostRouteReport),
		l.Bitstream(),
	}
}

func (l Layout) Checkpoint(name string) string { return filepath.Join(l.Root, name) }
func (l Layout) Report(name string) string { return filepath.Join(l.ReportsDir(), name) }
func (l Layout) Log(name string) string { return filepath.Join(l.LogsDir(), name) }

func (l Layout) Bitstream() string {
	return filepath.Join(l.Root, l.TopModule+".bit")
}

// ArtifactKind classifies a produced file.
type ArtifactKind string

const (
	CheckpointArtifact ArtifactKind = "checkpoint"
	ReportArtifact     ArtifactKind = "report"
	BitstreamArtifact  ArtifactKind = "bitstream"
)

type Artifact struct {
	Kind  ArtifactKind `yaml:"kind"`
	Path  string       `yaml:"path"`
	Stage StageName    `yaml:"stage"`
}

func removeStale(p string) error {
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove stale artifact: %v:\n\t\t%w", p, err)
	}
	return nil
}

// checkWritten verifies that the toolchain actually left a file at p.
func checkWritten(p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("toolchain reported success but artifact is missing: %v:\n\t\t%w", p, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("artifact path is a directory: %v", p)
	}
	return nil
}
