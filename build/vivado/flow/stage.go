package flow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"google.com/fpgaflow/build/vivado/report"
)

// StageName identifies one pipeline stage.
type StageName string

const (
	StageIngest           StageName = "Ingest"
	StageConfigureTarget  StageName = "ConfigureTarget"
	StageApplyConstraints StageName = "ApplyConstraints"
	StageSynthesize       StageName = "Synthesize"
	StageImplement        StageName = "Implement"
	StageReport           StageName = "Report"
)

// Stage describes one unit of toolchain interaction. Stages are run in list
// order by Controller; each one only starts after its predecessor succeeded.
type Stage struct {
	Name StageName
	// Reaches is the run state once the stage completed.
	Reaches State
	// Fatal stages abort the run on error. Errors of non-fatal stages are
	// downgraded to warnings.
	Fatal bool
	// Skip, if set, may decide that the stage has nothing to do. The
	// returned reason is logged.
	Skip   func(j *Job) (bool, string)
	Action func(ctx context.Context, j *Job) error
}

type StageStatus string

const (
	StageSucceeded StageStatus = "succeeded"
	StageSkipped   StageStatus = "skipped"
	StageFailed    StageStatus = "failed"
)

type StageResult struct {
	Name     StageName     `yaml:"name"`
	Status   StageStatus   `yaml:"status"`
	Duration time.Duration `yaml:"duration"`
	Error    string        `yaml:"error,omitempty"`
}

// Job is the mutable state of a run that stages read and append to.
type Job struct {
	Request   *BuildRequest
	Layout    Layout
	Toolchain Toolchain

	log     *zap.Logger
	console *Console

	warnings    []Warning
	artifacts   []Artifact
	utilization *report.Entry
	instances   []string
	found       []report.Entry
}

// NewJob builds a job for running stages in isolation. A nil logger or
// console discards output.
func NewJob(req *BuildRequest, layout Layout, tc Toolchain, log *zap.Logger, console *Console) *Job {
	if log == nil {
		log = zap.NewNop()
	}
	if console == nil {
		console = DiscardConsole()
	}
	return &Job{Request: req, Layout: layout, Toolchain: tc, log: log, console: console}
}

// Warn records a warning, prints it, and logs it. It never stops the run.
func (j *Job) Warn(w Warning) {
	j.warnings = append(j.warnings, w)
	j.console.Warning(w.String())
	j.log.Warn("warning", zap.String("kind", string(w.Kind)), zap.String("path", w.Path), zap.String("message", w.Message))
}

func (j *Job) Warnings() []Warning { return append([]Warning(nil), j.warnings...) }
func (j *Job) Artifacts() []Artifact { return append([]Artifact(nil), j.artifacts...) }

// Utilization is the post-route top-level utilization, if it could be read.
func (j *Job) Utilization() *report.Entry { return j.utilization }

// LookupInstances names hierarchy instances whose post-route utilization is
// recorded next to the top-level one.
func (j *Job) LookupInstances(names []string) { j.instances = append([]string(nil), names...) }

// InstanceUtilization returns the rows found for LookupInstances, in order.
func (j *Job) InstanceUtilization() []report.Entry { return append([]report.Entry(nil), j.found...) }

// produce runs write to create the artifact at p and records it. Whatever
// is at p beforehand is removed. A write error is reported as failKind; a
// missing file afterwards as StageIOFailed.
func (j *Job) produce(ctx context.Context, stage StageName, kind ArtifactKind, p string, failKind ErrorKind, write func(context.Context, string) error) error {
	if err := removeStale(p); err != nil {
		return newError(StageIOFailed, p, err)
	}
	if err := write(ctx, p); err != nil {
		return newError(failKind, p, err)
	}
	if err := checkWritten(p); err != nil {
		return newError(StageIOFailed, p, err)
	}
	j.artifacts = append(j.artifacts, Artifact{Kind: kind, Path: p, Stage: stage})
	j.log.Info("artifact written", zap.String("stage", string(stage)), zap.String("kind", string(kind)), zap.String("path", p))
	return nil
}
