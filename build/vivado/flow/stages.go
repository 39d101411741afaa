package flow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"google.com/fpgaflow/build/vivado/report"
)

// Stages returns the fixed pipeline, in execution order.
func Stages() []Stage {
	return []Stage{
		{Name: StageIngest, Reaches: StateIngested, Fatal: true, Action: ingest},
		{Name: StageConfigureTarget, Reaches: StateTargetConfigured, Fatal: true, Action: configureTarget},
		{Name: StageApplyConstraints, Reaches: StateConstraintsApplied, Fatal: false, Skip: noConstraints, Action: applyConstraints},
		{Name: StageSynthesize, Reaches: StateSynthesized, Fatal: true, Action: synthesize},
		{Name: StageImplement, Reaches: StateImplemented, Fatal: true, Action: implement},
		{Name: StageReport, Reaches: StateReported, Fatal: true, Action: writeReports},
	}
}

func ingest(ctx context.Context, j *Job) error {
	byKind := SplitByKind(j.Request.SourceFiles)
	for _, kind := range IngestOrder {
		files := byKind[kind]
		if len(files) == 0 {
			continue
		}
		j.log.Info("ingesting sources", zap.Stringer("kind", kind), zap.Int("count", len(files)))
		if err := j.Toolchain.IngestDesign(ctx, files, kind); err != nil {
			return newError(IngestFailed, kind.String(), err)
		}
	}
	return nil
}

func configureTarget(ctx context.Context, j *Job) error {
	if err := j.Toolchain.SetTarget(ctx, j.Request.TargetDevice); err != nil {
		return newError(TargetFailed, j.Request.TargetDevice, err)
	}
	return nil
}

func noConstraints(j *Job) (bool, string) {
	if len(j.Request.ConstraintFiles) == 0 {
		return true, "no constraint files"
	}
	return false, ""
}

// applyConstraints applies every constraint file that exists. Missing or
// rejected files become warnings; the stage itself does not fail.
func applyConstraints(ctx context.Context, j *Job) error {
	for _, c := range j.Request.ConstraintFiles {
		p, err := filepath.Abs(c)
		if err != nil {
			j.Warn(Warning{Kind: MissingConstraintFile, Path: c, Message: err.Error()})
			continue
		}
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() {
			j.Warn(Warning{Kind: MissingConstraintFile, Path: p, Message: "constraint file not found, skipped"})
			continue
		}
		if err := j.Toolchain.ApplyConstraints(ctx, p); err != nil {
			j.Warn(Warning{Kind: ConstraintRejected, Path: p, Message: fmt.Sprintf("toolchain rejected constraints: %v", err)})
			continue
		}
		j.log.Info("constraints applied", zap.String("path", p))
	}
	return nil
}

func synthesize(ctx context.Context, j *Job) error {
	r := j.Request
	if err := j.Toolchain.Synthesize(ctx, r.TopModule, r.TargetDevice, FlattenRebuild); err != nil {
		return newError(SynthesisFailed, r.TopModule, err)
	}
	if err := j.produce(ctx, StageSynthesize, CheckpointArtifact, j.Layout.Checkpoint(PostSynthCheckpoint), StageIOFailed,
		j.Toolchain.WriteCheckpoint); err != nil {
		return err
	}
	return j.produce(ctx, StageSynthesize, ReportArtifact, j.Layout.Report(UtilPostSynthReport), StageIOFailed,
		func(ctx context.Context, p string) error {
			return j.Toolchain.ReportUtilization(ctx, p, UtilizationOptions{})
		})
}

func implement(ctx context.Context, j *Job) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"optimize", j.Toolchain.Optimize},
		{"place", j.Toolchain.Place},
		{"physical optimize", j.Toolchain.PhysicalOptimize},
		{"route", j.Toolchain.Route},
	}
	for _, s := range steps {
		j.log.Info("implementation step", zap.String("step", s.name))
		if err := s.fn(ctx); err != nil {
			return newError(ImplementationFailed, s.name, err)
		}
	}
	return j.produce(ctx, StageImplement, CheckpointArtifact, j.Layout.Checkpoint(PostRouteCheckpoint), StageIOFailed,
		j.Toolchain.WriteCheckpoint)
}

func writeReports(ctx context.Context, j *Job) error {
	tc := j.Toolchain
	if err := j.produce(ctx, StageReport, ReportArtifact, j.Layout.Report(TimingSummaryReport), StageIOFailed,
		tc.ReportTimingSummary); err != nil {
		return err
	}
	if err := j.produce(ctx, StageReport, ReportArtifact, j.Layout.Report(PowerReport), StageIOFailed,
		tc.ReportPower); err != nil {
		return err
	}
	util := j.Layout.Report(UtilPostRouteReport)
	if err := j.produce(ctx, StageReport, ReportArtifact, util, StageIOFailed,
		func(ctx context.Context, p string) error {
			return tc.ReportUtilization(ctx, p, UtilizationOptions{Hierarchical: true, Depth: PostRouteUtilizationDepth})
		}); err != nil {
		return err
	}
	if err := j.produce(ctx, StageReport, BitstreamArtifact, j.Layout.Bitstream(), BitstreamFailed,
		tc.WriteBitstream); err != nil {
		return err
	}
	j.readUtilization(util)
	return nil
}

// readUtilization records the top-level row of the post-route report, and
// the rows of any instances asked for with LookupInstances.
func (j *Job) readUtilization(p string) {
	u, err := report.ReadFile(p)
	if err == nil {
		if _, ok := u.Top(); !ok {
			err = errors.New("utilization table is empty")
		}
	}
	if err != nil {
		j.Warn(Warning{Kind: UtilizationUnreadable, Path: p, Message: err.Error()})
		return
	}
	top, _ := u.Top()
	j.utilization = &top
	j.log.Info("utilization", zap.Stringer("top", top))
	for _, name := range j.instances {
		e, err := u.Find(name, -1)
		if err != nil {
			j.Warn(Warning{Kind: UtilizationUnreadable, Path: p, Message: err.Error()})
			continue
		}
		j.found = append(j.found, e)
		j.log.Info("utilization", zap.Stringer("instance", e))
	}
}
