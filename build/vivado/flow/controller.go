package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller runs the fixed stage sequence for one build request.
type Controller struct {
	Console *Console
	// Open starts the toolchain session once sources have been found.
	Open OpenToolchain
	// NewLogger builds the run logger once the logs directory exists, and
	// the function that releases it. If nil, nothing is logged.
	NewLogger func(logsDir string) (*zap.Logger, func() error, error)
	// Stages overrides the pipeline. Defaults to Stages().
	Stages []Stage
	// Now defaults to time.Now.
	Now func() time.Time
	// Instances are looked up in the post-route utilization report and
	// recorded in the manifest.
	Instances []string
}

// Result is the terminal outcome of Controller.Run.
type Result struct {
	State State
	Err   error
	// Manifest is nil when the run never got past validation.
	Manifest *Manifest
}

func (r *Result) ExitCode() int {
	return ExitCode(r.Err)
}

// Run validates args, discovers sources and executes every stage in order,
// stopping at the first fatal error.
func (c *Controller) Run(ctx context.Context, args []string) *Result {
	console := c.Console
	if console == nil {
		console = DiscardConsole()
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	res := &Result{State: StateStart}
	fail := func(err error) *Result {
		console.Error(err)
		res.Err = err
		return res
	}

	a, err := ParseArgs(args)
	if err != nil {
		return fail(err)
	}
	if err := a.CheckSourcesDir(); err != nil {
		return fail(err)
	}
	layout := NewLayout(a.OutputDir, a.TopModule)
	if err := layout.Prepare(); err != nil {
		return fail(err)
	}

	m := machine{state: StateStart}
	if err := m.to(StateValidated); err != nil {
		return fail(err)
	}
	res.State = m.state

	log := zap.NewNop()
	closeLog := func() error { return nil }
	if c.NewLogger != nil {
		l, closer, err := c.NewLogger(layout.LogsDir())
		if err != nil {
			console.Warning(fmt.Sprintf("could not open log file, logging disabled: %v", err))
		} else {
			log, closeLog = l, closer
		}
	}
	defer func() {
		_ = log.Sync()
		if err := closeLog(); err != nil {
			console.Warning(fmt.Sprintf("could not close log file: %v", err))
		}
	}()
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	manifest := &Manifest{
		RunID:        runID,
		StartedAt:    now().UTC(),
		TargetDevice: a.TargetDevice,
		TopModule:    a.TopModule,
		SourcesDir:   a.SourcesDir,
		OutputDir:    a.OutputDir,
		Constraints:  a.ConstraintFiles,
	}
	res.Manifest = manifest
	job := NewJob(nil, layout, nil, log, console)
	job.LookupInstances(c.Instances)

	finish := func(err error) *Result {
		if err == nil && !CanTransition(m.state, StateDone) {
			err = fmt.Errorf("pipeline stopped in state %v", m.state)
		}
		if err != nil {
			if terr := m.to(StateFailed); terr != nil {
				log.Error("state machine", zap.Error(terr))
			}
			console.Error(err)
			log.Error("run failed", zap.Error(err))
			manifest.ErrorKind = KindOf(err)
			manifest.Error = err.Error()
			manifest.State = m.state
		} else {
			manifest.State = StateDone
		}
		manifest.FinishedAt = now().UTC()
		manifest.Warnings = job.Warnings()
		manifest.Artifacts = job.Artifacts()
		manifest.Utilization = job.Utilization()
		manifest.Instances = job.InstanceUtilization()
		werr := WriteManifest(layout.Log(ManifestFile), manifest)
		if werr != nil {
			log.Error("manifest", zap.Error(werr))
		}
		if err == nil {
			if werr != nil {
				// The build went through but its record is missing.
				err = newError(StageIOFailed, layout.Log(ManifestFile), werr)
				_ = m.to(StateFailed)
				console.Error(err)
			} else if terr := m.to(StateDone); terr != nil {
				err = terr
				console.Error(err)
			}
		}
		res.State = m.state
		res.Err = err
		return res
	}

	log.Info("run started", zap.String("target_device", a.TargetDevice), zap.String("top_module", a.TopModule),
		zap.String("sources_dir", a.SourcesDir), zap.String("output_dir", a.OutputDir))

	sources, warnings, err := ScanSources(a.SourcesDir)
	for _, w := range warnings {
		job.Warn(w)
	}
	if err != nil {
		return finish(err)
	}
	req, err := NewBuildRequest(a, sources)
	if err != nil {
		return finish(err)
	}
	job.Request = req
	manifest.Sources = req.SourceFiles
	log.Info("sources classified", zap.Int("count", len(sources)), zap.Int("skipped", len(warnings)))

	if c.Open == nil {
		return finish(newError(ToolchainUnavailable, "", fmt.Errorf("no toolchain configured")))
	}
	tc, err := c.Open(ctx, layout, log)
	if err != nil {
		return finish(newError(ToolchainUnavailable, "", err))
	}
	job.Toolchain = tc
	defer func() {
		if err := tc.Close(); err != nil {
			log.Warn("toolchain close", zap.Error(err))
		}
	}()

	stages := c.Stages
	if stages == nil {
		stages = Stages()
	}
	for _, s := range stages {
		result, err := c.runStage(ctx, job, s, console, log, now)
		manifest.Stages = append(manifest.Stages, result)
		if err != nil {
			return finish(err)
		}
		if result.Status == StageSkipped {
			continue
		}
		if err := m.to(s.Reaches); err != nil {
			return finish(err)
		}
	}

	res = finish(nil)
	if res.Err == nil {
		console.Succeeded(layout.Bitstream())
		log.Info("run succeeded", zap.String("bitstream", layout.Bitstream()))
	}
	return res
}

func (c *Controller) runStage(ctx context.Context, j *Job, s Stage, console *Console, log *zap.Logger, now func() time.Time) (StageResult, error) {
	result := StageResult{Name: s.Name}
	log = log.With(zap.String("stage", string(s.Name)))
	if s.Skip != nil {
		if skip, reason := s.Skip(j); skip {
			console.Skipped(s.Name, reason)
			log.Info("stage skipped", zap.String("reason", reason))
			result.Status = StageSkipped
			return result, nil
		}
	}

	console.Stage(s.Name)
	log.Info("stage started")
	start := now()
	err := s.Action(ctx, j)
	result.Duration = now().Sub(start)

	if err != nil && s.Fatal {
		result.Status = StageFailed
		result.Error = err.Error()
		log.Error("stage failed", zap.Duration("duration", result.Duration), zap.Error(err))
		return result, err
	}
	if err != nil {
		j.Warn(Warning{Kind: StageDegraded, Path: string(s.Name), Message: err.Error()})
	}
	result.Status = StageSucceeded
	log.Info("stage finished", zap.Duration("duration", result.Duration))
	return result, nil
}
