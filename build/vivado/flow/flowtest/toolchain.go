// Package flowtest provides an instrumented stand-in for the toolchain.
package flowtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"google.com/fpgaflow/build/vivado/flow"
)

// Call names, as recorded by Toolchain.
const (
	CallIngest              = "IngestDesign"
	CallSetTarget           = "SetTarget"
	CallApplyConstraints    = "ApplyConstraints"
	CallSynthesize          = "Synthesize"
	CallOptimize            = "Optimize"
	CallPlace               = "Place"
	CallPhysicalOptimize    = "PhysicalOptimize"
	CallRoute               = "Route"
	CallWriteCheckpoint     = "WriteCheckpoint"
	CallReportUtilization   = "ReportUtilization"
	CallReportTimingSummary = "ReportTimingSummary"
	CallReportPower         = "ReportPower"
	CallWriteBitstream      = "WriteBitstream"
)

// UtilizationReport is what the fake writes for hierarchical utilization
// reports.
const UtilizationReport = `1. Utilization by Hierarchy
---------------------------

+----------+--------+------------+------------+---------+------+-----+--------+--------+------+------------+
| Instance | Module | Total LUTs | Logic LUTs | LUTRAMs | SRLs | FFs | RAMB36 | RAMB18 | URAM | DSP Blocks |
+----------+--------+------------+------------+---------+------+-----+--------+--------+------+------------+
| top      |  (top) |         42 |         42 |       0 |    0 |  17 |      0 |      1 |    0 |          1 |
|   u_core |   core |         30 |         30 |       0 |    0 |  12 |      0 |      1 |    0 |          1 |
+----------+--------+------------+------------+---------+------+-----+--------+--------+------+------------+
`

// ErrInjected is returned by calls selected through Toolchain.Fail.
var ErrInjected = errors.New("injected toolchain failure")

// Toolchain records every call as "Name arg..." and writes placeholder
// files for every artifact it is asked to produce.
type Toolchain struct {
	Calls []string
	// Fail makes the first call whose record starts with this prefix fail.
	Fail string
	// SkipWrite makes artifact calls with this prefix succeed without
	// writing anything.
	SkipWrite string
	Closed    bool
}

var _ flow.Toolchain = (*Toolchain)(nil)

// Opener returns an OpenToolchain that always hands out t.
func (t *Toolchain) Opener() flow.OpenToolchain {
	return func(context.Context, flow.Layout, *zap.Logger) (flow.Toolchain, error) {
		return t, nil
	}
}

// Names returns the recorded calls without their arguments.
func (t *Toolchain) Names() []string {
	var out []string
	for _, c := range t.Calls {
		out = append(out, strings.Fields(c)[0])
	}
	return out
}

func (t *Toolchain) record(name string, args ...string) error {
	c := strings.TrimSpace(name + " " + strings.Join(args, " "))
	t.Calls = append(t.Calls, c)
	if t.Fail != "" && strings.HasPrefix(c, t.Fail) {
		return fmt.Errorf("%v: %w", c, ErrInjected)
	}
	return nil
}

func (t *Toolchain) write(name, path, content string) error {
	if err := t.record(name, path); err != nil {
		return err
	}
	if t.SkipWrite != "" && strings.HasPrefix(name+" "+path, t.SkipWrite) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func (t *Toolchain) IngestDesign(_ context.Context, files []string, kind flow.SourceKind) error {
	return t.record(CallIngest, append([]string{kind.String()}, files...)...)
}

func (t *Toolchain) SetTarget(_ context.Context, device string) error {
	return t.record(CallSetTarget, device)
}

func (t *Toolchain) ApplyConstraints(_ context.Context, path string) error {
	return t.record(CallApplyConstraints, path)
}

func (t *Toolchain) Synthesize(_ context.Context, top, device string, flatten flow.FlattenPolicy) error {
	return t.record(CallSynthesize, top, device, string(flatten))
}

func (t *Toolchain) Optimize(context.Context) error { return t.record(CallOptimize) }
func (t *Toolchain) Place(context.Context) error { return t.record(CallPlace) }
func (t *Toolchain) PhysicalOptimize(context.Context) error { return t.record(CallPhysicalOptimize) }
func (t *Toolchain) Route(context.Context) error { return t.record(CallRoute) }

func (t *Toolchain) WriteCheckpoint(_ context.Context, path string) error {
	return t.write(CallWriteCheckpoint, path, "checkpoint\n")
}

func (t *Toolchain) ReportUtilization(_ context.Context, path string, opts flow.UtilizationOptions) error {
	if opts.Hierarchical {
		return t.write(CallReportUtilization, path, UtilizationReport)
	}
	return t.write(CallReportUtilization, path, "flat utilization\n")
}

func (t *Toolchain) ReportTimingSummary(_ context.Context, path string) error {
	return t.write(CallReportTimingSummary, path, "timing\n")
}

func (t *Toolchain) ReportPower(_ context.Context, path string) error {
	return t.write(CallReportPower, path, "power\n")
}

func (t *Toolchain) WriteBitstream(_ context.Context, path string) error {
	return t.write(CallWriteBitstream, path, "bitstream\n")
}

func (t *Toolchain) Close() error {
	t.Closed = true
	return nil
}
