package tcl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"google.com/fpgaflow/build/vivado/config"
	"google.com/fpgaflow/build/vivado/flow"
)

const (
	OutputLog      = "vivado.log"
	TranscriptFile = "session.tcl"
)

// Runner executes one TCL command in a tool session.
type Runner interface {
	Run(ctx context.Context, command string) error
	Close() error
}

var _ Runner = (*Session)(nil)
var _ flow.Toolchain = (*Vivado)(nil)

// Vivado implements flow.Toolchain by rendering each capability into a
// non-project mode TCL command.
type Vivado struct {
	r       Runner
	hdl     config.HDL
	closers []io.Closer
}

func NewVivado(r Runner, hdl config.HDL) *Vivado {
	return &Vivado{r: r, hdl: hdl}
}

// Opener returns a flow.OpenToolchain that launches Vivado as configured.
// The raw tool output goes to logs/vivado.log and the command transcript to
// logs/session.tcl.
func Opener(cfg config.Config) flow.OpenToolchain {
	return func(ctx context.Context, layout flow.Layout, log *zap.Logger) (flow.Toolchain, error) {
		cmd, err := Command(ctx, cfg.Vivado, layout.LogsDir())
		if err != nil {
			return nil, err
		}
		out, err := os.Create(layout.Log(OutputLog))
		if err != nil {
			return nil, fmt.Errorf("could not create: %v:\n\t\t%w", layout.Log(OutputLog), err)
		}
		tr, err := os.Create(layout.Log(TranscriptFile))
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("could not create: %v:\n\t\t%w", layout.Log(TranscriptFile), err)
		}
		pwd, err := os.Getwd()
		if err != nil {
			out.Close()
			tr.Close()
			return nil, fmt.Errorf("can not get PWD:\n\t\t%w", err)
		}
		if err := transcriptTpl.Execute(tr, Binding{PWD: pwd, OutputDir: layout.Root}); err != nil {
			out.Close()
			tr.Close()
			return nil, fmt.Errorf("could not write transcript header:\n\t\t%w", err)
		}
		s, err := Start(cmd, Options{Output: out, Transcript: tr, Log: log})
		if err != nil {
			out.Close()
			tr.Close()
			return nil, err
		}
		v := NewVivado(s, cfg.HDL)
		v.closers = []io.Closer{out, tr}
		return v, nil
	}
}

func (v *Vivado) run(ctx context.Context, name string, b Binding) error {
	command, err := Render(name, b)
	if err != nil {
		return err
	}
	return v.r.Run(ctx, command)
}

func (v *Vivado) reader(kind flow.SourceKind) (string, error) {
	switch kind {
	case flow.Verilog:
		return "read_verilog", nil
	case flow.SystemVerilog:
		return "read_verilog -sv", nil
	case flow.VHDL:
		if v.hdl.VHDL2008 {
			return "read_vhdl -vhdl2008", nil
		}
		return "read_vhdl", nil
	}
	return "", fmt.Errorf("no reader for source kind %v", kind)
}

func (v *Vivado) IngestDesign(ctx context.Context, files []string, kind flow.SourceKind) error {
	reader, err := v.reader(kind)
	if err != nil {
		return err
	}
	return v.run(ctx, "read_sources", Binding{Reader: reader, Files: files})
}

func (v *Vivado) SetTarget(ctx context.Context, device string) error {
	return v.run(ctx, "set_part", Binding{Part: device})
}

func (v *Vivado) ApplyConstraints(ctx context.Context, path string) error {
	return v.run(ctx, "read_xdc", Binding{Path: path})
}

func (v *Vivado) Synthesize(ctx context.Context, top, device string, flatten flow.FlattenPolicy) error {
	return v.run(ctx, "synth_design", Binding{Top: top, Part: device, Flatten: string(flatten), Generics: v.hdl.Generics})
}

func (v *Vivado) Optimize(ctx context.Context) error { return v.r.Run(ctx, "opt_design") }
func (v *Vivado) Place(ctx context.Context) error { return v.r.Run(ctx, "place_design") }
func (v *Vivado) PhysicalOptimize(ctx context.Context) error { return v.r.Run(ctx, "phys_opt_design") }
func (v *Vivado) Route(ctx context.Context) error { return v.r.Run(ctx, "route_design") }

func (v *Vivado) WriteCheckpoint(ctx context.Context, path string) error {
	return v.run(ctx, "write_checkpoint", Binding{Path: path})
}

func (v *Vivado) ReportUtilization(ctx context.Context, path string, opts flow.UtilizationOptions) error {
	return v.run(ctx, "report_utilization", Binding{Path: path, Hierarchical: opts.Hierarchical, Depth: opts.Depth})
}

func (v *Vivado) ReportTimingSummary(ctx context.Context, path string) error {
	return v.run(ctx, "report_timing_summary", Binding{Path: path})
}

func (v *Vivado) ReportPower(ctx context.Context, path string) error {
	return v.run(ctx, "report_power", Binding{Path: path})
}

func (v *Vivado) WriteBitstream(ctx context.Context, path string) error {
	return v.run(ctx, "write_bitstream", Binding{Path: path})
}

// Close stops the tool and closes its log files.
func (v *Vivado) Close() error {
	err := v.r.Close()
	for _, c := range v.closers {
		err = errors.Join(err, c.Close())
	}
	return err
}
