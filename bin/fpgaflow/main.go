// fpgaflow drives Vivado through one non-project build: it ingests every HDL
// source of a directory, synthesizes, implements, writes the reports and a
// bitstream below an output directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"google.com/fpgaflow/build/vivado/config"
	"google.com/fpgaflow/build/vivado/flow"
	"google.com/fpgaflow/build/vivado/logging"
	"google.com/fpgaflow/build/vivado/tcl"
)

// opener builds the toolchain factory once the configuration is known.
type opener func(cfg config.Config) flow.OpenToolchain

func newRootCmd(open opener, result **flow.Result) *cobra.Command {
	return &cobra.Command{
		Use:   "fpgaflow " + flow.Usage,
		Short: "Build a bitstream from a directory of HDL sources",
		Long: `fpgaflow runs ingest, target selection, constraints, synthesis,
implementation and reporting in a single Vivado session. Artifacts go to
<output_dir>, reports to <output_dir>/reports and logs to <output_dir>/logs.

Tool settings come from FPGAFLOW_CONFIG (a YAML file) and the FPGAFLOW_*
environment, which may also be set in a .env file.`,
		// Everything is positional; a leading dash is part of a path.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			console := &flow.Console{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
			if _, err := flow.ParseArgs(args); err != nil {
				console.Error(err)
				usage(cmd)
				*result = &flow.Result{State: flow.StateStart, Err: err}
				return err
			}
			// A missing .env is fine.
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c := &flow.Controller{
				Console:   console,
				Open:      open(cfg),
				NewLogger: logging.NewFactory(cfg.Logging.Level),
				Instances: cfg.Report.Instances,
			}
			res := c.Run(cmd.Context(), args)
			*result = res
			if flow.KindOf(res.Err) == flow.UsageError {
				usage(cmd)
			}
			return res.Err
		},
	}
}

func usage(cmd *cobra.Command) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Usage: %v\n", cmd.UseLine())
}

func run(stdout, stderr io.Writer, args []string, open opener) int {
	var res *flow.Result
	cmd := newRootCmd(open, &res)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if res == nil {
			// Errors of the run itself were already printed by the flow.
			fmt.Fprintf(stderr, "ERROR: %v\n", strings.Join(strings.Fields(err.Error()), " "))
		}
		return flow.ExitFailure
	}
	return flow.ExitSuccess
}

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:], tcl.Opener))
}
