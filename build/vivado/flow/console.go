package flow

import (
	"fmt"
	"io"
	"strings"
)

// Console prints the user-facing, one-line-per-event progress of a run.
// Progress goes to Out; warnings and errors go to Err.
type Console struct {
	Out io.Writer
	Err io.Writer
}

func DiscardConsole() *Console {
	return &Console{Out: io.Discard, Err: io.Discard}
}

func (c *Console) Stage(name StageName) {
	fmt.Fprintf(c.Out, "==> %v\n", name)
}

func (c *Console) Skipped(name StageName, reason string) {
	fmt.Fprintf(c.Out, "    skipped %v: %v\n", name, reason)
}

func (c *Console) Warning(msg string) {
	fmt.Fprintf(c.Err, "WARNING: %v\n", oneLine(msg))
}

func (c *Console) Error(err error) {
	fmt.Fprintf(c.Err, "ERROR: %v\n", oneLine(err.Error()))
}

func (c *Console) Succeeded(bitstream string) {
	fmt.Fprintf(c.Out, "BUILD SUCCEEDED: %v\n", bitstream)
}

// oneLine folds wrapped multi-line error text into a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
