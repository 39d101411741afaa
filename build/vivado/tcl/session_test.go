package tcl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const helperEnv = "FPGAFLOW_WANT_HELPER_PROCESS"

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(fakeVivado(os.Stdin, os.Stdout, os.Stderr))
	}
	goleak.VerifyTestMain(m)
}

var okLine = regexp.MustCompile(`puts "` + sentinel + ` (\d+) OK"`)

// fakeVivado understands just enough of the session protocol to answer
// wrapped commands. Commands containing "fail_me" fail, "crash" exits the
// process without answering.
func fakeVivado(stdin io.Reader, stdout, stderr io.Writer) int {
	sc := bufio.NewScanner(stdin)
	var (
		inCommand bool
		command   []string
		seq       string
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "exit":
			return 0
		case line == "if {[catch {":
			inCommand, command, seq = true, nil, ""
		case strings.HasPrefix(line, "} fpgaflow_err]} {"):
			inCommand = false
		case inCommand:
			command = append(command, line)
		case okLine.MatchString(line):
			seq = okLine.FindStringSubmatch(line)[1]
		case line == "flush stdout":
			cmd := strings.Join(command, "\n")
			if strings.Contains(cmd, "crash") {
				return 3
			}
			fmt.Fprintf(stdout, "INFO: [Common 17-206] running %v\n", cmd)
			fmt.Fprintf(stderr, "stderr for %v\n", seq)
			if strings.Contains(cmd, "fail_me") {
				fmt.Fprintf(stdout, "Vivado%% %v %v ERR ERROR: [Synth 8-439] module 'fail_me' not found\n", sentinel, seq)
				continue
			}
			fmt.Fprintf(stdout, "Vivado%% %v %v OK\n", sentinel, seq)
		}
	}
	return 0
}

func fakeCommand(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	cmd.Env = append(os.Environ(), helperEnv+"=1")
	return cmd
}

func TestSession(t *testing.T) {
	var out, transcript bytes.Buffer
	s, err := Start(fakeCommand(t), Options{Output: &out, Transcript: &transcript})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "set_part xc7k70tfbg484-3"))
	require.NoError(t, s.Run(ctx, "read_verilog {/src/a.v}\nread_verilog {/src/b.v}"))

	err = s.Run(ctx, "synth_design -top fail_me")
	var cerr *CommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "ERROR: [Synth 8-439] module 'fail_me' not found", cerr.Message)

	// The session stays usable after a failed command.
	require.NoError(t, s.Run(ctx, "opt_design"))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, "set_part xc7k70tfbg484-3\nread_verilog {/src/a.v}\nread_verilog {/src/b.v}\nsynth_design -top fail_me\nopt_design\n",
		transcript.String())
	assert.Contains(t, out.String(), "INFO: [Common 17-206] running set_part xc7k70tfbg484-3")
	assert.Contains(t, out.String(), "stderr for 1")
	assert.NotContains(t, out.String(), sentinel)
}

func TestSessionToolExits(t *testing.T) {
	s, err := Start(fakeCommand(t), Options{})
	require.NoError(t, err)

	err = s.Run(context.Background(), "crash now")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExited))

	err = s.Close()
	require.Error(t, err, "exit status of the crashed tool is reported")
}

func TestSessionCanceled(t *testing.T) {
	s, err := Start(fakeCommand(t), Options{})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Run(ctx, "route_design")
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseSentinel(t *testing.T) {
	tests := []struct {
		line string
		want result
		ok   bool
	}{
		{line: "@@FPGAFLOW 1 OK", want: result{seq: 1, ok: true}, ok: true},
		{line: "Vivado% @@FPGAFLOW 12 OK", want: result{seq: 12, ok: true}, ok: true},
		{line: "@@FPGAFLOW 3 ERR ERROR: [Place 30-99] Placer failed", want: result{seq: 3, message: "ERROR: [Place 30-99] Placer failed"}, ok: true},
		{line: "@@FPGAFLOW 4 ERR", want: result{seq: 4}, ok: true},
		{line: "@@FPGAFLOW x OK"},
		{line: "@@FPGAFLOW 5 MAYBE"},
		{line: "INFO: [Common 17-206] Exiting Vivado"},
	}
	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			got, ok := parseSentinel(test.line)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.want, got)
		})
	}
}
