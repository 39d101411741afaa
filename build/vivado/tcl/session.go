// Package tcl drives a long-lived Vivado process in TCL mode. Every command
// is sent over stdin, wrapped so that the tool reports completion and
// failure on stdout with a sentinel line.
package tcl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// ErrExited is returned when the tool exits before answering a command.
var ErrExited = errors.New("toolchain process exited")

// CommandError is a failure the tool reported for one command.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed: %v:\n\t\t%v", firstLine(e.Command), e.Message)
}

type Options struct {
	// Output receives the tool's stdout and stderr, sentinel lines excluded.
	Output io.Writer
	// Transcript receives every command sent, unwrapped.
	Transcript io.Writer
	Log        *zap.Logger
}

type result struct {
	seq     int
	ok      bool
	message string
}

// Session is one running tool process. It is not safe for concurrent use;
// commands are strictly sequential.
type Session struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	transcript io.Writer
	log        *zap.Logger

	results chan result
	done    chan struct{}
	group   errgroup.Group

	seq       int
	closeOnce sync.Once
	closeErr  error
}

// Start launches cmd and begins draining its output.
func Start(cmd *exec.Cmd, opts Options) (*Session, error) {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Transcript == nil {
		opts.Transcript = io.Discard
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("could not open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("could not open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("could not open stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not start: %v:\n\t\t%w", cmd.Path, err)
	}

	s := &Session{
		cmd:        cmd,
		stdin:      stdin,
		transcript: opts.Transcript,
		log:        opts.Log,
		results:    make(chan result, 1),
		done:       make(chan struct{}),
	}
	out := zapcore.Lock(zapcore.AddSync(opts.Output))
	s.group.Go(func() error { return s.readStdout(stdout, out) })
	s.group.Go(func() error { return s.readStderr(stderr, out) })
	s.log.Info("toolchain started", zap.String("path", cmd.Path), zap.Strings("args", cmd.Args), zap.Int("pid", cmd.Process.Pid))
	return s, nil
}

// Run sends one command and blocks until the tool has finished it.
func (s *Session) Run(ctx context.Context, command string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.seq++
	seq := s.seq
	script, err := wrap(seq, command)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.transcript, command); err != nil {
		s.log.Warn("transcript", zap.Error(err))
	}
	s.log.Debug("command", zap.Int("seq", seq), zap.String("command", command))
	if _, err := io.WriteString(s.stdin, script); err != nil {
		return fmt.Errorf("could not send command: %v:\n\t\t%w", firstLine(command), err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-s.results:
			if !ok {
				return fmt.Errorf("while running: %v: %w", firstLine(command), ErrExited)
			}
			if r.seq != seq {
				continue
			}
			if !r.ok {
				return &CommandError{Command: command, Message: r.message}
			}
			return nil
		}
	}
}

// Close asks the tool to exit and waits for it. It is safe to call more
// than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_, _ = io.WriteString(s.stdin, "exit\n")
		_ = s.stdin.Close()
		close(s.done)
		rerr := s.group.Wait()
		werr := s.cmd.Wait()
		s.closeErr = errors.Join(rerr, werr)
		s.log.Info("toolchain stopped", zap.Error(s.closeErr))
	})
	return s.closeErr
}

func (s *Session) readStdout(r io.Reader, out zapcore.WriteSyncer) error {
	defer close(s.results)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		res, ok := parseSentinel(line)
		if !ok {
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
			continue
		}
		select {
		case s.results <- res:
		case <-s.done:
		}
	}
	return sc.Err()
}

func (s *Session) readStderr(r io.Reader, out zapcore.WriteSyncer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		s.log.Warn("toolchain stderr", zap.String("line", line))
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// parseSentinel recognizes "@@FPGAFLOW <seq> OK" and
// "@@FPGAFLOW <seq> ERR <message>", possibly preceded by a prompt.
func parseSentinel(line string) (result, bool) {
	i := strings.Index(line, sentinel+" ")
	if i < 0 {
		return result{}, false
	}
	fields := strings.SplitN(line[i+len(sentinel)+1:], " ", 3)
	if len(fields) < 2 {
		return result{}, false
	}
	seq, err := strconv.Atoi(fields[0])
	if err != nil {
		return result{}, false
	}
	switch fields[1] {
	case "OK":
		return result{seq: seq, ok: true}, true
	case "ERR":
		msg := ""
		if len(fields) == 3 {
			msg = strings.TrimSpace(fields[2])
		}
		return result{seq: seq, message: msg}, true
	}
	return result{}, false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
