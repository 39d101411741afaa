package tcl

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"google.com/fpgaflow/build/vivado/config"
)

const vivadoBinary = "vivado"

// baseArgs start Vivado as an interactive TCL shell reading from stdin. Its
// own log and journal are off; the session captures the output instead.
var baseArgs = []string{"-mode", "tcl", "-nolog", "-nojournal", "-notrace"}

// ResolveExecutable finds the vivado binary: the configured path if given
// (it must exist), otherwise "vivado" on PATH.
func ResolveExecutable(explicit string) (string, error) {
	if explicit != "" {
		fi, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("vivado executable not found: %v:\n\t\t%w", explicit, err)
		}
		if fi.IsDir() {
			return "", fmt.Errorf("vivado executable is a directory: %v", explicit)
		}
		return explicit, nil
	}
	p, err := exec.LookPath(vivadoBinary)
	if err != nil {
		return "", fmt.Errorf("vivado executable not supplied and not found in PATH; set %v:\n\t\t%w", config.EnvVivado, err)
	}
	return p, nil
}

// Command builds the command line for a Vivado TCL shell running in dir.
//
// With a settings script, the shell sources it first, so that vivado may be
// found on the PATH it sets up.
func Command(ctx context.Context, cfg config.Vivado, dir string) (*exec.Cmd, error) {
	args := append(append([]string(nil), baseArgs...), cfg.ExtraArgs...)
	var cmd *exec.Cmd
	if cfg.Settings != "" {
		if _, err := os.Stat(cfg.Settings); err != nil {
			return nil, fmt.Errorf("vivado settings script not found: %v:\n\t\t%w", cfg.Settings, err)
		}
		exe := cfg.Executable
		if exe == "" {
			exe = vivadoBinary
		} else if _, err := ResolveExecutable(exe); err != nil {
			return nil, err
		}
		script := fmt.Sprintf(`source %q && exec %q "$@"`, cfg.Settings, exe)
		cmd = exec.CommandContext(ctx, "bash", append([]string{"-c", script, vivadoBinary}, args...)...)
	} else {
		exe, err := ResolveExecutable(cfg.Executable)
		if err != nil {
			return nil, err
		}
		cmd = exec.CommandContext(ctx, exe, args...)
	}
	cmd.Dir = dir
	return cmd, nil
}
