package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{EnvConfigFile, EnvVivado, EnvVivadoSettings, EnvLogLevel, EnvVHDL2008, EnvGenerics, EnvInstances} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.HDL.VHDL2008)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "fpgaflow.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
vivado:
  executable: /opt/Xilinx/Vivado/2025.1/bin/vivado
  settings: /opt/Xilinx/Vivado/2025.1/settings64.sh
  extra_args: ["-notrace"]
hdl:
  vhdl2008: false
  generics: [WIDTH=16]
logging:
  level: debug
report:
  instances: [u_table]
`), 0o644))
	t.Setenv(EnvConfigFile, p)
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Vivado: Vivado{
			Executable: "/opt/Xilinx/Vivado/2025.1/bin/vivado",
			Settings:   "/opt/Xilinx/Vivado/2025.1/settings64.sh",
			ExtraArgs:  []string{"-notrace"},
		},
		HDL:     HDL{VHDL2008: false, Generics: []string{"WIDTH=16"}},
		Logging: Logging{Level: "warn"},
		Report:  Report{Instances: []string{"u_table"}},
	}, cfg)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvVivado, "/tools/vivado")
	t.Setenv(EnvVivadoSettings, "/tools/settings64.sh")
	t.Setenv(EnvVHDL2008, "false")
	t.Setenv(EnvGenerics, " WIDTH=8  DEPTH=1024 ")
	t.Setenv(EnvInstances, "u_core u_io")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tools/vivado", cfg.Vivado.Executable)
	assert.Equal(t, "/tools/settings64.sh", cfg.Vivado.Settings)
	assert.False(t, cfg.HDL.VHDL2008)
	assert.Equal(t, []string{"WIDTH=8", "DEPTH=1024"}, cfg.HDL.Generics)
	assert.Equal(t, []string{"u_core", "u_io"}, cfg.Report.Instances)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad level", env: map[string]string{EnvLogLevel: "loud"}},
		{name: "panic level", env: map[string]string{EnvLogLevel: "fatal"}},
		{name: "bad bool", env: map[string]string{EnvVHDL2008: "maybe"}},
		{name: "bad generic", env: map[string]string{EnvGenerics: "WIDTH"}},
		{name: "unnamed generic", env: map[string]string{EnvGenerics: "=8"}},
		{name: "braced generic", file: "hdl:\n  generics: [\"W={8}\"]\n"},
		{name: "missing file", env: map[string]string{EnvConfigFile: "/does/not/exist.yaml"}},
		{name: "bad yaml", file: "vivado: [unterminated"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			if test.file != "" {
				p := filepath.Join(t.TempDir(), "bad.yaml")
				require.NoError(t, os.WriteFile(p, []byte(test.file), 0o644))
				t.Setenv(EnvConfigFile, p)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
