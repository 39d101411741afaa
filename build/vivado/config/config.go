// Package config holds the tool settings of fpgaflow: where Vivado lives and
// how it is launched. Build inputs are never configured here; they come from
// the command line.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"google.com/fpgaflow/build/vivado/logging"
)

// Environment variables read by Load.
const (
	EnvConfigFile     = "FPGAFLOW_CONFIG"
	EnvVivado         = "FPGAFLOW_VIVADO"
	EnvVivadoSettings = "FPGAFLOW_VIVADO_SETTINGS"
	EnvLogLevel       = "FPGAFLOW_LOG_LEVEL"
	EnvVHDL2008       = "FPGAFLOW_VHDL2008"
	// EnvGenerics is a space separated list of NAME=VALUE pairs.
	EnvGenerics = "FPGAFLOW_GENERICS"
	// EnvInstances is a space separated list of hierarchy instance names.
	EnvInstances = "FPGAFLOW_UTIL_INSTANCES"
)

type Config struct {
	Vivado  Vivado  `yaml:"vivado"`
	HDL     HDL     `yaml:"hdl"`
	Logging Logging `yaml:"logging"`
	Report  Report  `yaml:"report"`
}

type Vivado struct {
	// Executable is the vivado binary. If empty, it is looked up on PATH.
	Executable string `yaml:"executable"`
	// Settings is a settings64.sh style script sourced before launching.
	Settings string `yaml:"settings"`
	// ExtraArgs are appended to the vivado command line.
	ExtraArgs []string `yaml:"extra_args"`
}

type HDL struct {
	// VHDL2008 reads VHDL sources with -vhdl2008.
	VHDL2008 bool `yaml:"vhdl2008"`
	// Generics override top level generics (parameters) at synthesis, as
	// NAME=VALUE.
	Generics []string `yaml:"generics"`
}

type Report struct {
	// Instances are hierarchy instances whose post-route utilization is
	// recorded in the run manifest.
	Instances []string `yaml:"instances"`
}

type Logging struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		HDL:     HDL{VHDL2008: true},
		Logging: Logging{Level: "info"},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// FPGAFLOW_CONFIG if set, then individual environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if p := os.Getenv(EnvConfigFile); p != "" {
		if err := cfg.mergeFile(p); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(p string) error {
	b, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("could not read config file: %v:\n\t\t%w", p, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("could not parse config file: %v:\n\t\t%w", p, err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvVivado); ok && v != "" {
		c.Vivado.Executable = v
	}
	if v, ok := lookup(EnvVivadoSettings); ok && v != "" {
		c.Vivado.Settings = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvVHDL2008); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%v: %w", EnvVHDL2008, err)
		}
		c.HDL.VHDL2008 = b
	}
	if v, ok := lookup(EnvGenerics); ok && v != "" {
		c.HDL.Generics = strings.Fields(v)
	}
	if v, ok := lookup(EnvInstances); ok && v != "" {
		c.Report.Instances = strings.Fields(v)
	}
	return nil
}

func (c Config) Validate() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("unknown log level %q, want one of debug, info, warn, error", c.Logging.Level)
	}
	for _, g := range c.HDL.Generics {
		if name, _, ok := strings.Cut(g, "="); !ok || strings.TrimSpace(name) == "" || strings.ContainsAny(g, " \t{}") {
			return fmt.Errorf("bad generic %q, want NAME=VALUE", g)
		}
	}
	return nil
}
