package flow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"google.com/fpgaflow/build/vivado/report"
)

// Manifest is the run summary written to logs/manifest.yaml on every run
// that got past argument validation.
type Manifest struct {
	RunID      string    `yaml:"run_id"`
	State      State     `yaml:"state"`
	ErrorKind  ErrorKind `yaml:"error_kind,omitempty"`
	Error      string    `yaml:"error,omitempty"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`

	TargetDevice string       `yaml:"target_device"`
	TopModule    string       `yaml:"top_module"`
	SourcesDir   string       `yaml:"sources_dir"`
	OutputDir    string       `yaml:"output_dir"`
	Sources      []SourceFile `yaml:"sources"`
	Constraints  []string     `yaml:"constraints,omitempty"`

	Stages      []StageResult  `yaml:"stages"`
	Warnings    []Warning      `yaml:"warnings,omitempty"`
	Artifacts   []Artifact     `yaml:"artifacts,omitempty"`
	Utilization *report.Entry  `yaml:"utilization,omitempty"`
	Instances   []report.Entry `yaml:"instances,omitempty"`
}

// WriteManifest overwrites path with m.
func WriteManifest(path string, m *Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create manifest: %v:\n\t\t%w", path, err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("could not write manifest: %v:\n\t\t%w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("could not write manifest: %v:\n\t\t%w", path, err)
	}
	return f.Close()
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read manifest: %v:\n\t\t%w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("could not parse manifest: %v:\n\t\t%w", path, err)
	}
	return &m, nil
}
