package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type SourceFile struct {
	// Absolute path of the file.
	Path string `yaml:"path"`
	// Kind as derived from the file extension.
	Kind SourceKind `yaml:"kind"`
}

// ScanSources lists the design sources directly inside dir.
//
// Files are grouped by extension in extensionOrder; inside a group they keep
// the order in which the directory returned them. Subdirectories are not
// descended into. Files with an unrecognized extension are reported as
// warnings and left out.
func ScanSources(dir string) ([]SourceFile, []Warning, error) {
	d, err := os.Open(dir)
	if err != nil {
		return nil, nil, newError(SourcesDirNotFound, dir, err)
	}
	defer d.Close()

	// ReadDir on an open *os.File, unlike os.ReadDir, does not sort.
	entries, err := d.ReadDir(-1)
	if err != nil {
		return nil, nil, newError(SourcesDirNotFound, dir, fmt.Errorf("could not list: %w", err))
	}

	groups := make(map[string][]SourceFile, len(extensionOrder))
	var warnings []Warning
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := appendTo(groups, p); err != nil {
			warnings = append(warnings, Warning{
				Kind:    UnsupportedFile,
				Path:    p,
				Message: err.Error(),
			})
		}
	}

	var files []SourceFile
	for _, ext := range extensionOrder {
		files = append(files, groups[ext]...)
	}
	if len(files) == 0 {
		return nil, warnings, newError(NoSourcesFound, dir,
			fmt.Errorf("no files with extensions %v", strings.Join(extensionOrder, ", ")))
	}
	return files, warnings, nil
}

// appendTo appends p into the group for its extension.
func appendTo(groups map[string][]SourceFile, p string) error {
	kind := ClassifyPath(p)
	if kind == Unsupported {
		return fmt.Errorf("unsupported file extension %q, file skipped", filepath.Ext(p))
	}
	ext := strings.ToLower(filepath.Ext(p))
	groups[ext] = append(groups[ext], SourceFile{Path: p, Kind: kind})
	return nil
}

// SplitByKind returns the paths of files of each kind, preserving order.
func SplitByKind(files []SourceFile) map[SourceKind][]string {
	out := make(map[SourceKind][]string)
	for _, f := range files {
		out[f.Kind] = append(out[f.Kind], f.Path)
	}
	return out
}
