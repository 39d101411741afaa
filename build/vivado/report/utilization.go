// Package report reads the hierarchical utilization tables that Vivado
// writes with `report_utilization -hierarchical`.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column headers of interest in the hierarchy table.
const (
	colInstance = "Instance"
	colModule   = "Module"
	colLUTs     = "Total LUTs"
	colSRLs     = "SRLs"
	colFFs      = "FFs"
	colRAMB36   = "RAMB36"
	colRAMB18   = "RAMB18"
	colURAM     = "URAM"
	colDSPs     = "DSP Blocks"
)

// Entry is one row of the hierarchy table.
type Entry struct {
	Instance string `yaml:"instance"`
	Module   string `yaml:"module,omitempty"`
	LUTs     int    `yaml:"luts"`
	SRLs     int    `yaml:"srls"`
	FFs      int    `yaml:"ffs"`
	// BRAMs counts RAMB36 tiles; a RAMB18 counts as half.
	BRAMs float64 `yaml:"brams"`
	URAMs int     `yaml:"urams"`
	DSPs  int     `yaml:"dsps"`
	// Depth is 0 for the top instance.
	Depth int `yaml:"depth"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%v -> LUTs: %v FFs: %v DSPs: %v BRAMs: %v", e.Instance, e.LUTs, e.FFs, e.DSPs, e.BRAMs)
}

// Utilization is a parsed hierarchy table, rows in report order.
type Utilization struct {
	Entries []Entry
}

// Top returns the first row, which Vivado always emits for the top instance.
func (u *Utilization) Top() (Entry, bool) {
	if u == nil || len(u.Entries) == 0 {
		return Entry{}, false
	}
	return u.Entries[0], true
}

// Find looks up a row by instance name. A negative depth matches any depth.
func (u *Utilization) Find(instance string, depth int) (Entry, error) {
	var names []string
	for _, e := range u.Entries {
		if e.Instance == instance && (depth < 0 || e.Depth == depth) {
			return e, nil
		}
		names = append(names, e.Instance)
	}
	return Entry{}, fmt.Errorf("no utilization entry for instance %q, have: %v", instance, names)
}

// ReadFile parses the report at path.
func ReadFile(path string) (*Utilization, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open utilization report: %v:\n\t\t%w", path, err)
	}
	defer f.Close()
	u, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("while parsing: %v:\n\t\t%w", path, err)
	}
	return u, nil
}

// Parse reads the first hierarchy table in r.
func Parse(r io.Reader) (*Utilization, error) {
	var lines []string
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	start := -1
	for i, l := range lines {
		if strings.Contains(l, colLUTs) && strings.Contains(l, "|") {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("unable to locate utilization table header")
	}
	header := cells(lines[start])
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	if _, ok := index[colInstance]; !ok {
		return nil, fmt.Errorf("table header has no %q column", colInstance)
	}

	u := &Utilization{}
	// Skip the header row and the separator under it.
	for n := start + 2; n < len(lines); n++ {
		l := lines[n]
		if strings.Contains(l, "-+-") {
			break
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		e, err := parseRow(cells(l), index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		u.Entries = append(u.Entries, e)
	}
	return u, nil
}

// cells splits a "| a | b |" row into its raw, unstripped cells.
func cells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	return strings.Split(line, "|")
}

func parseRow(row []string, index map[string]int) (Entry, error) {
	get := func(col string) (string, bool) {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}
	var (
		e   Entry
		err error
	)
	e.Instance, _ = get(colInstance)
	e.Module, _ = get(colModule)
	e.Depth = depthOf(row[index[colInstance]])

	ints := []struct {
		col string
		dst *int
	}{
		{colLUTs, &e.LUTs},
		{colSRLs, &e.SRLs},
		{colFFs, &e.FFs},
		{colURAM, &e.URAMs},
		{colDSPs, &e.DSPs},
	}
	for _, c := range ints {
		v, ok := get(c.col)
		if !ok {
			continue
		}
		if *c.dst, err = strconv.Atoi(v); err != nil {
			return Entry{}, fmt.Errorf("column %q: %w", c.col, err)
		}
	}

	var ramb36, ramb18 float64
	if v, ok := get(colRAMB36); ok {
		if ramb36, err = strconv.ParseFloat(v, 64); err != nil {
			return Entry{}, fmt.Errorf("column %q: %w", colRAMB36, err)
		}
	}
	if v, ok := get(colRAMB18); ok {
		if ramb18, err = strconv.ParseFloat(v, 64); err != nil {
			return Entry{}, fmt.Errorf("column %q: %w", colRAMB18, err)
		}
	}
	e.BRAMs = ramb36 + ramb18*0.5
	return e, nil
}

// depthOf derives the hierarchy depth from the indentation of the instance
// cell: one leading space at the top, two more per level.
func depthOf(cell string) int {
	n := len(cell) - len(strings.TrimLeft(cell, " "))
	d := (n - 1) / 2
	if d < 0 {
		return 0
	}
	return d
}
