package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hierReport = `Copyright 1986-2022 Xilinx, Inc. All Rights Reserved.
---------------------------------------------------------------------------------
| Tool Version : Vivado v.2025.1 (lin64)
| Design       : FixFunctionByTable
| Device       : xc7k70tfbg484-3
---------------------------------------------------------------------------------

Utilization Design Information

Table of Contents
-----------------
1. Utilization by Hierarchy

1. Utilization by Hierarchy
---------------------------

+------------------------+------------+------------+------------+---------+------+-----+--------+--------+------+------------+
|        Instance        |   Module   | Total LUTs | Logic LUTs | LUTRAMs | SRLs | FFs | RAMB36 | RAMB18 | URAM | DSP Blocks |
+------------------------+------------+------------+------------+---------+------+-----+--------+--------+------+------------+
| FixFunctionByTable     |      (top) |        120 |        118 |       0 |    2 |  64 |      1 |      3 |    0 |          2 |
|   u_table              | table_rom  |        100 |        100 |       0 |    0 |  60 |      1 |      1 |    0 |          0 |
|     u_mux              | mux4       |         12 |         12 |       0 |    0 |   0 |      0 |      0 |    0 |          0 |
|   u_out                | out_reg    |          8 |          6 |       0 |    2 |   4 |      0 |      2 |    0 |          2 |
+------------------------+------------+------------+------------+---------+------+-----+--------+--------+------+------------+
* Note: The sum of lower-level cells may be larger than their parent cells total, due to cross-hierarchy LUT combining
`

func TestParse(t *testing.T) {
	u, err := Parse(strings.NewReader(hierReport))
	require.NoError(t, err)
	require.Len(t, u.Entries, 4)

	top, ok := u.Top()
	require.True(t, ok)
	assert.Equal(t, Entry{
		Instance: "FixFunctionByTable",
		Module:   "(top)",
		LUTs:     120,
		SRLs:     2,
		FFs:      64,
		BRAMs:    2.5,
		DSPs:     2,
		Depth:    0,
	}, top)

	depths := []int{}
	for _, e := range u.Entries {
		depths = append(depths, e.Depth)
	}
	assert.Equal(t, []int{0, 1, 2, 1}, depths)
}

func TestFind(t *testing.T) {
	u, err := Parse(strings.NewReader(hierReport))
	require.NoError(t, err)

	e, err := u.Find("u_mux", -1)
	require.NoError(t, err)
	assert.Equal(t, "mux4", e.Module)
	assert.Equal(t, 12, e.LUTs)

	_, err = u.Find("u_mux", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "u_table")

	e, err = u.Find("u_out", 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.BRAMs)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no table",
			input: "Utilization Design Information\n",
			want:  "unable to locate",
		},
		{
			name: "bad number",
			input: `| Instance | Total LUTs |
+----------+------------+
| top      |       lots |
+----------+------------+
`,
			want: `column "Total LUTs"`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(test.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.want)
		})
	}
}

func TestReadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "util_post_route.rpt")
	require.NoError(t, os.WriteFile(p, []byte(hierReport), 0o644))

	u, err := ReadFile(p)
	require.NoError(t, err)
	top, ok := u.Top()
	require.True(t, ok)
	assert.Equal(t, "FixFunctionByTable -> LUTs: 120 FFs: 64 DSPs: 2 BRAMs: 2.5", top.String())

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.rpt"))
	require.Error(t, err)
}
