package tcl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Binding carries the values a command template may refer to. Each template
// uses only a few of the fields.
type Binding struct {
	// Reader is the TCL command used to read Files, e.g. "read_verilog -sv".
	Reader string
	// The list of files to read. Ordering is important.
	Files []string
	// Part is the designator of the FPGA part, e.g. "xc7a200tfbg484-2".
	Part string
	// Top entity name.
	Top string
	// Flatten is the synth_design -flatten_hierarchy value.
	Flatten string
	// Generics are NAME=VALUE overrides of top level generics.
	Generics []string
	// Path is the file a command reads or writes.
	Path string
	// Hierarchical and Depth shape report_utilization.
	Hierarchical bool
	Depth        int

	// Seq and Command are used by the session wrapper only.
	Seq     int
	Command string

	// Transcript header fields.
	PWD       string
	OutputDir string
}

const sentinel = "@@FPGAFLOW"

var (
	// One template per toolchain command, non-project mode.
	commandTpl = template.Must(template.New("commands").Funcs(template.FuncMap{
		"word":  word,
		"brace": brace,
	}).Parse(`
{{- define "read_sources" -}}
{{- range .Files}}
{{$.Reader}} {{brace .}}
{{- end}}
{{- end -}}

{{- define "set_part" -}}
set_part {{word .Part}}
{{- end -}}

{{- define "read_xdc" -}}
read_xdc {{brace .Path}}
{{- end -}}

{{- define "synth_design" -}}
synth_design -top {{word .Top}} -part {{word .Part}} -flatten_hierarchy {{word .Flatten}}
{{- range .Generics}} -generic {{brace .}} {{- end}}
{{- end -}}

{{- define "write_checkpoint" -}}
write_checkpoint -force {{brace .Path}}
{{- end -}}

{{- define "report_utilization" -}}
report_utilization {{- if .Hierarchical}} -hierarchical -hierarchical_depth {{ .Depth }} {{- end}} -file {{brace .Path}}
{{- end -}}

{{- define "report_timing_summary" -}}
report_timing_summary -file {{brace .Path}}
{{- end -}}

{{- define "report_power" -}}
report_power -file {{brace .Path}}
{{- end -}}

{{- define "write_bitstream" -}}
write_bitstream -force {{brace .Path}}
{{- end -}}
`))

	// Wraps one command so that the session can tell when it finished and
	// whether it failed.
	wrapTpl = template.Must(template.New("wrap").Parse(
		`if {[catch {
{{ .Command }}
} fpgaflow_err]} {
    puts "` + sentinel + ` {{ .Seq }} ERR [string map {"\n" " "} $fpgaflow_err]"
} else {
    puts "` + sentinel + ` {{ .Seq }} OK"
}
flush stdout
`))

	// The header of logs/session.tcl. The file can be replayed with
	// vivado -mode batch -source session.tcl.
	transcriptTpl = template.Must(template.New("transcript").Parse(
		`# GENERATED FILE, DO NOT EDIT
# fpgaflow session transcript
# PWD:        "{{ .PWD }}"
# Output dir: "{{ .OutputDir }}"

`))
)

// Render expands the named command template.
func Render(name string, b Binding) (string, error) {
	var buf bytes.Buffer
	if err := commandTpl.ExecuteTemplate(&buf, name, b); err != nil {
		return "", fmt.Errorf("could not render command: %v:\n\t\t%w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func wrap(seq int, command string) (string, error) {
	var buf bytes.Buffer
	if err := wrapTpl.Execute(&buf, Binding{Seq: seq, Command: command}); err != nil {
		return "", fmt.Errorf("could not wrap command:\n\t\t%w", err)
	}
	return buf.String(), nil
}
