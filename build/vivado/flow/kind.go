package flow

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SourceKind is the hardware description language of a source file, as far
// as its file extension tells.
type SourceKind int

const (
	Unsupported SourceKind = iota
	Verilog
	SystemVerilog
	VHDL
)

const (
	VerilogExtension       = ".v"
	SystemVerilogExtension = ".sv"
	VerilogHeaderExtension = ".vh"
	VHDLExtension1         = ".vhd"
	VHDLExtension2         = ".vhdl"
)

// extensionOrder is the order in which extension groups are concatenated.
// Ordering is important: the toolchain reads files in this order.
var extensionOrder = []string{
	VerilogExtension,
	SystemVerilogExtension,
	VerilogHeaderExtension,
	VHDLExtension1,
	VHDLExtension2,
}

var extensionKinds = map[string]SourceKind{
	VerilogExtension:       Verilog,
	SystemVerilogExtension: SystemVerilog,
	VerilogHeaderExtension: SystemVerilog,
	VHDLExtension1:         VHDL,
	VHDLExtension2:         VHDL,
}

// IngestOrder lists the kinds in the order they are handed to the toolchain.
var IngestOrder = []SourceKind{Verilog, SystemVerilog, VHDL}

// ClassifyExtension maps a file extension (with the leading dot, any case)
// to a source kind.
func ClassifyExtension(ext string) SourceKind {
	return extensionKinds[strings.ToLower(ext)]
}

// ClassifyPath classifies a file by the extension of its name.
func ClassifyPath(p string) SourceKind {
	return ClassifyExtension(filepath.Ext(p))
}

func (k SourceKind) String() string {
	switch k {
	case Verilog:
		return "verilog"
	case SystemVerilog:
		return "systemverilog"
	case VHDL:
		return "vhdl"
	default:
		return "unsupported"
	}
}

// MarshalText makes kinds readable in the run manifest.
func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SourceKind) UnmarshalText(b []byte) error {
	for _, c := range []SourceKind{Verilog, SystemVerilog, VHDL, Unsupported} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown source kind: %q", b)
}
