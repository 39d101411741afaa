package tcl

import (
	"strings"
	"unicode"
)

// word renders s as one TCL word that the interpreter takes literally. Plain
// names stay bare; anything else is braced or escaped.
func word(s string) string {
	if s != "" && strings.IndexFunc(s, special) < 0 {
		return s
	}
	return brace(s)
}

// brace renders s as a braced TCL word, falling back to backslash escapes
// when s itself contains braces or backslashes.
func brace(s string) string {
	if !strings.ContainsAny(s, `{}\`) {
		return "{" + s + "}"
	}
	return escape(s)
}

func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case unicode.IsSpace(r) || strings.ContainsRune(`\{}[]$";#`, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func special(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("_-.,:/+=@%", r)
}
