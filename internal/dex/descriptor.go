package dex

import "strings"

// Descriptor converts a type descriptor to its Java source spelling:
// "Lfoo/Bar;" becomes "foo.Bar", "[[I" becomes "int[][]". Anything it
// does not recognize is returned unchanged.
//
// See https://source.android.com/docs/core/runtime/dex-format#typedescriptor
func Descriptor(d string) string {
	dims := 0
	for dims < len(d) && d[dims] == '[' {
		dims++
	}
	if dims == len(d) {
		return d
	}

	var base string
	switch rest := d[dims:]; rest[0] {
	case 'L':
		if len(rest) < 3 || !strings.HasSuffix(rest, ";") {
			return d
		}
		base = strings.ReplaceAll(rest[1:len(rest)-1], "/", ".")
	case 'B':
		base = "byte"
	case 'C':
		base = "char"
	case 'D':
		base = "double"
	case 'F':
		base = "float"
	case 'I':
		base = "int"
	case 'J':
		base = "long"
	case 'S':
		base = "short"
	case 'Z':
		base = "boolean"
	case 'V':
		base = "void"
	default:
		return d
	}
	if d[dims] != 'L' && len(d) != dims+1 {
		return d
	}
	return base + strings.Repeat("[]", dims)
}

// Signature renders a proto as "(params)return" in source spelling.
func (p Proto) Signature() string {
	params := make([]string, len(p.Parameters))
	for i, t := range p.Parameters {
		params[i] = Descriptor(t)
	}
	return "(" + strings.Join(params, ", ") + ")" + Descriptor(p.ReturnType)
}
