package dex

import (
	"encoding/json"
	"strings"
)

// AccessFlags is the access_flags bitmask shared by classes, fields and
// methods.
type AccessFlags uint32

const (
	AccPublic               AccessFlags = 0x1
	AccPrivate              AccessFlags = 0x2
	AccProtected            AccessFlags = 0x4
	AccStatic               AccessFlags = 0x8
	AccFinal                AccessFlags = 0x10
	AccSynchronized         AccessFlags = 0x20
	AccBridge               AccessFlags = 0x40 // volatile on fields
	AccVarargs              AccessFlags = 0x80 // transient on fields
	AccNative               AccessFlags = 0x100
	AccInterface            AccessFlags = 0x200
	AccAbstract             AccessFlags = 0x400
	AccStrict               AccessFlags = 0x800
	AccSynthetic            AccessFlags = 0x1000
	AccAnnotation           AccessFlags = 0x2000
	AccEnum                 AccessFlags = 0x4000
	AccUnused               AccessFlags = 0x8000
	AccConstructor          AccessFlags = 0x10000
	AccDeclaredSynchronized AccessFlags = 0x20000
)

var accessLabels = []struct {
	bit   AccessFlags
	label string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSynchronized, "synchronized"},
	{AccBridge, "bridge"},
	{AccVarargs, "varargs"},
	{AccNative, "native"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
	{AccStrict, "strictfp"},
	{AccSynthetic, "synthetic"},
	{AccAnnotation, "annotation"},
	{AccEnum, "enum"},
	{AccUnused, "unused"},
	{AccConstructor, "constructor"},
	{AccDeclaredSynchronized, "synchronized"},
}

// Labels returns one label per recognized bit in ascending bit order.
// Unknown bits are ignored and a label is never repeated.
func (f AccessFlags) Labels() []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, l := range accessLabels {
		if f&l.bit == 0 || seen[l.label] {
			continue
		}
		seen[l.label] = true
		out = append(out, l.label)
	}
	return out
}

// Has reports whether label is among the decoded modifiers.
func (f AccessFlags) Has(label string) bool {
	for _, l := range f.Labels() {
		if l == label {
			return true
		}
	}
	return false
}

func (f AccessFlags) String() string { return strings.Join(f.Labels(), " ") }

func (f AccessFlags) MarshalJSON() ([]byte, error) { return json.Marshal(f.Labels()) }
