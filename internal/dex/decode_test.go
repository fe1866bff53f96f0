package dex

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func mustDecode(t *testing.T, data []byte) *Container {
	t.Helper()
	c, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return c
}

func TestDecodeObjectWithoutClassData(t *testing.T) {
	c := mustDecode(t, objectOnly().build())

	if len(c.Classes) != 1 {
		t.Fatalf("got %d classes, want 1", len(c.Classes))
	}
	cls := c.Classes[0]
	if cls.Name != "Ljava/lang/Object;" || cls.SuperClass != "Ljava/lang/Object;" {
		t.Errorf("class = %q extends %q", cls.Name, cls.SuperClass)
	}
	if cls.Data != nil {
		t.Errorf("Data = %+v, want nil", cls.Data)
	}
	if cls.SourceFile != "" {
		t.Errorf("SourceFile = %q, want empty for NO_INDEX", cls.SourceFile)
	}
	if got := cls.AccessFlags.Labels(); !reflect.DeepEqual(got, []string{"public"}) {
		t.Errorf("access flags = %v", got)
	}
	if c.Header.Version != "035" {
		t.Errorf("Version = %q", c.Header.Version)
	}
	if len(c.Protos) != 0 || len(c.Fields) != 0 || len(c.Methods) != 0 {
		t.Errorf("unexpected pools: %d protos, %d fields, %d methods", len(c.Protos), len(c.Fields), len(c.Methods))
	}
}

func TestDecodePools(t *testing.T) {
	c := mustDecode(t, sampleBuilder().build())

	if want := []string{"I", "LFoo;", "V"}; !reflect.DeepEqual(c.Types, want) {
		t.Errorf("Types = %v, want %v", c.Types, want)
	}

	wantProtos := []Proto{
		{Shorty: "V", ReturnType: "V", Parameters: []string{}},
		{Shorty: "VI", ReturnType: "V", Parameters: []string{"I"}},
	}
	if !reflect.DeepEqual(c.Protos, wantProtos) {
		t.Errorf("Protos = %+v, want %+v", c.Protos, wantProtos)
	}
	if c.Protos[0].Parameters == nil {
		t.Error("zero parameter offset should give an empty, non-nil list")
	}

	if got := c.Fields[3]; got != (Field{Class: "LFoo;", Type: "I", Name: "d"}) {
		t.Errorf("Fields[3] = %+v", got)
	}

	m := c.Methods[2]
	if m.Class != "LFoo;" || m.Name != "set" || !reflect.DeepEqual(m.Proto, wantProtos[1]) {
		t.Errorf("Methods[2] = %+v", m)
	}
}

func TestDecodeStaticFieldDelta(t *testing.T) {
	c := mustDecode(t, sampleBuilder().build())

	cls, ok := c.Class("LFoo;")
	if !ok || cls.Data == nil {
		t.Fatal("LFoo; has no class data")
	}
	if cls.SourceFile != "Foo.java" {
		t.Errorf("SourceFile = %q", cls.SourceFile)
	}
	if len(cls.Data.StaticFields) != 1 {
		t.Fatalf("got %d static fields, want 1", len(cls.Data.StaticFields))
	}
	f := cls.Data.StaticFields[0]
	if f.FieldIndex != 2 || f.Name != c.Fields[2].Name || f.Type != c.Fields[2].Type {
		t.Errorf("static field = %+v, want Fields[2] %+v", f, c.Fields[2])
	}
	if got := f.AccessFlags.Labels(); !reflect.DeepEqual(got, []string{"public"}) {
		t.Errorf("access flags = %v", got)
	}
}

// Instance fields resolve through the same path as static fields. Older
// tooling stored the whole field_id record as the instance field name; the
// name here must be the field's name string.
func TestDecodeInstanceFieldsUseFieldName(t *testing.T) {
	c := mustDecode(t, sampleBuilder().build())
	got := c.Classes[0].Data.InstanceFields

	want := []EncodedField{
		{Name: "b", Type: "I", AccessFlags: AccPrivate, FieldIndex: 1},
		{Name: "b", Type: "I", AccessFlags: AccPrivate | AccFinal, FieldIndex: 1},
		{Name: "d", Type: "I", AccessFlags: 0, FieldIndex: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InstanceFields = %+v, want %+v", got, want)
	}
}

func TestDecodeMethodsAndCode(t *testing.T) {
	c := mustDecode(t, sampleBuilder().build())
	data := c.Classes[0].Data

	if len(data.DirectMethods) != 1 || len(data.VirtualMethods) != 2 {
		t.Fatalf("got %d direct, %d virtual methods", len(data.DirectMethods), len(data.VirtualMethods))
	}

	ctor := data.DirectMethods[0]
	if ctor.Name != "<init>" || ctor.MethodIndex != 0 {
		t.Errorf("direct[0] = %+v", ctor)
	}
	if got := ctor.AccessFlags.Labels(); !reflect.DeepEqual(got, []string{"public", "constructor"}) {
		t.Errorf("ctor flags = %v", got)
	}
	if ctor.Code == nil {
		t.Fatal("constructor has no code item")
	}
	if ctor.Code.RegistersSize != 1 || ctor.Code.InsSize != 1 || ctor.Code.OutsSize != 1 || ctor.Code.TriesSize != 0 {
		t.Errorf("code header = %+v", ctor.Code)
	}
	if want := []uint16{0x1070, 0x0003, 0x0000, 0x000e}; !reflect.DeepEqual(ctor.Code.Words(), want) {
		t.Errorf("Words() = %#x, want %#x", ctor.Code.Words(), want)
	}
	if len(ctor.Code.RawInstructions) != 8 {
		t.Errorf("raw instructions = %d bytes, want 8", len(ctor.Code.RawInstructions))
	}

	abstract := data.VirtualMethods[0]
	if abstract.Name != "run" || abstract.CodeOffset != 0 {
		t.Errorf("virtual[0] = %+v", abstract)
	}
	if abstract.Code != nil {
		t.Errorf("method with code_off 0 has code %+v", abstract.Code)
	}

	empty := data.VirtualMethods[1]
	if empty.Name != "set" || empty.MethodIndex != 2 {
		t.Errorf("virtual[1] = %+v", empty)
	}
	if empty.Code == nil {
		t.Fatal("method with nonzero code_off has no code item")
	}
	if empty.Code.RawInstructions == nil || len(empty.Code.RawInstructions) != 0 {
		t.Errorf("empty code item instructions = %v", empty.Code.RawInstructions)
	}
}

func TestDecodeCodePresenceMatchesOffset(t *testing.T) {
	c := mustDecode(t, sampleBuilder().build())
	for _, cls := range c.Classes {
		if cls.Data == nil {
			continue
		}
		for _, m := range append(cls.Data.DirectMethods, cls.Data.VirtualMethods...) {
			if (m.CodeOffset != 0) != (m.Code != nil) {
				t.Errorf("%s: code_off 0x%x, code present %v", m.Name, m.CodeOffset, m.Code != nil)
			}
		}
	}
}

func TestDecodeDeltaOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b := sampleBuilder()

	const pool = 40
	b.fields = nil
	b.methods = nil
	for i := 0; i < pool; i++ {
		b.fields = append(b.fields, idSpec{1, 0, 6 + uint32(i%5)})
		b.methods = append(b.methods, idSpec{1, 0, 11})
	}
	fieldDeltas := func() [][2]uint32 {
		var out [][2]uint32
		for sum := uint32(0); ; {
			d := uint32(rng.Intn(4))
			if sum+d >= pool {
				return out
			}
			sum += d
			out = append(out, [2]uint32{d, 0})
		}
	}
	methodDeltas := func() []methodSpec {
		var out []methodSpec
		for sum := uint32(0); ; {
			d := uint32(rng.Intn(4))
			if sum+d >= pool {
				return out
			}
			sum += d
			out = append(out, methodSpec{delta: d})
		}
	}
	b.classes[0].data = &classDataSpec{
		static:   fieldDeltas(),
		instance: fieldDeltas(),
		direct:   methodDeltas(),
		virtual:  methodDeltas(),
	}
	data := mustDecode(t, b.build()).Classes[0].Data

	fieldsSorted := func(name string, list []EncodedField) {
		for i := 1; i < len(list); i++ {
			if list[i].FieldIndex < list[i-1].FieldIndex {
				t.Errorf("%s: index %d after %d", name, list[i].FieldIndex, list[i-1].FieldIndex)
			}
		}
	}
	methodsSorted := func(name string, list []EncodedMethod) {
		for i := 1; i < len(list); i++ {
			if list[i].MethodIndex < list[i-1].MethodIndex {
				t.Errorf("%s: index %d after %d", name, list[i].MethodIndex, list[i-1].MethodIndex)
			}
		}
	}
	fieldsSorted("static", data.StaticFields)
	fieldsSorted("instance", data.InstanceFields)
	methodsSorted("direct", data.DirectMethods)
	methodsSorted("virtual", data.VirtualMethods)

	// Each list restarts from zero.
	if len(data.InstanceFields) > 0 && data.InstanceFields[0].FieldIndex != b.classes[0].data.instance[0][0] {
		t.Errorf("instance list did not restart: first index %d", data.InstanceFields[0].FieldIndex)
	}
	if len(data.VirtualMethods) > 0 && data.VirtualMethods[0].MethodIndex != b.classes[0].data.virtual[0].delta {
		t.Errorf("virtual list did not restart: first index %d", data.VirtualMethods[0].MethodIndex)
	}
}

func TestDecodeMalformedStringIsEmpty(t *testing.T) {
	b := sampleBuilder()
	b.rawStrings = map[int][]byte{
		6: {0xff, 0x41},       // invalid lead byte
		7: {0xc3},             // truncated two-byte sequence, runs into the terminator
		9: {0xed, 0xa0, 0x80}, // lone high surrogate
	}
	c := mustDecode(t, b.build())

	for _, i := range []int{6, 7, 9} {
		if c.Strings[i] != "" {
			t.Errorf("Strings[%d] = %q, want empty", i, c.Strings[i])
		}
	}
	if c.Strings[8] != "c" || c.Strings[10] != "e" {
		t.Errorf("neighbouring strings damaged: %q %q", c.Strings[8], c.Strings[10])
	}
}

func TestDecodeDoesNotRetainInput(t *testing.T) {
	data := sampleBuilder().build()
	c := mustDecode(t, data)
	before := append([]byte(nil), c.Classes[0].Data.DirectMethods[0].Code.RawInstructions...)

	for i := range data {
		data[i] = 0xaa
	}
	if got := c.Classes[0].Data.DirectMethods[0].Code.RawInstructions; !reflect.DeepEqual(got, before) {
		t.Errorf("instructions changed with input buffer: %x", got)
	}
}

func TestDecodeIntegrity(t *testing.T) {
	valid := sampleBuilder().build()

	t.Run("digest", func(t *testing.T) {
		for _, off := range []int{payloadOffset, HeaderSize, len(valid) / 2, len(valid) - 1} {
			data := append([]byte(nil), valid...)
			data[off] ^= 0x01
			_, err := Decode(data)
			if !errors.Is(err, ErrDigestMismatch) {
				t.Errorf("flip at 0x%x: err = %v, want ErrDigestMismatch", off, err)
			}
		}
	})

	t.Run("checksum", func(t *testing.T) {
		data := append([]byte(nil), valid...)
		data[checksumOffset] ^= 0xff
		_, err := Decode(data)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Errorf("err = %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("digest field", func(t *testing.T) {
		data := append([]byte(nil), valid...)
		data[digestOffset] ^= 0xff
		put32(data, checksumOffset, adler32Of(data))
		_, err := Decode(data)
		if !errors.Is(err, ErrDigestMismatch) {
			t.Errorf("err = %v, want ErrDigestMismatch", err)
		}
	})
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{"bad magic", func(b []byte) { copy(b, "dey\n") }},
		{"unknown version", func(b []byte) { copy(b[4:], "099") }},
		{"big endian", func(b []byte) { put32(b, 0x28, reverseEndianConst) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := objectOnly().build()
			tt.mutate(data)
			seal(data)
			_, err := Decode(data)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("err = %v, want ErrUnsupportedFormat", err)
			}
		})
	}
}

func TestDecodeKeepsUnknownEndianTag(t *testing.T) {
	data := objectOnly().build()
	put32(data, 0x28, 0)
	c := mustDecode(t, seal(data))
	if c.Header.EndianTag != 0 {
		t.Errorf("EndianTag = 0x%08x, want 0", c.Header.EndianTag)
	}
}

func TestDecodeOutOfBounds(t *testing.T) {
	tests := []struct {
		name    string
		build   func() []byte
		section string
	}{
		{
			name: "short header",
			build: func() []byte {
				data := objectOnly().build()[:0x40]
				return seal(data)
			},
			section: "header",
		},
		{
			name: "string ids count",
			build: func() []byte {
				data := objectOnly().build()
				put32(data, hdrStringIDs, 0x10000000)
				return seal(data)
			},
			section: "string_ids",
		},
		{
			name: "string data offset",
			build: func() []byte {
				data := objectOnly().build()
				put32(data, HeaderSize, uint32(len(data)+8))
				return seal(data)
			},
			section: "string_data",
		},
		{
			name: "type ids offset",
			build: func() []byte {
				data := objectOnly().build()
				put32(data, hdrTypeIDs+4, uint32(len(data)-2))
				return seal(data)
			},
			section: "type_ids",
		},
		{
			name: "class defs past end",
			build: func() []byte {
				data := objectOnly().build()
				put32(data, hdrClassDefs+4, uint32(len(data)-16))
				return seal(data)
			},
			section: "class_defs",
		},
		{
			name: "instruction count",
			build: func() []byte {
				b := sampleBuilder()
				b.classes[0].data.direct[0].code.wordCount = 0x7fffffff
				return b.build()
			},
			section: "code_item",
		},
		{
			name: "class data truncated",
			build: func() []byte {
				b := objectOnly()
				b.classes[0].rawData = []byte{0x7f, 0, 0, 0}
				return b.build()
			},
			section: "class_data",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.build())
			if !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("err = %v, want ErrOutOfBounds", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("err %T is not a *DecodeError", err)
			}
			if de.Section != tt.section {
				t.Errorf("Section = %q, want %q", de.Section, tt.section)
			}
		})
	}
}

func TestDecodeIndexOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dexBuilder)
	}{
		{"type string", func(b *dexBuilder) { b.types[0] = 99 }},
		{"proto return type", func(b *dexBuilder) { b.protos[0].ret = 3 }},
		{"proto parameter", func(b *dexBuilder) { b.protos[1].params[0] = 7 }},
		{"field type", func(b *dexBuilder) { b.fields[0].ref = 3 }},
		{"field name", func(b *dexBuilder) { b.fields[0].name = 13 }},
		{"method proto", func(b *dexBuilder) { b.methods[0].ref = 2 }},
		{"superclass", func(b *dexBuilder) { b.classes[0].super = 3 }},
		{"source file", func(b *dexBuilder) { b.classes[0].source = 100 }},
		{"static field delta", func(b *dexBuilder) { b.classes[0].data.static[0][0] = 5 }},
		{"instance running sum", func(b *dexBuilder) { b.classes[0].data.instance[2][0] = 4 }},
		{"virtual method delta", func(b *dexBuilder) { b.classes[0].data.virtual[1].delta = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sampleBuilder()
			tt.mutate(b)
			c, err := Decode(b.build())
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
			}
			if c != nil {
				t.Error("partial container returned with error")
			}
		})
	}
}

func TestDecodeMalformedVarintInClassData(t *testing.T) {
	b := objectOnly()
	b.classes[0].rawData = []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00, 0, 0}
	_, err := Decode(b.build())
	if !errors.Is(err, ErrMalformedVarint) {
		t.Fatalf("err = %v, want ErrMalformedVarint", err)
	}
	var de *DecodeError
	if errors.As(err, &de) && de.Section != "class_data" {
		t.Errorf("Section = %q, want class_data", de.Section)
	}
}

func TestDecodeStats(t *testing.T) {
	got := mustDecode(t, sampleBuilder().build()).Stats()
	want := Stats{Strings: 13, Types: 3, Protos: 2, Fields: 5, Methods: 3, Classes: 1, Code: 2}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestIsDex(t *testing.T) {
	if !IsDex(objectOnly().build()) {
		t.Error("built container not recognized")
	}
	for _, b := range [][]byte{nil, []byte("dex"), []byte("PK\x03\x04")} {
		if IsDex(b) {
			t.Errorf("IsDex(%q) = true", b)
		}
	}
}
