package dex

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/adler32"
)

// dexBuilder lays out a small but structurally valid DEX file for tests.
// Index tables follow the header in order; string data, type lists, code
// items and class data follow in the data section.
type dexBuilder struct {
	strings    []string
	rawStrings map[int][]byte // payload override for strings[i]
	types      []uint32
	protos     []protoSpec
	fields     []idSpec
	methods    []idSpec
	classes    []classSpec
}

type protoSpec struct {
	shorty, ret uint32
	params      []uint16
}

// idSpec is a field_id_item or method_id_item: class, type/proto, name.
type idSpec struct {
	class, ref uint16
	name       uint32
}

type classSpec struct {
	class, flags, super, source uint32
	data                        *classDataSpec
	rawData                     []byte // written verbatim instead of data
}

type classDataSpec struct {
	static, instance [][2]uint32 // (delta, flags)
	direct, virtual  []methodSpec
}

type methodSpec struct {
	delta, flags uint32
	code         *codeSpec
}

type codeSpec struct {
	registers, ins, outs uint16
	words                []uint16
	wordCount            uint32 // overrides len(words) in the header when set
}

const (
	hdrStringIDs = 0x38
	hdrTypeIDs   = 0x40
	hdrProtoIDs  = 0x48
	hdrFieldIDs  = 0x50
	hdrMethodIDs = 0x58
	hdrClassDefs = 0x60
	hdrData      = 0x68
)

func put16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:], v) }
func put32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }

func align4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func (d *dexBuilder) build() []byte {
	strOff := HeaderSize
	typeOff := strOff + 4*len(d.strings)
	protoOff := typeOff + 4*len(d.types)
	fieldOff := protoOff + protoIDSize*len(d.protos)
	methodOff := fieldOff + fieldIDSize*len(d.fields)
	classOff := methodOff + methodIDSize*len(d.methods)
	dataOff := classOff + classDefSize*len(d.classes)

	buf := make([]byte, dataOff)
	copy(buf, "dex\n035\x00")

	for i, s := range d.strings {
		put32(buf, strOff+4*i, uint32(len(buf)))
		if raw, ok := d.rawStrings[i]; ok {
			buf = AppendUleb128(buf, uint32(len(raw)))
			buf = append(buf, raw...)
		} else {
			enc, units := AppendMUTF8(nil, s)
			buf = AppendUleb128(buf, units)
			buf = append(buf, enc...)
		}
		buf = append(buf, 0)
	}

	for i, idx := range d.types {
		put32(buf, typeOff+4*i, idx)
	}

	for i, p := range d.protos {
		var paramsOff uint32
		if len(p.params) > 0 {
			buf = align4(buf)
			paramsOff = uint32(len(buf))
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.params)))
			for _, t := range p.params {
				buf = binary.LittleEndian.AppendUint16(buf, t)
			}
		}
		rec := protoOff + protoIDSize*i
		put32(buf, rec, p.shorty)
		put32(buf, rec+4, p.ret)
		put32(buf, rec+8, paramsOff)
	}

	for i, f := range d.fields {
		rec := fieldOff + fieldIDSize*i
		put16(buf, rec, f.class)
		put16(buf, rec+2, f.ref)
		put32(buf, rec+4, f.name)
	}
	for i, m := range d.methods {
		rec := methodOff + methodIDSize*i
		put16(buf, rec, m.class)
		put16(buf, rec+2, m.ref)
		put32(buf, rec+4, m.name)
	}

	for i, cls := range d.classes {
		var clsDataOff uint32
		switch {
		case cls.rawData != nil:
			clsDataOff = uint32(len(buf))
			buf = append(buf, cls.rawData...)
		case cls.data != nil:
			buf, clsDataOff = appendClassData(buf, cls.data)
		}
		rec := classOff + classDefSize*i
		put32(buf, rec, cls.class)
		put32(buf, rec+4, cls.flags)
		put32(buf, rec+8, cls.super)
		put32(buf, rec+16, cls.source)
		put32(buf, rec+24, clsDataOff)
	}

	buf = align4(buf)
	put32(buf, 0x20, uint32(len(buf)))
	put32(buf, 0x24, HeaderSize)
	put32(buf, 0x28, endianConstant)
	tables := []struct{ at, n, off int }{
		{hdrStringIDs, len(d.strings), strOff},
		{hdrTypeIDs, len(d.types), typeOff},
		{hdrProtoIDs, len(d.protos), protoOff},
		{hdrFieldIDs, len(d.fields), fieldOff},
		{hdrMethodIDs, len(d.methods), methodOff},
		{hdrClassDefs, len(d.classes), classOff},
	}
	for _, t := range tables {
		put32(buf, t.at, uint32(t.n))
		if t.n > 0 {
			put32(buf, t.at+4, uint32(t.off))
		}
	}
	put32(buf, hdrData, uint32(len(buf)-dataOff))
	put32(buf, hdrData+4, uint32(dataOff))
	return seal(buf)
}

// appendClassData writes the code items of every method first, then the
// class_data_item pointing at them.
func appendClassData(buf []byte, cd *classDataSpec) ([]byte, uint32) {
	codeOffs := func(list []methodSpec) []uint32 {
		offs := make([]uint32, len(list))
		for i, m := range list {
			if m.code == nil {
				continue
			}
			buf = align4(buf)
			offs[i] = uint32(len(buf))
			n := m.code.wordCount
			if n == 0 {
				n = uint32(len(m.code.words))
			}
			buf = binary.LittleEndian.AppendUint16(buf, m.code.registers)
			buf = binary.LittleEndian.AppendUint16(buf, m.code.ins)
			buf = binary.LittleEndian.AppendUint16(buf, m.code.outs)
			buf = binary.LittleEndian.AppendUint16(buf, 0)
			buf = binary.LittleEndian.AppendUint32(buf, 0)
			buf = binary.LittleEndian.AppendUint32(buf, n)
			for _, w := range m.code.words {
				buf = binary.LittleEndian.AppendUint16(buf, w)
			}
		}
		return offs
	}
	directOffs := codeOffs(cd.direct)
	virtualOffs := codeOffs(cd.virtual)

	off := uint32(len(buf))
	for _, n := range []int{len(cd.static), len(cd.instance), len(cd.direct), len(cd.virtual)} {
		buf = AppendUleb128(buf, uint32(n))
	}
	for _, list := range [][][2]uint32{cd.static, cd.instance} {
		for _, f := range list {
			buf = AppendUleb128(buf, f[0])
			buf = AppendUleb128(buf, f[1])
		}
	}
	for li, list := range [][]methodSpec{cd.direct, cd.virtual} {
		offs := directOffs
		if li == 1 {
			offs = virtualOffs
		}
		for i, m := range list {
			buf = AppendUleb128(buf, m.delta)
			buf = AppendUleb128(buf, m.flags)
			buf = AppendUleb128(buf, offs[i])
		}
	}
	return buf, off
}

// seal rewrites the SHA-1 digest and Adler-32 checksum in place.
func seal(buf []byte) []byte {
	sum := sha1.Sum(buf[payloadOffset:])
	copy(buf[digestOffset:payloadOffset], sum[:])
	put32(buf, checksumOffset, adler32.Checksum(buf[digestOffset:]))
	return buf
}

// objectOnly is the smallest useful container: one class extending itself
// with no class data.
func objectOnly() *dexBuilder {
	return &dexBuilder{
		strings: []string{"Ljava/lang/Object;"},
		types:   []uint32{0},
		classes: []classSpec{{class: 0, flags: uint32(AccPublic), super: 0, source: noIndex}},
	}
}

// sampleBuilder describes one class with fields, methods and code.
//
//	strings: 0 "<init>" 1 "I" 2 "LFoo;" 3 "Foo.java" 4 "V" 5 "VI"
//	         6 "a" 7 "b" 8 "c" 9 "d" 10 "e" 11 "run" 12 "set"
//	types:   0 I, 1 LFoo;, 2 V
//	protos:  0 ()V, 1 (I)V
//	fields:  Foo.a..Foo.e, all int
//	methods: 0 Foo.<init>()V, 1 Foo.run()V, 2 Foo.set(I)V
func sampleBuilder() *dexBuilder {
	return &dexBuilder{
		strings: []string{"<init>", "I", "LFoo;", "Foo.java", "V", "VI",
			"a", "b", "c", "d", "e", "run", "set"},
		types:  []uint32{1, 2, 4},
		protos: []protoSpec{{shorty: 4, ret: 2}, {shorty: 5, ret: 2, params: []uint16{0}}},
		fields: []idSpec{
			{1, 0, 6}, {1, 0, 7}, {1, 0, 8}, {1, 0, 9}, {1, 0, 10},
		},
		methods: []idSpec{{1, 0, 0}, {1, 0, 11}, {1, 1, 12}},
		classes: []classSpec{{
			class:  1,
			flags:  uint32(AccPublic | AccFinal),
			super:  1,
			source: 3,
			data: &classDataSpec{
				static:   [][2]uint32{{2, uint32(AccPublic)}},
				instance: [][2]uint32{{1, uint32(AccPrivate)}, {0, uint32(AccPrivate | AccFinal)}, {2, 0}},
				direct: []methodSpec{{
					delta: 0,
					flags: uint32(AccPublic | AccConstructor),
					code:  &codeSpec{registers: 1, ins: 1, outs: 1, words: []uint16{0x1070, 0x0003, 0x0000, 0x000e}},
				}},
				virtual: []methodSpec{
					{delta: 1, flags: uint32(AccPublic | AccAbstract)},
					{delta: 1, flags: uint32(AccPublic), code: &codeSpec{registers: 2, ins: 2}},
				},
			},
		}},
	}
}

func adler32Of(buf []byte) uint32 { return adler32.Checksum(buf[digestOffset:]) }
