package dex

import "fmt"

const (
	classDefSize = 32
	noIndex      = 0xffffffff
)

// pools are the tables a class_def may reference, all fully decoded.
type pools struct {
	strings []string
	types   []string
	fields  []Field
	methods []Method
}

// classDecoder walks class_defs. Class data and code items are decoded
// once per offset and shared by every class or method pointing at them,
// and the members and code bytes decoded for distinct offsets may not
// exceed what non-overlapping items could hold, so output stays linear in
// the input size.
type classDecoder struct {
	c         *Cursor
	p         pools
	classData map[uint32]*ClassData
	code      map[uint32]*CodeItem
	members   uint64 // left to decode across all class_data items
	codeBytes uint64 // left to copy across all code items
}

func newClassDecoder(c *Cursor, p pools) *classDecoder {
	return &classDecoder{
		c:         c,
		p:         p,
		classData: make(map[uint32]*ClassData),
		code:      make(map[uint32]*CodeItem),
		// Every encoded member takes at least two bytes.
		members:   uint64(c.Len()) / 2,
		codeBytes: uint64(c.Len()),
	}
}

func decodeClasses(c *Cursor, t Table, p pools) ([]Class, error) {
	const section = "class_defs"
	if err := c.require(int(t.Offset), uint64(t.Count)*classDefSize); err != nil {
		return nil, inSection(section, err)
	}

	d := newClassDecoder(c, p)
	out := make([]Class, t.Count)
	for i := range out {
		off := int(t.Offset) + i*classDefSize
		c.Seek(off)
		var raw [8]uint32
		for j := range raw {
			raw[j], _ = c.ReadUint32()
		}
		classIdx, flags, superIdx := raw[0], raw[1], raw[2]
		sourceIdx, dataOff := raw[4], raw[6]

		cls := Class{AccessFlags: AccessFlags(flags)}
		var err error
		if cls.Name, err = lookup(section, off, "class type", p.types, uint64(classIdx)); err != nil {
			return nil, err
		}
		// java.lang.Object has no superclass; stripped files have no source.
		if superIdx != noIndex {
			if cls.SuperClass, err = lookup(section, off, "superclass type", p.types, uint64(superIdx)); err != nil {
				return nil, err
			}
		}
		if sourceIdx != noIndex {
			if cls.SourceFile, err = lookup(section, off, "source file string", p.strings, uint64(sourceIdx)); err != nil {
				return nil, err
			}
		}
		if dataOff != 0 {
			if cls.Data, err = d.classDataAt(dataOff); err != nil {
				return nil, err
			}
		}
		out[i] = cls
	}
	return out, nil
}

func (d *classDecoder) classDataAt(off uint32) (*ClassData, error) {
	if cd, ok := d.classData[off]; ok {
		return cd, nil
	}
	cd, err := d.decodeClassData(off)
	if err != nil {
		return nil, err
	}
	d.classData[off] = cd
	return cd, nil
}

// decodeClassData reads a class_data_item. Member ids are stored as
// deltas from the previous member of the same list.
func (d *classDecoder) decodeClassData(off uint32) (*ClassData, error) {
	const section = "class_data"
	c := d.c
	c.Seek(int(off))

	var counts [4]uint32
	var total uint64
	for i := range counts {
		n, err := c.ReadUleb128()
		if err != nil {
			return nil, inSection(section, err)
		}
		counts[i] = n
		total += uint64(n)
	}
	if total > d.members {
		return nil, &DecodeError{Section: section, Offset: int(off), Err: ErrOutOfBounds,
			Detail: fmt.Sprintf("%d members overlap previously decoded class data", total)}
	}
	d.members -= total

	var cd ClassData
	var err error
	if cd.StaticFields, err = decodeEncodedFields(c, counts[0], d.p.fields); err != nil {
		return nil, err
	}
	if cd.InstanceFields, err = decodeEncodedFields(c, counts[1], d.p.fields); err != nil {
		return nil, err
	}
	if cd.DirectMethods, err = d.decodeEncodedMethods(counts[2]); err != nil {
		return nil, err
	}
	if cd.VirtualMethods, err = d.decodeEncodedMethods(counts[3]); err != nil {
		return nil, err
	}
	return &cd, nil
}

func decodeEncodedFields(c *Cursor, n uint32, fields []Field) ([]EncodedField, error) {
	const section = "class_data"
	// Each entry is at least two bytes.
	if err := c.require(c.Pos(), uint64(n)*2); err != nil {
		return nil, inSection(section, err)
	}

	out := make([]EncodedField, 0, n)
	var id uint64
	for i := uint32(0); i < n; i++ {
		pos := c.Pos()
		delta, err := c.ReadUleb128()
		if err != nil {
			return nil, inSection(section, err)
		}
		flags, err := c.ReadUleb128()
		if err != nil {
			return nil, inSection(section, err)
		}
		id += uint64(delta)
		if id >= uint64(len(fields)) {
			return nil, indexError(section, pos, "field", id, len(fields))
		}
		f := fields[id]
		out = append(out, EncodedField{
			Name:        f.Name,
			Type:        f.Type,
			AccessFlags: AccessFlags(flags),
			FieldIndex:  uint32(id),
		})
	}
	return out, nil
}

// decodeEncodedMethods reads the method triples of one list first and
// only then follows the code offsets, since each code item moves the
// cursor.
func (d *classDecoder) decodeEncodedMethods(n uint32) ([]EncodedMethod, error) {
	const section = "class_data"
	c, methods := d.c, d.p.methods
	if err := c.require(c.Pos(), uint64(n)*3); err != nil {
		return nil, inSection(section, err)
	}

	out := make([]EncodedMethod, 0, n)
	var id uint64
	for i := uint32(0); i < n; i++ {
		pos := c.Pos()
		var triple [3]uint32
		for j := range triple {
			v, err := c.ReadUleb128()
			if err != nil {
				return nil, inSection(section, err)
			}
			triple[j] = v
		}
		id += uint64(triple[0])
		if id >= uint64(len(methods)) {
			return nil, indexError(section, pos, "method", id, len(methods))
		}
		out = append(out, EncodedMethod{
			Name:        methods[id].Name,
			AccessFlags: AccessFlags(triple[1]),
			MethodIndex: uint32(id),
			CodeOffset:  triple[2],
		})
	}

	resume := c.Pos()
	for i := range out {
		if out[i].CodeOffset == 0 {
			continue
		}
		code, err := d.codeAt(out[i].CodeOffset)
		if err != nil {
			return nil, err
		}
		out[i].Code = code
	}
	c.Seek(resume)
	return out, nil
}

func (d *classDecoder) codeAt(off uint32) (*CodeItem, error) {
	if ci, ok := d.code[off]; ok {
		return ci, nil
	}
	ci, err := decodeCodeItem(d.c, off)
	if err != nil {
		return nil, err
	}
	n := uint64(len(ci.RawInstructions)) + codeItemHeaderSize
	if n > d.codeBytes {
		return nil, &DecodeError{Section: "code_item", Offset: int(off), Err: ErrOutOfBounds,
			Detail: "code item overlaps previously decoded code"}
	}
	d.codeBytes -= n
	d.code[off] = ci
	return ci, nil
}
