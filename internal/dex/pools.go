package dex

const (
	typeIDSize   = 4
	protoIDSize  = 12
	fieldIDSize  = 8
	methodIDSize = 8
)

func lookup(section string, off int, what string, pool []string, idx uint64) (string, error) {
	if idx >= uint64(len(pool)) {
		return "", indexError(section, off, what, idx, len(pool))
	}
	return pool[idx], nil
}

func decodeTypes(c *Cursor, t Table, strs []string) ([]string, error) {
	const section = "type_ids"
	if err := c.require(int(t.Offset), uint64(t.Count)*typeIDSize); err != nil {
		return nil, inSection(section, err)
	}

	c.Seek(int(t.Offset))
	out := make([]string, t.Count)
	for i := range out {
		off := c.Pos()
		idx, err := c.ReadUint32()
		if err != nil {
			return nil, inSection(section, err)
		}
		if out[i], err = lookup(section, off, "descriptor string", strs, uint64(idx)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeProtos(c *Cursor, t Table, strs, types []string) ([]Proto, error) {
	const section = "proto_ids"
	if err := c.require(int(t.Offset), uint64(t.Count)*protoIDSize); err != nil {
		return nil, inSection(section, err)
	}

	out := make([]Proto, t.Count)
	for i := range out {
		off := int(t.Offset) + i*protoIDSize
		c.Seek(off)
		shortyIdx, _ := c.ReadUint32()
		returnIdx, _ := c.ReadUint32()
		paramsOff, _ := c.ReadUint32()

		var p Proto
		var err error
		if p.Shorty, err = lookup(section, off, "shorty string", strs, uint64(shortyIdx)); err != nil {
			return nil, err
		}
		if p.ReturnType, err = lookup(section, off, "return type", types, uint64(returnIdx)); err != nil {
			return nil, err
		}
		if p.Parameters, err = decodeTypeList(c, paramsOff, types); err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// decodeTypeList reads a type_list. A zero offset means an empty list.
func decodeTypeList(c *Cursor, off uint32, types []string) ([]string, error) {
	const section = "type_list"
	if off == 0 {
		return []string{}, nil
	}
	c.Seek(int(off))
	size, err := c.ReadUint32()
	if err != nil {
		return nil, inSection(section, err)
	}
	if err := c.require(c.Pos(), uint64(size)*2); err != nil {
		return nil, inSection(section, err)
	}

	out := make([]string, size)
	for i := range out {
		pos := c.Pos()
		idx, _ := c.ReadUint16()
		if out[i], err = lookup(section, pos, "parameter type", types, uint64(idx)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeFields(c *Cursor, t Table, strs, types []string) ([]Field, error) {
	const section = "field_ids"
	if err := c.require(int(t.Offset), uint64(t.Count)*fieldIDSize); err != nil {
		return nil, inSection(section, err)
	}

	c.Seek(int(t.Offset))
	out := make([]Field, t.Count)
	for i := range out {
		off := c.Pos()
		classIdx, _ := c.ReadUint16()
		typeIdx, _ := c.ReadUint16()
		nameIdx, _ := c.ReadUint32()

		var f Field
		var err error
		if f.Class, err = lookup(section, off, "class type", types, uint64(classIdx)); err != nil {
			return nil, err
		}
		if f.Type, err = lookup(section, off, "field type", types, uint64(typeIdx)); err != nil {
			return nil, err
		}
		if f.Name, err = lookup(section, off, "name string", strs, uint64(nameIdx)); err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func decodeMethods(c *Cursor, t Table, strs, types []string, protos []Proto) ([]Method, error) {
	const section = "method_ids"
	if err := c.require(int(t.Offset), uint64(t.Count)*methodIDSize); err != nil {
		return nil, inSection(section, err)
	}

	c.Seek(int(t.Offset))
	out := make([]Method, t.Count)
	for i := range out {
		off := c.Pos()
		classIdx, _ := c.ReadUint16()
		protoIdx, _ := c.ReadUint16()
		nameIdx, _ := c.ReadUint32()

		var m Method
		var err error
		if m.Class, err = lookup(section, off, "class type", types, uint64(classIdx)); err != nil {
			return nil, err
		}
		if int(protoIdx) >= len(protos) {
			return nil, indexError(section, off, "proto", uint64(protoIdx), len(protos))
		}
		m.Proto = protos[protoIdx]
		if m.Name, err = lookup(section, off, "name string", strs, uint64(nameIdx)); err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}
