package dex

// Decode parses a complete DEX file. It either returns a fully resolved
// Container or an error wrapping one of the package sentinels; it never
// returns a partial result. data is not retained.
func Decode(data []byte) (*Container, error) {
	c := NewCursor(data)

	hdr, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	strs, err := decodeStrings(c, hdr.StringIDs)
	if err != nil {
		return nil, err
	}
	types, err := decodeTypes(c, hdr.TypeIDs, strs)
	if err != nil {
		return nil, err
	}
	protos, err := decodeProtos(c, hdr.ProtoIDs, strs, types)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(c, hdr.FieldIDs, strs, types)
	if err != nil {
		return nil, err
	}
	methods, err := decodeMethods(c, hdr.MethodIDs, strs, types, protos)
	if err != nil {
		return nil, err
	}
	classes, err := decodeClasses(c, hdr.ClassDefs, pools{
		strings: strs,
		types:   types,
		fields:  fields,
		methods: methods,
	})
	if err != nil {
		return nil, err
	}

	return &Container{
		Header:  hdr,
		Strings: strs,
		Types:   types,
		Protos:  protos,
		Fields:  fields,
		Methods: methods,
		Classes: classes,
	}, nil
}

// IsDex reports whether b starts with the DEX magic prefix.
func IsDex(b []byte) bool {
	return len(b) >= 4 && string(b[:4]) == "dex\n"
}
