package dex

const stringIDSize = 4

// decodeStrings resolves the string_ids indirection table. An entry whose
// payload is not valid Modified UTF-8 becomes "" instead of failing the
// container.
func decodeStrings(c *Cursor, t Table) ([]string, error) {
	const section = "string_ids"
	if err := c.require(int(t.Offset), uint64(t.Count)*stringIDSize); err != nil {
		return nil, inSection(section, err)
	}

	out := make([]string, t.Count)
	for i := range out {
		dataOff, err := c.PeekUint32(int(t.Offset) + i*stringIDSize)
		if err != nil {
			return nil, inSection(section, err)
		}
		c.Seek(int(dataOff))
		units, err := c.ReadUleb128()
		if err != nil {
			return nil, inSection("string_data", err)
		}
		s, ok, err := readMUTF8(c, units)
		if err != nil {
			return nil, inSection("string_data", err)
		}
		if ok {
			out[i] = s
		}
	}
	return out, nil
}
