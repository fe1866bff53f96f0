package dex

const codeItemHeaderSize = 16

// decodeCodeItem reads the code_item header at off and copies out the
// instruction words. Tries, handlers and debug info are not followed.
func decodeCodeItem(c *Cursor, off uint32) (*CodeItem, error) {
	const section = "code_item"
	if err := c.require(int(off), codeItemHeaderSize); err != nil {
		return nil, inSection(section, err)
	}

	c.Seek(int(off))
	var ci CodeItem
	ci.RegistersSize, _ = c.ReadUint16()
	ci.InsSize, _ = c.ReadUint16()
	ci.OutsSize, _ = c.ReadUint16()
	ci.TriesSize, _ = c.ReadUint16()
	ci.DebugInfoOffset, _ = c.ReadUint32()
	words, _ := c.ReadUint32()

	insns, err := c.readCopy(uint64(words) * 2)
	if err != nil {
		return nil, inSection(section, err)
	}
	ci.RawInstructions = insns
	return &ci, nil
}
