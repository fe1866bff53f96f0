package dex

import (
	"encoding/binary"
	"fmt"
)

const (
	continuationBit = 0x80
	payloadMask     = 0x7f
	maxUlebBytes    = 5
)

// Cursor is a bounded random-access reader over an immutable byte buffer.
// The position is only checked against the buffer when a read happens.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor creates a cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current read position.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the size of the underlying buffer.
func (c *Cursor) Len() int { return len(c.data) }

// Seek sets the read position. Seeking past the end is allowed; the next
// read fails.
func (c *Cursor) Seek(off int) { c.pos = off }

// Remaining returns the number of bytes left after the position, or 0 when
// the position is outside the buffer.
func (c *Cursor) Remaining() int {
	if c.pos < 0 || c.pos > len(c.data) {
		return 0
	}
	return len(c.data) - c.pos
}

func (c *Cursor) outOfBounds(off int, n uint64) error {
	return &DecodeError{
		Offset: off,
		Err:    ErrOutOfBounds,
		Detail: fmt.Sprintf("need %d bytes, buffer is %d", n, len(c.data)),
	}
}

// span returns data[off:off+n] without copying.
func (c *Cursor) span(off int, n uint64) ([]byte, error) {
	if off < 0 || off > len(c.data) || n > uint64(len(c.data)-off) {
		return nil, c.outOfBounds(off, n)
	}
	return c.data[off : off+int(n)], nil
}

// require checks that size bytes are readable at off. An empty table may
// sit at any offset.
func (c *Cursor) require(off int, size uint64) error {
	if size == 0 {
		return nil
	}
	_, err := c.span(off, size)
	return err
}

// ReadFixed returns a copy of the next n bytes and advances the position.
func (c *Cursor) ReadFixed(n int) ([]byte, error) {
	if n < 0 {
		return nil, c.outOfBounds(c.pos, 0)
	}
	return c.readCopy(uint64(n))
}

func (c *Cursor) readCopy(n uint64) ([]byte, error) {
	b, err := c.span(c.pos, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	c.pos += len(b)
	return out, nil
}

// PeekFrom returns n bytes at an absolute offset without moving the
// position. The returned slice aliases the buffer and must not be modified.
func (c *Cursor) PeekFrom(off, n int) ([]byte, error) {
	if n < 0 {
		return nil, c.outOfBounds(off, 0)
	}
	return c.span(off, uint64(n))
}

// PeekUint32 reads a little-endian uint32 at an absolute offset.
func (c *Cursor) PeekUint32(off int) (uint32, error) {
	b, err := c.span(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint8 reads one byte.
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.span(c.pos, 1)
	if err != nil {
		return 0, err
	}
	c.pos++
	return b[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.span(c.pos, 2)
	if err != nil {
		return 0, err
	}
	c.pos += 2
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian uint32.
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.span(c.pos, 4)
	if err != nil {
		return 0, err
	}
	c.pos += 4
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUleb128 decodes an unsigned LEB128 value of at most five bytes.
// Bits of the fifth byte above the 32-bit range are discarded.
func (c *Cursor) ReadUleb128() (uint32, error) {
	start := c.pos
	var result uint32
	var shift uint
	for i := 0; i < maxUlebBytes; i++ {
		b, err := c.ReadUint8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&payloadMask) << shift
		if b&continuationBit == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, &DecodeError{
		Offset: start,
		Err:    ErrMalformedVarint,
		Detail: "continuation bit set on fifth byte",
	}
}

// AppendUleb128 appends the ULEB128 encoding of v to b.
func AppendUleb128(b []byte, v uint32) []byte {
	for v >= continuationBit {
		b = append(b, byte(v&payloadMask)|continuationBit)
		v >>= 7
	}
	return append(b, byte(v))
}
