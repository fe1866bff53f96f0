package dex

import (
	"strings"
	"unicode/utf16"
)

// readMUTF8 decodes a Modified UTF-8 payload holding units UTF-16 code
// units. ok is false when the bytes are not valid Modified UTF-8; err is
// only set when the payload runs past the buffer.
//
// See https://source.android.com/docs/core/runtime/dex-format#mutf-8
func readMUTF8(c *Cursor, units uint32) (s string, ok bool, err error) {
	var sb strings.Builder
	var pending rune = -1 // high surrogate waiting for its pair

	for n := uint32(0); n < units; n++ {
		u, valid, err := readMUTF8Unit(c)
		if err != nil {
			return "", false, err
		}
		if !valid {
			return "", false, nil
		}
		switch {
		case utf16.IsSurrogate(u) && u < 0xdc00:
			if pending >= 0 {
				return "", false, nil
			}
			pending = u
		case utf16.IsSurrogate(u):
			if pending < 0 {
				return "", false, nil
			}
			sb.WriteRune(utf16.DecodeRune(pending, u))
			pending = -1
		default:
			if pending >= 0 {
				return "", false, nil
			}
			sb.WriteRune(u)
		}
	}
	if pending >= 0 {
		return "", false, nil
	}
	return sb.String(), true, nil
}

// readMUTF8Unit reads the one-, two- or three-byte encoding of a single
// UTF-16 code unit.
func readMUTF8Unit(c *Cursor) (rune, bool, error) {
	b0, err := c.ReadUint8()
	if err != nil {
		return 0, false, err
	}
	switch b0 >> 4 {
	case 0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7:
		// A raw NUL only appears as the terminator, never inside a string.
		return rune(b0), b0 != 0, nil
	case 0xc, 0xd:
		b1, err := c.ReadUint8()
		if err != nil {
			return 0, false, err
		}
		if b1&0xc0 != 0x80 {
			return 0, false, nil
		}
		return rune(b0&0x1f)<<6 | rune(b1&0x3f), true, nil
	case 0xe:
		b1, err := c.ReadUint8()
		if err != nil {
			return 0, false, err
		}
		if b1&0xc0 != 0x80 {
			return 0, false, nil
		}
		b2, err := c.ReadUint8()
		if err != nil {
			return 0, false, err
		}
		if b2&0xc0 != 0x80 {
			return 0, false, nil
		}
		return rune(b0&0x0f)<<12 | rune(b1&0x3f)<<6 | rune(b2&0x3f), true, nil
	default:
		return 0, false, nil
	}
}

// AppendMUTF8 appends the Modified UTF-8 encoding of s to b and returns the
// extended slice with the number of UTF-16 code units written.
func AppendMUTF8(b []byte, s string) ([]byte, uint32) {
	var units uint32
	for _, u := range utf16.Encode([]rune(s)) {
		units++
		switch {
		case u != 0 && u < 0x80:
			b = append(b, byte(u))
		case u < 0x800:
			b = append(b, 0xc0|byte(u>>6), 0x80|byte(u&0x3f))
		default:
			b = append(b, 0xe0|byte(u>>12), 0x80|byte((u>>6)&0x3f), 0x80|byte(u&0x3f))
		}
	}
	return b, units
}
