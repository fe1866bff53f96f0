// Package dextest builds small valid DEX containers for tests outside the
// dex package. It has no dependency on dex so that either side can use it.
package dextest

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/adler32"
)

const headerSize = 0x70

// Minimal returns a container declaring each named class (as type
// descriptors, e.g. "Lcom/example/Main;") as a public subclass of
// java.lang.Object with no members. Names are plain ASCII.
func Minimal(classes ...string) []byte {
	strs := append([]string{"Ljava/lang/Object;"}, classes...)

	strOff := headerSize
	typeOff := strOff + 4*len(strs)
	classOff := typeOff + 4*len(strs)
	dataOff := classOff + 32*len(classes)

	buf := make([]byte, dataOff)
	copy(buf, "dex\n035\x00")
	le := binary.LittleEndian

	for i, s := range strs {
		le.PutUint32(buf[strOff+4*i:], uint32(len(buf)))
		buf = appendUleb(buf, uint32(len(s)))
		buf = append(buf, s...)
		buf = append(buf, 0)
		le.PutUint32(buf[typeOff+4*i:], uint32(i))
	}
	for i := range classes {
		rec := buf[classOff+32*i:]
		le.PutUint32(rec, uint32(i+1)) // class type
		le.PutUint32(rec[4:], 0x1)     // public
		le.PutUint32(rec[8:], 0)       // superclass java.lang.Object
		le.PutUint32(rec[16:], 0xffffffff)
	}
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}

	le.PutUint32(buf[0x20:], uint32(len(buf)))
	le.PutUint32(buf[0x24:], headerSize)
	le.PutUint32(buf[0x28:], 0x12345678)
	le.PutUint32(buf[0x38:], uint32(len(strs)))
	le.PutUint32(buf[0x3c:], uint32(strOff))
	le.PutUint32(buf[0x40:], uint32(len(strs)))
	le.PutUint32(buf[0x44:], uint32(typeOff))
	if len(classes) > 0 {
		le.PutUint32(buf[0x60:], uint32(len(classes)))
		le.PutUint32(buf[0x64:], uint32(classOff))
	}
	le.PutUint32(buf[0x68:], uint32(len(buf)-dataOff))
	le.PutUint32(buf[0x6c:], uint32(dataOff))
	return Seal(buf)
}

// Seal recomputes the SHA-1 signature and Adler-32 checksum of buf in
// place and returns it.
func Seal(buf []byte) []byte {
	sum := sha1.Sum(buf[32:])
	copy(buf[12:32], sum[:])
	binary.LittleEndian.PutUint32(buf[8:], adler32.Checksum(buf[12:]))
	return buf
}

func appendUleb(b []byte, v uint32) []byte {
	for v >= 0x80 {
		b = append(b, byte(v&0x7f)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}
