package dex

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/adler32"
)

const (
	HeaderSize         = 0x70
	endianConstant     = 0x12345678
	reverseEndianConst = 0x78563412

	checksumOffset = 8
	digestOffset   = 12
	payloadOffset  = 32
)

// Versions accepted in the magic "dex\nNNN\0".
var supportedVersions = map[string]bool{
	"035": true,
	"036": true,
	"037": true,
	"038": true,
	"039": true,
	"040": true,
	"041": true,
}

// rawHeader mirrors the on-disk header_item; field order matters.
type rawHeader struct {
	Magic         [8]byte
	Checksum      uint32
	Signature     [20]byte
	FileSize      uint32
	HeaderSize    uint32
	EndianTag     uint32
	LinkSize      uint32
	LinkOff       uint32
	MapOff        uint32
	StringIdsSize uint32
	StringIdsOff  uint32
	TypeIdsSize   uint32
	TypeIdsOff    uint32
	ProtoIdsSize  uint32
	ProtoIdsOff   uint32
	FieldIdsSize  uint32
	FieldIdsOff   uint32
	MethodIdsSize uint32
	MethodIdsOff  uint32
	ClassDefsSize uint32
	ClassDefsOff  uint32
	DataSize      uint32
	DataOff       uint32
}

// Table is a {count, offset} descriptor from the header.
type Table struct {
	Count  uint32 `json:"count"`
	Offset uint32 `json:"offset"`
}

// Header holds the verified container header.
type Header struct {
	Version    string   `json:"version"`
	Checksum   uint32   `json:"checksum"`
	Signature  [20]byte `json:"-"`
	FileSize   uint32   `json:"file_size"`
	HeaderSize uint32   `json:"header_size"`
	EndianTag  uint32   `json:"endian_tag"`
	Link       Table    `json:"link"`
	MapOff     uint32   `json:"map_off"`
	StringIDs  Table    `json:"string_ids"`
	TypeIDs    Table    `json:"type_ids"`
	ProtoIDs   Table    `json:"proto_ids"`
	FieldIDs   Table    `json:"field_ids"`
	MethodIDs  Table    `json:"method_ids"`
	ClassDefs  Table    `json:"class_defs"`
	Data       Table    `json:"data"`
}

// SHA1 returns the stored digest as lowercase hex.
func (h *Header) SHA1() string { return hex.EncodeToString(h.Signature[:]) }

// readHeader checks the magic, verifies both integrity values and parses
// the remaining header fields. No table is touched before this succeeds.
func readHeader(c *Cursor) (Header, error) {
	magic, err := c.PeekFrom(0, 8)
	if err != nil {
		return Header{}, inSection("header", err)
	}
	version := string(magic[4:7])
	if !bytes.Equal(magic[:3], []byte("dex")) || !supportedVersions[version] {
		return Header{}, &DecodeError{
			Section: "header",
			Err:     ErrUnsupportedFormat,
			Detail:  fmt.Sprintf("magic %q", magic),
		}
	}

	if err := verifyIntegrity(c); err != nil {
		return Header{}, err
	}

	b, err := c.PeekFrom(0, HeaderSize)
	if err != nil {
		return Header{}, inSection("header", err)
	}
	var raw rawHeader
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &raw); err != nil {
		return Header{}, &DecodeError{Section: "header", Err: ErrOutOfBounds, Detail: err.Error()}
	}
	// Other tag values are kept as read.
	if raw.EndianTag == reverseEndianConst {
		return Header{}, &DecodeError{Section: "header", Offset: 40, Err: ErrUnsupportedFormat,
			Detail: "big-endian containers are not supported"}
	}

	return Header{
		Version:    version,
		Checksum:   raw.Checksum,
		Signature:  raw.Signature,
		FileSize:   raw.FileSize,
		HeaderSize: raw.HeaderSize,
		EndianTag:  raw.EndianTag,
		Link:       Table{raw.LinkSize, raw.LinkOff},
		MapOff:     raw.MapOff,
		StringIDs:  Table{raw.StringIdsSize, raw.StringIdsOff},
		TypeIDs:    Table{raw.TypeIdsSize, raw.TypeIdsOff},
		ProtoIDs:   Table{raw.ProtoIdsSize, raw.ProtoIdsOff},
		FieldIDs:   Table{raw.FieldIdsSize, raw.FieldIdsOff},
		MethodIDs:  Table{raw.MethodIdsSize, raw.MethodIdsOff},
		ClassDefs:  Table{raw.ClassDefsSize, raw.ClassDefsOff},
		Data:       Table{raw.DataSize, raw.DataOff},
	}, nil
}

// verifyIntegrity recomputes the SHA-1 over everything after the digest
// field, then the Adler-32 over everything after the checksum field.
func verifyIntegrity(c *Cursor) error {
	head, err := c.PeekFrom(0, payloadOffset)
	if err != nil {
		return inSection("header", err)
	}
	payload, _ := c.PeekFrom(payloadOffset, c.Len()-payloadOffset)

	sum := sha1.Sum(payload)
	if !bytes.Equal(sum[:], head[digestOffset:payloadOffset]) {
		return &DecodeError{
			Section: "header",
			Offset:  digestOffset,
			Err:     ErrDigestMismatch,
			Detail:  fmt.Sprintf("stored %x, computed %x", head[digestOffset:payloadOffset], sum),
		}
	}

	stored := binary.LittleEndian.Uint32(head[checksumOffset:])
	checked, _ := c.PeekFrom(digestOffset, c.Len()-digestOffset)
	if computed := adler32.Checksum(checked); computed != stored {
		return &DecodeError{
			Section: "header",
			Offset:  checksumOffset,
			Err:     ErrChecksumMismatch,
			Detail:  fmt.Sprintf("stored 0x%08x, computed 0x%08x", stored, computed),
		}
	}
	return nil
}
