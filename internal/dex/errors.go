package dex

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds       = errors.New("read out of bounds")
	ErrMalformedVarint   = errors.New("malformed uleb128")
	ErrChecksumMismatch  = errors.New("adler32 checksum mismatch")
	ErrDigestMismatch    = errors.New("sha1 digest mismatch")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// DecodeError reports which check failed and where. Err is one of the
// package sentinels, so callers can match with errors.Is.
type DecodeError struct {
	Section string // table or structure being decoded, e.g. "class_data"
	Offset  int    // byte offset of the failing read or record
	Err     error
	Detail  string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("dex: %v at 0x%x", e.Err, e.Offset)
	if e.Section != "" {
		msg = fmt.Sprintf("dex: %s: %v at 0x%x", e.Section, e.Err, e.Offset)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// inSection tags err with the section name unless it already carries one.
func inSection(section string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Section == "" {
		de.Section = section
	}
	return err
}

func indexError(section string, off int, what string, idx uint64, size int) error {
	return &DecodeError{
		Section: section,
		Offset:  off,
		Err:     ErrIndexOutOfRange,
		Detail:  fmt.Sprintf("%s index %d, pool has %d entries", what, idx, size),
	}
}
