package source

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Buffer is the materialized content of one container.
type Buffer interface {
	Bytes() []byte
	Close() error
}

type memBuffer []byte

func (b memBuffer) Bytes() []byte { return b }
func (memBuffer) Close() error    { return nil }

// mappedBuffer is a read-only shared mapping of a plain file.
type mappedBuffer struct {
	data []byte
	f    *os.File
}

func (m *mappedBuffer) Bytes() []byte { return m.data }

// Close unmaps the memory and closes the underlying file.
func (m *mappedBuffer) Close() error {
	var err1, err2 error
	if m.data != nil {
		err1 = unix.Munmap(m.data)
		m.data = nil
	}
	if m.f != nil {
		err2 = m.f.Close()
		m.f = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// Open materializes the container. Plain files are memory mapped; zip
// entries are inflated into memory.
func (s Source) Open() (Buffer, error) {
	if s.Entry != "" {
		return s.openEntry()
	}
	return mapFile(s.Path)
}

func mapFile(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if fi.Size() == 0 {
		f.Close()
		return memBuffer{}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}
	return &mappedBuffer{data: data, f: f}, nil
}

func (s Source) openEntry() (Buffer, error) {
	zr, err := zip.OpenReader(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open apk: %w", err)
	}
	defer zr.Close()

	rc, err := zr.Open(s.Entry)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Entry, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("inflate %s: %w", s.Entry, err)
	}
	return memBuffer(b), nil
}
