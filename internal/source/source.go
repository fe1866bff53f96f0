// Package source finds DEX containers on disk. An APK is a zip file whose
// classes*.dex entries are containers; any other file starting with the
// DEX magic is a container on its own.
package source

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"dexscope/internal/dex"
)

// Source identifies one container without holding its bytes.
type Source struct {
	Group string // APK base name or directory the file was found in
	Name  string // container base name without the .dex extension
	Path  string // file on disk; the APK for zip entries
	Entry string // zip entry name, empty for plain files
	Size  int64
}

func (s Source) String() string {
	if s.Entry != "" {
		return s.Path + "!" + s.Entry
	}
	return s.Path
}

// Collect returns the containers under root in a stable order. root may be
// a .dex file, an APK, or a directory. A directory is searched together with
// its immediate subdirectories (one folder per unpacked APK); recursive
// descends all the way.
func Collect(root string, recursive bool) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !info.IsDir() {
		return collectFile(root, filepath.Base(filepath.Dir(root)), info)
	}

	root = filepath.Clean(root)
	var out []Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != root && filepath.Dir(path) != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		group, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		if group == "." {
			group = filepath.Base(root)
		}
		found, err := collectFile(path, group, info)
		if err != nil {
			return err
		}
		out = append(out, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

func collectFile(path, group string, info fs.FileInfo) ([]Source, error) {
	magic, err := readMagic(path)
	if err != nil {
		return nil, err
	}
	switch {
	case dex.IsDex(magic):
		return []Source{{
			Group: group,
			Name:  strings.TrimSuffix(filepath.Base(path), ".dex"),
			Path:  path,
			Size:  info.Size(),
		}}, nil
	case isZip(magic) && strings.EqualFold(filepath.Ext(path), ".apk"):
		return collectAPK(path)
	}
	return nil, nil
}

func readMagic(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 4)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func isZip(b []byte) bool {
	return len(b) >= 4 && string(b[:4]) == "PK\x03\x04"
}

// collectAPK lists the top-level *.dex entries of an APK.
func collectAPK(path string) ([]Source, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open apk %s: %w", path, err)
	}
	defer zr.Close()

	group := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var out []Source
	for _, f := range zr.File {
		if strings.Contains(f.Name, "/") || !strings.HasSuffix(f.Name, ".dex") {
			continue
		}
		out = append(out, Source{
			Group: group,
			Name:  strings.TrimSuffix(f.Name, ".dex"),
			Path:  path,
			Entry: f.Name,
			Size:  int64(f.UncompressedSize64),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return dexLess(out[i].Name, out[j].Name) })
	return out, nil
}

// dexLess orders classes.dex, classes2.dex ... classes10.dex numerically;
// other names sort after them by name.
func dexLess(a, b string) bool {
	na, oka := dexNumber(a)
	nb, okb := dexNumber(b)
	switch {
	case oka && okb:
		return na < nb
	case oka != okb:
		return oka
	}
	return a < b
}

func dexNumber(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "classes")
	if !ok {
		return 0, false
	}
	if rest == "" {
		return 1, true
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}
