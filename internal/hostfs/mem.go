package hostfs

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// memFile is an in-memory File backed by a byte buffer shared with its
// owning Mem filesystem, so writes are visible to later Stat/Open calls.
type memFile struct {
	entry *memEntry
	pos   int64
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.entry.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.entry.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	end := f.pos + int64(len(p))
	if end > int64(len(f.entry.data)) {
		grown := make([]byte, end)
		copy(grown, f.entry.data)
		f.entry.data = grown
	}
	copy(f.entry.data[f.pos:end], p)
	f.pos = end
	f.entry.modTime = clock()
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = int64(len(f.entry.data))
	default:
		return 0, fmt.Errorf("hostfs: invalid whence %d", whence)
	}
	np := base + offset
	if np < 0 {
		return 0, fmt.Errorf("hostfs: negative seek position")
	}
	f.pos = np
	return np, nil
}

func (f *memFile) Close() error { return nil }

type memEntry struct {
	name    string
	data    []byte
	modTime time.Time
	isDir   bool
}

// clock is overridable by tests that need deterministic timestamps.
var clock = time.Now

// Mem is an in-memory FS used by package tests so they never touch the
// real disk; it implements the same narrow surface as OS.
type Mem struct {
	files map[string]*memEntry
	wd    string
}

// NewMem returns an empty in-memory filesystem rooted at wd.
func NewMem(wd string) *Mem {
	return &Mem{files: map[string]*memEntry{}, wd: wd}
}

// Seed creates a file with the given contents, as if written before the
// bridge started.
func (m *Mem) Seed(name string, data []byte) {
	m.files[name] = &memEntry{name: name, data: append([]byte(nil), data...), modTime: clock()}
}

func (m *Mem) Getwd() (string, error) { return m.wd, nil }

func (m *Mem) Stat(path string) (Info, error) {
	e, ok := m.files[path]
	if !ok {
		return Info{}, fmt.Errorf("hostfs: %s: no such file", path)
	}
	return Info{Name: e.name, Size: int64(len(e.data)), ModTime: e.modTime, IsDir: e.isDir}, nil
}

func (m *Mem) Remove(path string) error {
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("hostfs: %s: no such file", path)
	}
	delete(m.files, path)
	return nil
}

func (m *Mem) Rename(oldpath, newpath string) error {
	e, ok := m.files[oldpath]
	if !ok {
		return fmt.Errorf("hostfs: %s: no such file", oldpath)
	}
	e.name = newpath
	m.files[newpath] = e
	delete(m.files, oldpath)
	return nil
}

func (m *Mem) Open(path string, mode string) (File, error) {
	mode = strings.ToLower(strings.ReplaceAll(mode, "b", ""))
	e, ok := m.files[path]
	switch {
	case !ok && (mode == "r" || mode == "r+"):
		return nil, fmt.Errorf("hostfs: %s: no such file", path)
	case !ok:
		e = &memEntry{name: path, modTime: clock()}
		m.files[path] = e
	}
	f := &memFile{entry: e}
	switch mode {
	case "w", "w+":
		e.data = nil
	case "a", "a+":
		f.pos = int64(len(e.data))
	}
	return f, nil
}

func (m *Mem) OpenDir(path string) (DirReader, error) {
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]Info, 0, len(names))
	for _, name := range names {
		e := m.files[name]
		entries = append(entries, Info{Name: e.name, Size: int64(len(e.data)), ModTime: e.modTime, IsDir: e.isDir})
	}
	return &memDirReader{entries: entries}, nil
}

type memDirReader struct {
	entries []Info
	pos     int
}

func (r *memDirReader) Next() (Info, bool, error) {
	if r.pos >= len(r.entries) {
		return Info{}, false, nil
	}
	e := r.entries[r.pos]
	r.pos++
	return e, true, nil
}

func (r *memDirReader) Close() error { return nil }

var _ FS = (*Mem)(nil)
var _ FS = OS{}
