// Package hostfs adapts the host's real filesystem to the narrow surface
// the protocol dispatcher needs: open-by-mode-string, stat, and
// incremental directory enumeration. It exists so internal/session can be
// exercised against an in-memory fake instead of the real disk, the same
// seam the teacher draws around raw syscalls in its own Port type.
package hostfs

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// File is an open host file: the same surface internal/handles stores.
type File interface {
	io.ReadWriteCloser
	io.Seeker
}

// Info describes a file or directory entry, independent of the wire
// FileInfo record that internal/session packs it into.
type Info struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// DirReader enumerates a directory's entries one at a time.
type DirReader interface {
	// Next returns the next entry. ok is false once the listing is
	// exhausted; the reader should then be Closed.
	Next() (entry Info, ok bool, err error)
	Close() error
}

// FS is the host filesystem surface the dispatcher consumes.
type FS interface {
	// Open opens path using a C fopen-style mode string ("r", "w", "r+",
	// "rb", ...). Binary/text distinction is irrelevant on the hosts
	// this bridge targets, so the 'b' modifier is accepted and ignored.
	Open(path string, mode string) (File, error)
	Stat(path string) (Info, error)
	OpenDir(path string) (DirReader, error)
	Getwd() (string, error)
	Remove(path string) error
	Rename(oldpath, newpath string) error
}

// OS is the production FS backed by the real filesystem.
type OS struct{}

// New returns the production host filesystem adapter.
func New() OS { return OS{} }

func (OS) Getwd() (string, error) { return os.Getwd() }

func (OS) Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, nil
}

func (OS) Remove(path string) error { return os.Remove(path) }

func (OS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

// Open translates an fopen-style mode string into os flags and opens the
// file. It intentionally does not create parent directories or otherwise
// go beyond what fopen itself would do.
func (OS) Open(path string, mode string) (File, error) {
	flag, perm, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(path, flag, perm)
}

func parseMode(mode string) (int, os.FileMode, error) {
	base := strings.ToLower(strings.ReplaceAll(mode, "b", ""))
	switch base {
	case "r":
		return os.O_RDONLY, 0, nil
	case "r+":
		return os.O_RDWR, 0, nil
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, 0644, nil
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, 0644, nil
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, 0644, nil
	case "a+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, 0644, nil
	default:
		return 0, 0, fmt.Errorf("hostfs: unsupported open mode %q", mode)
	}
}

// osDirReader lists a directory's entries in sorted order, one at a time,
// matching readdir()'s "give me the next dirent" contract rather than
// returning the whole slice at once.
type osDirReader struct {
	entries []os.DirEntry
	pos     int
	dir     string
}

func (OS) OpenDir(path string) (DirReader, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return &osDirReader{entries: entries, dir: path}, nil
}

func (r *osDirReader) Next() (Info, bool, error) {
	if r.pos >= len(r.entries) {
		return Info{}, false, nil
	}
	ent := r.entries[r.pos]
	r.pos++
	fi, err := ent.Info()
	if err != nil {
		return Info{Name: ent.Name()}, true, nil
	}
	return Info{Name: ent.Name(), Size: fi.Size(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, true, nil
}

func (r *osDirReader) Close() error { return nil }
