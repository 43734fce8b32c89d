// Package dirscan holds the single in-flight directory enumeration used by
// FINDFIRST/FINDNEXT: at most one scan is ever active, and a stray
// FINDFIRST implicitly closes whatever scan came before it.
package dirscan

import "github.com/dg1yfe/openrs/internal/hostfs"

// Entry is one directory listing result, already stat-enriched by the
// underlying hostfs.DirReader (zeroed except Name on stat failure, per the
// host FS contract).
type Entry = hostfs.Info

// Scanner tracks at most one active directory enumeration.
type Scanner struct {
	fs     hostfs.FS
	reader hostfs.DirReader
}

// New returns a scanner with no active enumeration.
func New(fs hostfs.FS) *Scanner {
	return &Scanner{fs: fs}
}

// Active reports whether a scan is currently open.
func (s *Scanner) Active() bool {
	return s.reader != nil
}

// Begin closes any existing scan and opens path for enumeration. It
// reports ok=true only if at least one entry is immediately available,
// matching FINDFIRST's "empty directory is a failure reply" rule.
func (s *Scanner) Begin(path string) (first Entry, ok bool, err error) {
	s.Reset()
	reader, err := s.fs.OpenDir(path)
	if err != nil {
		return Entry{}, false, err
	}
	entry, found, err := reader.Next()
	if err != nil {
		_ = reader.Close()
		return Entry{}, false, err
	}
	if !found {
		_ = reader.Close()
		return Entry{}, false, nil
	}
	s.reader = reader
	return entry, true, nil
}

// Next returns the next entry in the active scan. ok is false once the
// listing is exhausted, at which point the scan is closed automatically.
func (s *Scanner) Next() (entry Entry, ok bool, err error) {
	if s.reader == nil {
		return Entry{}, false, nil
	}
	entry, found, err := s.reader.Next()
	if err != nil || !found {
		s.Reset()
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Reset closes any active scan.
func (s *Scanner) Reset() {
	if s.reader != nil {
		_ = s.reader.Close()
		s.reader = nil
	}
}
