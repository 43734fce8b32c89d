package session

import (
	"encoding/binary"

	"github.com/dg1yfe/openrs/internal/hostfs"
)

// fileInfoSize is the fixed wire size of a directory-entry record (§3).
const fileInfoSize = 24

// dirAttr is the bit in the wire attr field set for directories.
const dirAttr = 0x10

// encodeFileInfo packs info into the 24-byte wire record: attr, packed
// time, packed date, size, and a NUL-padded 14-byte name. The last
// iteration's field order (time before date) is taken as authoritative
// per spec.md §3/§9.
func encodeFileInfo(info hostfs.Info) [fileInfoSize]byte {
	var buf [fileInfoSize]byte

	var attr uint16
	if info.IsDir {
		attr = dirAttr
	}
	binary.BigEndian.PutUint16(buf[0:2], attr)

	var timeVal, dateVal uint16
	if !info.ModTime.IsZero() {
		t := info.ModTime
		timeVal = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
		year := t.Year() - 1980
		if year < 0 {
			year = 0
		}
		dateVal = uint16(year&0x7f)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	}
	binary.BigEndian.PutUint16(buf[2:4], timeVal)
	binary.BigEndian.PutUint16(buf[4:6], dateVal)

	binary.BigEndian.PutUint32(buf[6:10], uint32(info.Size))

	copy(buf[10:24], info.Name)
	return buf
}
