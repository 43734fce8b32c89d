package session

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/dg1yfe/openrs/internal/codec"
	"github.com/dg1yfe/openrs/internal/hostfs"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
}

func newTestSession(t *testing.T, fs hostfs.FS) (*Session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var device, console bytes.Buffer
	s, err := New(fs, &device, &console, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, &device, &console
}

func feed(t *testing.T, s *Session, raw []byte) {
	t.Helper()
	for _, b := range raw {
		if err := s.HandleByte(b); err != nil {
			t.Fatalf("HandleByte(%#x): %v", b, err)
		}
	}
}

func TestIdlePassthroughToConsole(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	s, _, console := newTestSession(t, fs)
	feed(t, s, []byte("hello"))
	if console.String() != "hello" {
		t.Fatalf("console = %q, want %q", console.String(), "hello")
	}
}

func TestOpenReadClose(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	fs.Seed("test.bin", []byte("abcdefgh"))
	s, device, _ := newTestSession(t, fs)

	// FOPEN "A:\TEST.BIN" "r" -> normalizes to "test.bin".
	feed(t, s, []byte{codec.Start, byte(FOPEN)})
	if device.Bytes()[len(device.Bytes())-1] != codec.End {
		t.Fatalf("missing GETCMD ack after opcode byte")
	}
	device.Reset()
	feed(t, s, []byte("A:\\TEST.BIN"))
	feed(t, s, []byte{codec.End}) // terminate STRING1
	feed(t, s, []byte("r"))
	feed(t, s, []byte{codec.End}) // terminate STRING2, executes FOPEN

	wantHandle := []byte{0x00, 0x00, 0x00, 0x01}
	if !bytes.Equal(device.Bytes(), wantHandle) {
		t.Fatalf("FOPEN reply = %x, want %x", device.Bytes(), wantHandle)
	}

	// FREAD 4, fd=1
	device.Reset()
	feed(t, s, []byte{codec.Start, byte(FREAD)})
	device.Reset()
	feed(t, s, []byte{0x00, 0x00, 0x00, 0x04}) // count
	feed(t, s, []byte{0x00, 0x00, 0x00, 0x01}) // fd
	want := []byte("abcd")
	if !bytes.Equal(device.Bytes(), want) {
		t.Fatalf("FREAD reply = %q, want %q", device.Bytes(), want)
	}

	// FCLOSE 1
	device.Reset()
	feed(t, s, []byte{codec.Start, byte(FCLOSE)})
	device.Reset()
	feed(t, s, []byte{0x00, 0x00, 0x00, 0x01})
	if !bytes.Equal(device.Bytes(), []byte{0x00, 0x00}) {
		t.Fatalf("FCLOSE reply = %x, want 00 00", device.Bytes())
	}
}

func TestFWriteWithEscapedData(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	s, device, _ := newTestSession(t, fs)

	feed(t, s, []byte{codec.Start, byte(FOPEN)})
	device.Reset()
	feed(t, s, []byte("out.bin"))
	feed(t, s, []byte{codec.End})
	feed(t, s, []byte("w"))
	feed(t, s, []byte{codec.End})
	device.Reset()

	feed(t, s, []byte{codec.Start, byte(FWRITE)})
	device.Reset()
	feed(t, s, []byte{0x00, 0x00, 0x00, 0x01}) // fd=1

	// 0xAA is plain data, then the data bytes 02 and 03 each escaped
	// behind a DLE, then END.
	feed(t, s, []byte{0xAA, codec.DLE, codec.Start, codec.DLE, codec.End, codec.End})
	if device.Len() != 0 {
		t.Fatalf("FWRITE produced a reply: %x, want none", device.Bytes())
	}
	if f := s.handles.Get(1); f != nil {
		f.Seek(0, 0)
		got := make([]byte, 8)
		n, _ := f.Read(got)
		want := []byte{0xAA, codec.Start, codec.End}
		if string(got[:n]) != string(want) {
			t.Fatalf("file contents = %x, want %x", got[:n], want)
		}
	}
}

func TestOpenForWriteRefusedWhenExists(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	fs.Seed("foo.txt", []byte("x"))
	s, device, _ := newTestSession(t, fs)

	feed(t, s, []byte{codec.Start, byte(FOPEN)})
	device.Reset()
	feed(t, s, []byte("A:\\FOO.TXT")) // normalizes to "foo.txt"
	feed(t, s, []byte{codec.End})
	feed(t, s, []byte("w"))
	feed(t, s, []byte{codec.End})

	want := []byte{0, 0, 0, 0}
	if !bytes.Equal(device.Bytes(), want) {
		t.Fatalf("FOPEN(w) on existing file = %x, want refusal %x", device.Bytes(), want)
	}
}

func TestStrayStartAborts(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	s, device, console := newTestSession(t, fs)

	feed(t, s, []byte{codec.Start, byte(FOPEN)})
	device.Reset()
	feed(t, s, []byte("foo")) // partial filename, no END yet

	// A second raw START aborts the in-flight FOPEN.
	feed(t, s, []byte{codec.Start})
	if s.state != StateIdle {
		t.Fatalf("state after stray START = %v, want StateIdle", s.state)
	}

	// The next byte (0x00) is now just ordinary console-bound data, not
	// a reinterpreted opcode, because the abort consumed the START.
	feed(t, s, []byte{0x00})
	if console.Len() != 1 || console.Bytes()[0] != 0x00 {
		t.Fatalf("console after abort = %x, want a single 0x00 byte", console.Bytes())
	}
}

func TestFGetsSizeClamp(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	fs.Seed("f.txt", []byte("line one\nline two\n"))
	s, device, _ := newTestSession(t, fs)

	feed(t, s, []byte{codec.Start, byte(FOPEN)})
	device.Reset()
	feed(t, s, []byte("A:\\F.TXT")) // normalizes to "f.txt"
	feed(t, s, []byte{codec.End})
	feed(t, s, []byte("r"))
	feed(t, s, []byte{codec.End})
	device.Reset()

	feed(t, s, []byte{codec.Start, byte(FGETS)})
	device.Reset()
	feed(t, s, []byte{0x00, 0x00, 0x00, 0x01}) // fd=1
	feed(t, s, []byte{codec.DLE, 0x10, 0x01}) // maxlen = 0x1001 = 4097 > 4096; its 0x10 byte is DLE-escaped

	if !bytes.Equal(device.Bytes(), []byte{0x00, 0x00}) {
		t.Fatalf("FGETS with maxlen>4096 = %x, want W=0 and no payload", device.Bytes())
	}
}

// decodeTokens runs raw back through a fresh Decoder, the inverse of what
// Encoder.PutByte/PutBytes produced, so assertions don't have to guess
// whether a given content byte happened to need DLE-escaping.
func decodeTokens(raw []byte) []codec.Token {
	var dec codec.Decoder
	var toks []codec.Token
	for _, b := range raw {
		tok := dec.Decode(b)
		if tok.Kind == codec.NeedMore {
			continue
		}
		toks = append(toks, tok)
	}
	return toks
}

func dataBytes(toks []codec.Token) []byte {
	out := make([]byte, 0, len(toks))
	for _, tok := range toks {
		if tok.Kind == codec.Data {
			out = append(out, tok.Byte)
		}
	}
	return out
}

func TestFindFirstFindNextAtMostOneScan(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	fs.Seed("a.txt", []byte("a"))
	fs.Seed("b.txt", []byte("bb"))
	s, device, _ := newTestSession(t, fs)

	feed(t, s, []byte{codec.Start, byte(FINDFIRST)})
	device.Reset()
	feed(t, s, []byte("*.*"))
	feed(t, s, []byte{codec.End})
	feed(t, s, []byte{0x00, 0x00}) // attr=0

	data := dataBytes(decodeTokens(device.Bytes()))
	if len(data) != 2+fileInfoSize {
		t.Fatalf("FINDFIRST reply decoded length = %d, want %d", len(data), 2+fileInfoSize)
	}
	if data[0] != 0 || data[1] != 0 {
		t.Fatalf("FINDFIRST status = %x, want 00 00", data[:2])
	}

	// FINDNEXT has zero arguments, so its GETCMD ack (the codec.End
	// handshake byte) and its actual reply land in the same feed call.
	device.Reset()
	feed(t, s, []byte{codec.Start, byte(FINDNEXT)})
	toks := decodeTokens(device.Bytes())
	if len(toks) == 0 || toks[0].Kind != codec.EndTok {
		t.Fatalf("FINDNEXT reply missing leading ack token: %v", toks)
	}
	if data := dataBytes(toks[1:]); len(data) != 2+fileInfoSize {
		t.Fatalf("FINDNEXT reply decoded length = %d, want %d", len(data), 2+fileInfoSize)
	}

	device.Reset()
	feed(t, s, []byte{codec.Start, byte(FINDNEXT)})
	toks = decodeTokens(device.Bytes())
	if len(toks) != 3 || toks[0].Kind != codec.EndTok {
		t.Fatalf("FINDNEXT at end tokens = %v, want [ack, 0xFF, 0xFF]", toks)
	}
	if data := dataBytes(toks[1:]); !bytes.Equal(data, []byte{0xFF, 0xFF}) {
		t.Fatalf("FINDNEXT at end = %x, want ff ff", data)
	}
}
