// Package codec implements the DLE-style byte-stream framing used on the
// wire between the host and the TNC: a stateful decoder turns raw octets
// into typed tokens, and an encoder turns typed values back into an
// escaped octet stream.
package codec

import "io"

const (
	DLE   byte = 0x10
	Start byte = 0x02
	End   byte = 0x03
)

// Kind identifies the variant of a decoded Token.
type Kind int

const (
	// Data carries a literal byte, either ordinary data or one of the
	// three reserved octets that arrived escaped.
	Data Kind = iota
	// StartTok marks the beginning of a command frame (unescaped 0x02).
	StartTok
	// EndTok marks the end of a value or frame (unescaped 0x03).
	EndTok
	// NeedMore means the decoder consumed an escape prefix and has not
	// yet produced a byte; the caller should read another input byte.
	NeedMore
)

// Token is a single value yielded by the Decoder.
type Token struct {
	Kind Kind
	Byte byte // valid only when Kind == Data
}

// Decoder turns a raw input octet stream into a sequence of Tokens. It is
// stateful: escaping spans two input bytes, so the Decoder must see every
// byte of the stream in order.
type Decoder struct {
	escOn bool
}

// Decode feeds one raw input octet and returns the Token it produces.
func (d *Decoder) Decode(b byte) Token {
	if d.escOn {
		d.escOn = false
		return Token{Kind: Data, Byte: b}
	}
	switch b {
	case DLE:
		d.escOn = true
		return Token{Kind: NeedMore}
	case Start:
		return Token{Kind: StartTok}
	case End:
		return Token{Kind: EndTok}
	default:
		return Token{Kind: Data, Byte: b}
	}
}

// Reset clears escape state, as if no bytes had been decoded yet.
func (d *Decoder) Reset() {
	d.escOn = false
}

// Encoder writes escaped bytes to an underlying writer. Unlike Decoder it
// carries no state across calls: every reserved octet is escaped
// independently of what came before.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w for encoded output.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) writeRaw(b byte) error {
	_, err := e.w.Write([]byte{b})
	return err
}

// PutByte emits b, escaping it with a DLE prefix if it is one of the
// reserved octets.
func (e *Encoder) PutByte(b byte) error {
	switch b {
	case Start, End, DLE:
		if err := e.writeRaw(DLE); err != nil {
			return err
		}
	}
	return e.writeRaw(b)
}

// PutRaw emits b unescaped, bypassing DLE-escaping entirely. Used for the
// protocol's own framing bytes: the GETCMD acknowledgement and the raw
// END/START markers that are never data.
func (e *Encoder) PutRaw(b byte) error {
	return e.writeRaw(b)
}

// PutU32BE emits a 32-bit value, MSB first, each byte escaped.
func (e *Encoder) PutU32BE(v uint32) error {
	for i := 3; i >= 0; i-- {
		if err := e.PutByte(byte(v >> (8 * uint(i)))); err != nil {
			return err
		}
	}
	return nil
}

// PutU16BE emits a 16-bit value, MSB first, each byte escaped.
func (e *Encoder) PutU16BE(v uint16) error {
	for i := 1; i >= 0; i-- {
		if err := e.PutByte(byte(v >> (8 * uint(i)))); err != nil {
			return err
		}
	}
	return nil
}

// PutBytes emits each byte of buf, escaped, with no terminator.
func (e *Encoder) PutBytes(buf []byte) error {
	for _, b := range buf {
		if err := e.PutByte(b); err != nil {
			return err
		}
	}
	return nil
}

// PutCString emits s byte-by-byte, escaped, terminated by a literal
// (unescaped) END octet.
func (e *Encoder) PutCString(s string) error {
	for i := 0; i < len(s); i++ {
		if err := e.PutByte(s[i]); err != nil {
			return err
		}
	}
	return e.writeRaw(End)
}
