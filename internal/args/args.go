// Package args implements the per-command Argument Collector: it gathers a
// command's typed arguments incrementally as codec Tokens arrive, one
// subcollector at a time, as armed by the dispatcher.
package args

import "github.com/dg1yfe/openrs/internal/codec"

// PathLimit caps the two string argument buffers, mirroring the host's
// PATH_MAX in the source implementation.
const PathLimit = 4096

// Kind names which subcollector is currently armed.
type Kind int

const (
	Idle Kind = iota
	String1
	String2
	DW
	W
	FD
)

// Collector accumulates one command's arguments across repeated Feed
// calls. The dispatcher arms it with a Kind, feeds it tokens until it
// reports done, reads the corresponding field, and arms the next Kind (or
// executes the command once iArg reaches the command's arity).
type Collector struct {
	kind  Kind
	count int // bytes consumed by the current numeric subcollector

	s1 []byte
	s2 []byte
	dw uint32
	w  uint16
	fd uint32

	iArg int
}

// New returns a collector with no subcollector armed.
func New() *Collector {
	return &Collector{}
}

// ResetArgs clears every argument buffer and the positional-argument
// counter. The dispatcher calls this on GETCMD, once per incoming
// command.
func (c *Collector) ResetArgs() {
	c.s1 = c.s1[:0]
	c.s2 = c.s2[:0]
	c.dw = 0
	c.w = 0
	c.fd = 0
	c.iArg = 0
	c.kind = Idle
	c.count = 0
}

// Arm selects the next subcollector to feed.
func (c *Collector) Arm(kind Kind) {
	c.kind = kind
	c.count = 0
}

// Kind reports the currently armed subcollector.
func (c *Collector) Kind() Kind { return c.kind }

// IArg reports how many arguments have completed so far.
func (c *Collector) IArg() int { return c.iArg }

// Feed consumes one token for the currently armed subcollector. done is
// true once the subcollector reaches its terminator, at which point the
// collector returns to Idle and IArg is incremented. Feed is a no-op
// (done=false) if no subcollector is armed.
func (c *Collector) Feed(tok codec.Token) (done bool) {
	switch c.kind {
	case String1:
		return c.feedString(&c.s1, tok)
	case String2:
		return c.feedString(&c.s2, tok)
	case DW:
		return c.feedDW(tok)
	case W:
		return c.feedW(tok)
	case FD:
		return c.feedFD(tok)
	default:
		return false
	}
}

func (c *Collector) feedString(buf *[]byte, tok codec.Token) bool {
	if tok.Kind == codec.EndTok {
		c.finish()
		return true
	}
	if tok.Kind == codec.Data && len(*buf) < PathLimit {
		*buf = append(*buf, tok.Byte)
	}
	return false
}

func (c *Collector) feedDW(tok codec.Token) bool {
	if tok.Kind != codec.Data {
		return false
	}
	c.dw = c.dw<<8 | uint32(tok.Byte)
	c.count++
	if c.count == 4 {
		c.finish()
		return true
	}
	return false
}

func (c *Collector) feedW(tok codec.Token) bool {
	if tok.Kind != codec.Data {
		return false
	}
	c.w = c.w<<8 | uint16(tok.Byte)
	c.count++
	if c.count == 2 {
		c.finish()
		return true
	}
	return false
}

func (c *Collector) feedFD(tok codec.Token) bool {
	if tok.Kind != codec.Data {
		return false
	}
	c.fd = c.fd<<8 | uint32(tok.Byte)
	c.count++
	if c.count == 4 {
		c.finish()
		return true
	}
	return false
}

func (c *Collector) finish() {
	c.kind = Idle
	c.count = 0
	c.iArg++
}

// String1 returns the first collected string argument.
func (c *Collector) String1() string { return string(c.s1) }

// String2 returns the second collected string argument.
func (c *Collector) String2() string { return string(c.s2) }

// DWArg returns the collected 32-bit argument.
func (c *Collector) DWArg() uint32 { return c.dw }

// WArg returns the collected 16-bit argument.
func (c *Collector) WArg() uint16 { return c.w }

// FDArg returns the collected handle argument.
func (c *Collector) FDArg() uint32 { return c.fd }
