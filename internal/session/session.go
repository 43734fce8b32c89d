// Package session implements the Command Dispatcher / State Machine: the
// top-level IDLE/GETCMD/PROCESS state machine described in spec.md §4.5,
// wired to the Escape Codec, Argument Collector, File Handle Table, and
// Directory Enumerator to bridge the wire protocol to host filesystem
// operations.
package session

import (
	"io"
	"log/slog"

	"github.com/dg1yfe/openrs/internal/args"
	"github.com/dg1yfe/openrs/internal/codec"
	"github.com/dg1yfe/openrs/internal/dirscan"
	"github.com/dg1yfe/openrs/internal/handles"
	"github.com/dg1yfe/openrs/internal/hostfs"
)

// firstSubcollector names the subcollector each opcode is armed with when
// its GETCMD acknowledgement is sent, per spec.md §6's argument schedule.
var firstSubcollector = map[Opcode]args.Kind{
	FOPEN:     args.String1,
	FREAD:     args.DW,
	FWRITE:    args.FD,
	FCLOSE:    args.FD,
	FGETC:     args.FD,
	FPUTC:     args.FD,
	FGETS:     args.FD,
	FPUTS:     args.FD,
	FINDFIRST: args.String1,
	FINDNEXT:  args.Idle, // no arguments; executes immediately
	REMOVE:    args.String1,
	RENAME:    args.String1,
	FTELL:     args.FD,
	FSEEK:     args.FD,
	UNGETC:    args.W,
}

// Session holds all process-global state for one serial line / one peer,
// per the single-session design note in spec.md §9: no process-wide
// statics, just fields of a Session value passed through the I/O pump.
type Session struct {
	fs      hostfs.FS
	wd      string
	handles *handles.Table
	scan    *dirscan.Scanner
	coll    *args.Collector
	dec     codec.Decoder
	enc     *codec.Encoder

	device  io.Writer // raw (unescaped) writes go straight here
	console io.Writer // IDLE-state DATA tokens are echoed here

	log *slog.Logger

	state State
	cmd   Opcode

	activeFD uint32 // handle bound to the command currently executing

	listing     bool // true once FINDFIRST entered directory-listing mode
	writeBodyOn bool // true while collecting FWRITE's raw data body
}

// New returns a Session ready to process bytes from DEVICE, echoing idle
// passthrough bytes to console and writing replies to device.
func New(fs hostfs.FS, device, console io.Writer, log *slog.Logger) (*Session, error) {
	wd, err := fs.Getwd()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		fs:      fs,
		wd:      wd,
		handles: handles.New(),
		scan:    dirscan.New(fs),
		coll:    args.New(),
		enc:     codec.NewEncoder(device),
		device:  device,
		console: console,
		log:     log,
		state:   StateIdle,
	}, nil
}

// Close releases every open file handle and any active directory scan,
// for use during shutdown.
func (s *Session) Close() {
	s.handles.CloseAll()
	s.scan.Reset()
}

// HandleByte feeds one raw byte received from DEVICE through the codec,
// argument collector, and dispatcher, in that order.
func (s *Session) HandleByte(b byte) error {
	tok := s.dec.Decode(b)
	if tok.Kind == codec.NeedMore {
		return nil
	}

	// In GETCMD the byte right after START is the opcode itself, even when
	// it is one of the framing octets: FWRITE (0x02) and FCLOSE (0x03)
	// arrive unescaped, so they are taken as data here rather than as a
	// second START or an END.
	if s.state == StateGetCmd {
		switch tok.Kind {
		case codec.StartTok:
			tok = codec.Token{Kind: codec.Data, Byte: codec.Start}
		case codec.EndTok:
			tok = codec.Token{Kind: codec.Data, Byte: codec.End}
		}
	}

	// Abort rule (§4.5, §5): an unescaped START arriving while a command
	// is in flight cancels it and returns to IDLE; the peer must resend.
	if tok.Kind == codec.StartTok && s.state != StateIdle {
		s.log.Warn("aborting in-flight command on stray START", "cmd", s.cmd, "state", s.state)
		s.abort()
		return nil
	}

	if kind := s.coll.Kind(); kind != args.Idle {
		done := s.coll.Feed(tok)
		if !done {
			return nil
		}
		if kind == args.FD {
			s.activeFD = s.coll.FDArg()
		}
		return s.continueCommand()
	}

	return s.dispatch(tok)
}

func (s *Session) abort() {
	s.state = StateIdle
	s.coll.ResetArgs()
	s.writeBodyOn = false
}

// dispatch routes a token that arrived with no subcollector armed: this
// is IDLE's passthrough/transition logic, GETCMD's opcode recognition,
// and PROCESS's raw per-byte handling for commands (FWRITE) whose body
// isn't shaped like a subcollector.
func (s *Session) dispatch(tok codec.Token) error {
	switch s.state {
	case StateIdle:
		return s.dispatchIdle(tok)
	case StateGetCmd:
		return s.dispatchGetCmd(tok)
	case StateProcess:
		return s.dispatchProcess(tok)
	default:
		return nil
	}
}

func (s *Session) dispatchIdle(tok codec.Token) error {
	switch tok.Kind {
	case codec.Data:
		_, err := s.console.Write([]byte{tok.Byte})
		return err
	case codec.StartTok:
		s.state = StateGetCmd
		s.coll.ResetArgs()
		return nil
	case codec.EndTok:
		return nil
	default:
		return nil
	}
}

func (s *Session) dispatchGetCmd(tok codec.Token) error {
	if tok.Kind != codec.Data {
		// HandleByte has already turned a raw START or END into its
		// opcode byte, so only a data token is expected here; anything
		// else drops back to idle silently, same as an unknown opcode.
		s.state = StateIdle
		return nil
	}
	op := Opcode(tok.Byte)
	if !op.valid() {
		s.log.Debug("ignoring unknown opcode", "opcode", tok.Byte)
		s.state = StateIdle
		return nil
	}

	if err := s.enc.PutRaw(codec.End); err != nil { // GETCMD handshake ack
		return err
	}
	s.coll.ResetArgs()
	s.activeFD = 0
	s.writeBodyOn = false
	s.cmd = op
	s.state = StateProcess

	kind := firstSubcollector[op]
	if kind == args.Idle {
		// Zero-argument command (FINDNEXT): the original source falls
		// through into PROCESS within the same input byte: no subsequent
		// byte carries an argument to wait for.
		return s.continueCommand()
	}
	s.coll.Arm(kind)
	return nil
}

func (s *Session) dispatchProcess(tok codec.Token) error {
	if s.cmd == FWRITE && s.writeBodyOn {
		return s.feedFWriteBody(tok)
	}
	return nil
}

// continueCommand is invoked once a subcollector completes (or, for
// zero-arity commands, immediately on GETCMD). It either arms the next
// subcollector or executes the command, per spec.md §4.5.
func (s *Session) continueCommand() error {
	switch s.cmd {
	case FOPEN:
		return s.continueFOpen()
	case FREAD:
		return s.continueFRead()
	case FWRITE:
		return s.continueFWrite()
	case FCLOSE:
		return s.execFClose()
	case FGETC:
		return s.execFGetc()
	case FPUTC:
		return s.continueFPutc()
	case FGETS:
		return s.continueFGets()
	case FPUTS:
		return s.continueFPuts()
	case FINDFIRST:
		return s.continueFindFirst()
	case FINDNEXT:
		return s.execFindNext()
	case REMOVE:
		return s.execRemove()
	case RENAME:
		return s.continueRename()
	case FTELL:
		return s.execFTell()
	case FSEEK:
		return s.continueFSeek()
	case UNGETC:
		return s.continueUngetc()
	default:
		s.state = StateIdle
		return nil
	}
}
