// Package pump implements the I/O Pump (spec.md §4.6): a single-threaded,
// cooperative multiplexer over exactly two endpoints, CONSOLE and DEVICE,
// polled in fixed priority order and fed through the Command Dispatcher.
package pump

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dg1yfe/openrs/internal/session"
)

const (
	// interrupt is the CONSOLE octet that tears the pump down cleanly.
	interrupt = 0x03

	idleSleep  = 5 * time.Millisecond
	tickSleep  = 1 * time.Millisecond
	writeDelay = 1 * time.Millisecond
	writeTries = 100

	deviceBlock = 1024
)

// Endpoint is the minimal surface the pump needs from CONSOLE or DEVICE: a
// byte duplex plus the raw descriptor readiness polling selects on.
type Endpoint interface {
	io.ReadWriteCloser
	Fd() int
}

// Pump owns no state of its own beyond its two endpoints and the dispatcher
// they feed; the session carries every other piece of process state, per
// the single-Session design note in spec.md §9.
type Pump struct {
	console Endpoint
	device  Endpoint
	sess    *session.Session
	log     *slog.Logger
}

// New returns a Pump ready to Run.
func New(console, device Endpoint, sess *session.Session, log *slog.Logger) *Pump {
	if log == nil {
		log = slog.Default()
	}
	return &Pump{console: console, device: device, sess: sess, log: log}
}

// Run polls CONSOLE then DEVICE, in that fixed order, until the CONSOLE
// interrupt octet is seen or an unrecoverable I/O error occurs. It returns
// nil on the interrupt (orderly shutdown) and a non-nil error otherwise.
func (p *Pump) Run() error {
	buf := make([]byte, deviceBlock)
	for {
		ready, err := readable(p.console.Fd())
		if err != nil {
			return err
		}
		if ready {
			var b [1]byte
			n, err := p.console.Read(b[:])
			if err != nil {
				return err
			}
			if n == 0 {
				continue
			}
			if b[0] == interrupt {
				p.log.Info("console interrupt, shutting down")
				return nil
			}
			if err := p.writeDevice(b[0]); err != nil {
				return err
			}
			continue
		}

		ready, err = readable(p.device.Fd())
		if err != nil {
			return err
		}
		if ready {
			n, err := p.device.Read(buf)
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				if err := p.sess.HandleByte(buf[i]); err != nil {
					return err
				}
			}
			time.Sleep(tickSleep)
			continue
		}

		time.Sleep(idleSleep)
	}
}

// writeDevice retries a single byte write on EAGAIN, per spec.md §5's
// write-retry rule; any other error is fatal.
func (p *Pump) writeDevice(b byte) error {
	buf := [1]byte{b}
	for attempt := 0; attempt < writeTries; attempt++ {
		_, err := p.device.Write(buf[:])
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EAGAIN) {
			return err
		}
		time.Sleep(writeDelay)
	}
	p.log.Warn("dropping byte after exhausting EAGAIN retries", "byte", b)
	return nil
}

// readable reports whether fd has input pending, using a zero-timeout
// select so the pump never blocks waiting on either endpoint.
func readable(fd int) (bool, error) {
	var set unix.FdSet
	fdSet(&set, fd)
	tv := unix.NsecToTimeval(0)
	n, err := unix.Select(fd+1, &set, nil, nil, &tv)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}
