// Package serial adapts github.com/daedaluz/goserial's Port into the
// DEVICE endpoint the bridge speaks the wire protocol over: an opened,
// raw-mode tty at a given bitrate, satisfying the plain io.ReadWriteCloser
// the Command Dispatcher and I/O Pump consume. Serial-port discovery and
// line-discipline setup are out of this repository's scope (spec.md §1),
// so the termios/ioctl plumbing itself stays an external dependency rather
// than vendored source.
package serial

import (
	"fmt"

	goserial "github.com/daedaluz/goserial"
)

// standardSpeeds maps the bitrates the CLI accepts by name to their CFlag
// constant, mirroring termios(3)'s fixed speed table. A bitrate outside this
// table falls back to Termios2's custom-speed path (SetCustomSpeed), which
// goserial's Termios2/BOTHER plumbing already supports.
var standardSpeeds = map[int]goserial.CFlag{
	50:      goserial.B50,
	75:      goserial.B75,
	110:     goserial.B110,
	134:     goserial.B134,
	150:     goserial.B150,
	200:     goserial.B200,
	300:     goserial.B300,
	600:     goserial.B600,
	1200:    goserial.B1200,
	1800:    goserial.B1800,
	2400:    goserial.B2400,
	4800:    goserial.B4800,
	9600:    goserial.B9600,
	19200:   goserial.B19200,
	38400:   goserial.B38400,
	57600:   goserial.B57600,
	115200:  goserial.B115200,
	230400:  goserial.B230400,
	460800:  goserial.B460800,
	921600:  goserial.B921600,
	1000000: goserial.B1000000,
}

// Device is the opened DEVICE endpoint: a raw-mode serial line at a fixed
// bitrate, ready for the I/O Pump to multiplex against CONSOLE.
type Device struct {
	*goserial.Port
}

// OpenDevice opens name (e.g. "/dev/ttyUSB0") and configures it for the
// bridge: raw mode (no line discipline munging of the escape-coded wire
// bytes) and the given bitrate. Unlike the bare Port Open, this always
// leaves the port in the mode the protocol requires rather than whatever
// termios the line already had.
func OpenDevice(name string, bitrate int) (*Device, error) {
	p, err := goserial.Open(name, goserial.NewOptions())
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	d := &Device{Port: p}
	if err := d.configure(bitrate); err != nil {
		p.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) configure(bitrate int) error {
	attrs2, err := d.GetAttr2()
	if err != nil {
		return fmt.Errorf("serial: get termios2: %w", err)
	}
	attrs2.MakeRaw()
	if speed, ok := standardSpeeds[bitrate]; ok {
		attrs2.SetSpeed(speed)
	} else {
		attrs2.SetCustomSpeed(uint32(bitrate))
	}
	if err := d.SetAttr2(goserial.TCSANOW, attrs2); err != nil {
		return fmt.Errorf("serial: set termios2: %w", err)
	}
	return nil
}
