// Package console wraps the local terminal as the CONSOLE endpoint: stdin
// for input, stdout for output, with raw-mode toggling so the pump sees
// every keystroke unprocessed by the line discipline (no local echo, no
// line buffering, no signal generation on ^C — the bridge itself treats
// 0x03 as the interrupt per spec.md §5).
package console

import (
	"os"

	"golang.org/x/term"
)

// Console is the CONSOLE endpoint.
type Console struct {
	in    *os.File
	out   *os.File
	saved *term.State
}

// Open returns a Console backed by the process's stdin/stdout.
func Open() (*Console, error) {
	return &Console{in: os.Stdin, out: os.Stdout}, nil
}

// MakeRaw puts the console's input into raw mode, remembering the prior
// state so Restore can undo it.
func (c *Console) MakeRaw() error {
	state, err := term.MakeRaw(int(c.in.Fd()))
	if err != nil {
		return err
	}
	c.saved = state
	return nil
}

// Restore returns the console to whatever mode it was in before MakeRaw.
// It is a no-op if MakeRaw was never called or already undone.
func (c *Console) Restore() error {
	if c.saved == nil {
		return nil
	}
	err := term.Restore(int(c.in.Fd()), c.saved)
	c.saved = nil
	return err
}

func (c *Console) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *Console) Write(p []byte) (int, error) { return c.out.Write(p) }

// Fd reports the input file descriptor, for readiness polling by the pump.
func (c *Console) Fd() int { return int(c.in.Fd()) }

// Close restores terminal state. The underlying stdin/stdout fds are not
// closed: they belong to the process, not the Console.
func (c *Console) Close() error { return c.Restore() }
