// Command openrs bridges a local console to a TNC-class serial peer
// speaking the remote-filesystem protocol implemented by internal/session.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dg1yfe/openrs/internal/console"
	"github.com/dg1yfe/openrs/internal/hostfs"
	"github.com/dg1yfe/openrs/internal/pump"
	"github.com/dg1yfe/openrs/internal/serial"
	"github.com/dg1yfe/openrs/internal/session"
)

// defaultBitrate is used when the bitrate argument is absent or not a
// number, matching the original program's fallback.
const defaultBitrate = 19200

type cmdRoot struct {
	verbose bool
}

func (c *cmdRoot) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "openrs <serial port> [<bitrate> [<tnc command>...]]"
	cmd.Short = "Bridge a console to a TNC's remote-filesystem protocol over a serial line"
	cmd.Args = cobra.MinimumNArgs(1)
	cmd.RunE = c.Run
	cmd.Flags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

// parseArgs splits the positional arguments into a bitrate (defaulting to
// defaultBitrate when the second argument is absent or not a number) and
// the remaining tokens, which form the startup TNC command.
func parseArgs(args []string) (bitrate int, tncTokens []string) {
	bitrate = defaultBitrate
	if len(args) < 2 {
		return bitrate, nil
	}
	if v, err := strconv.Atoi(args[1]); err == nil {
		return v, args[2:]
	}
	return bitrate, args[1:]
}

func (c *cmdRoot) Run(_ *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	portName := args[0]
	bitrate, tncTokens := parseArgs(args)

	dev, err := serial.OpenDevice(portName, bitrate)
	if err != nil {
		return fmt.Errorf("openrs: %w", err)
	}
	defer dev.Close()

	con, err := console.Open()
	if err != nil {
		return fmt.Errorf("openrs: %w", err)
	}
	if err := con.MakeRaw(); err != nil {
		return fmt.Errorf("openrs: %w", err)
	}
	defer con.Restore()

	sess, err := session.New(hostfs.New(), dev, con, log)
	if err != nil {
		return fmt.Errorf("openrs: %w", err)
	}
	defer sess.Close()

	if len(tncTokens) > 0 {
		cmd := strings.Join(tncTokens, " ")
		if _, err := dev.Write([]byte(cmd)); err != nil {
			log.Warn("failed writing startup tnc command", "err", err)
		}
	}

	return pump.New(con, dev, sess, log).Run()
}

func main() {
	if err := (&cmdRoot{}).Command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
