/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: driver.go
Description: Replay driver. Feeds saved inputs from files or standard input through a
harness entry point outside of the fuzzing engine, one file at a time.
*/

package driver

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// MaxInput is the largest number of bytes read from one source.
const MaxInput = 1 << 20

// StdinArg selects standard input instead of a file.
const StdinArg = "-"

// Entry is a fuzzing entry point.
type Entry func(data []byte) int

// Config wires the driver to its environment.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Fs     afero.Fs
	Entry  Entry
	Log    logrus.FieldLogger
}

func (c *Config) defaults() {
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
}

// Run replays every argument in order and returns the exit status, which is
// always 0. Sources that cannot be opened are skipped silently and empty
// sources are not passed to the entry point.
func Run(args []string, cfg Config) int {
	cfg.defaults()
	buf := make([]byte, MaxInput)

	for _, arg := range args {
		var src io.Reader
		var file afero.File
		if arg == StdinArg {
			src = cfg.Stdin
		} else {
			f, err := cfg.Fs.Open(arg)
			if err != nil {
				cfg.Log.WithError(err).WithField("input", arg).Debug("Skipping unreadable input")
				continue
			}
			file, src = f, f
		}

		n, err := io.ReadFull(src, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			cfg.Log.WithError(err).WithField("input", arg).Debug("Short read")
		}
		if n > 0 {
			fmt.Fprintf(cfg.Stdout, "Reading %d bytes from %s\n", n, arg)
			cfg.Entry(buf[:n])
			fmt.Fprintf(cfg.Stdout, "Execution successful.\n")
		}

		if file != nil {
			file.Close()
		}
	}
	return 0
}

// NewCommand builds the replay CLI for one harness: name [file...]. Flag
// parsing is disabled so every argument is treated as an input path.
func NewCommand(name string, entry Entry) *cobra.Command {
	return &cobra.Command{
		Use:                name + " [file...]",
		Short:              "Replay saved inputs through the " + name + " harness",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Run: func(cmd *cobra.Command, args []string) {
			Run(args, Config{
				Stdin:  cmd.InOrStdin(),
				Stdout: cmd.OutOrStdout(),
				Entry:  entry,
			})
		},
	}
}

// Main runs the replay CLI with the process arguments and exits with 0.
func Main(name string, entry Entry) {
	cmd := NewCommand(name, entry)
	cmd.SetArgs(os.Args[1:])
	cmd.Execute()
	os.Exit(0)
}
