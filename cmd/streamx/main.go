// If you are AI: This is the main entrypoint for the streamx server and its client commands.
// It wires the urfave/cli application and maps errors to exit codes.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// version is set via ldflags at build time.
var version = "dev"

// main runs the CLI.
func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// newApp builds the CLI application.
func newApp() *cli.App {
	return &cli.App{
		Name:           "streamx",
		Usage:          "RTMP ingest server with HLS segmenting",
		Version:        version,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			serveCommand(),
			streamsCommand(),
			versionCommand(),
		},
	}
}

// exitErrHandler prints err and exits with its code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		if msg := exitCoder.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitCoder.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
