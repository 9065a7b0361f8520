// If you are AI: This file implements the read-only client commands (streams, version).

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"streamx/internal/svc/api"
)

// streamsCommand returns the streams command.
func streamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "streams",
		Usage: "List live streams of a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "http://127.0.0.1:8081", Usage: "API base URL"},
			&cli.BoolFlag{Name: "json", Usage: "print the raw JSON snapshot"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "request timeout"},
		},
		Action: streamsAction,
	}
}

// streamsAction fetches /api/streams and prints it.
func streamsAction(c *cli.Context) error {
	client := &http.Client{Timeout: c.Duration("timeout")}
	resp, err := client.Get(strings.TrimRight(c.String("addr"), "/") + "/api/streams")
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cli.Exit(fmt.Sprintf("server answered %s", resp.Status), 1)
	}

	var streams api.StreamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&streams); err != nil {
		return cli.Exit(fmt.Sprintf("decode response: %v", err), 1)
	}
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(streams)
	}
	return printStreams(c.App.Writer, streams)
}

// printStreams renders a table of streams.
func printStreams(w io.Writer, streams api.StreamsResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM\tSESSION\tREMOTE\tUPTIME\tPLAYERS\tMESSAGES")
	for _, s := range streams.Streams {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.Key, s.SessionID, s.RemoteAddr,
			time.Since(s.StartedAt).Truncate(time.Second), s.Subscribers, s.Messages)
	}
	return tw.Flush()
}

// versionCommand returns the version command.
func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(c.App.Writer, "streamx %s (%s)\n", version, runtime.Version())
			return err
		},
	}
}
