// If you are AI: This file tests publish-side edge cases: odd script data, segmenter shutdown and reassembly limits.

package rtmp

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"go.uber.org/zap"

	"streamx/internal/config"
	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/amf0"
	"streamx/internal/core/protocol/flv"
	rtmpprotocol "streamx/internal/core/protocol/rtmp"
	"streamx/internal/svc/egress"
)

func encodeValues(t *testing.T, values ...amf0.Value) []byte {
	t.Helper()
	body, err := amf0.EncodeValues(values...)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestUnusualScriptDataKeepsPublishing(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"bare @setDataFrame", encodeValues(t, amf0.String("@setDataFrame"))},
		{"@setDataFrame with number", encodeValues(t, amf0.String("@setDataFrame"), amf0.Number(1))},
		{"onMetaData without object", encodeValues(t, amf0.String("onMetaData"))},
		{"onMetaData with string", encodeValues(t, amf0.String("onMetaData"), amf0.String("x"))},
		{"truncated amf", []byte{0x02, 0x00, 0x10, 'o', 'n'}},
		{"empty", nil},
	}

	env := newTestEnv(t, nil)
	pub := env.dial(t)
	pub.connect("live")
	pub.publish("odd")
	pub.expectStatus(codePublishStart)

	for _, tt := range tests {
		pub.send(rtmpprotocol.ChunkStreamData, &rtmpprotocol.Message{
			Type: rtmpprotocol.MessageTypeDataAMF0, StreamID: 1, Body: tt.body,
		})
		pub.barrier()
		if env.registry.Lookup(bus.NewStreamKey("live", "odd")) == nil {
			t.Fatalf("%s: publish ended", tt.name)
		}
	}

	// A well-formed metadata message still lands after the odd ones.
	pub.send(rtmpprotocol.ChunkStreamData, &rtmpprotocol.Message{
		Type: rtmpprotocol.MessageTypeDataAMF0, StreamID: 1, Body: metadataBody(t),
	})
	pub.barrier()
	if got := env.registry.Lookup(bus.NewStreamKey("live", "odd")).Info().Metadata["width"]; got != float64(1280) {
		t.Fatalf("metadata width = %v", got)
	}
	if n := env.metrics.Snapshot().ProtocolErrors; n != 0 {
		t.Errorf("protocol errors = %d", n)
	}
	waitFor(t, "session uptime", func() bool {
		sessions := env.server.Sessions()
		return len(sessions) == 1 && sessions[0].UptimeMS > 0 && sessions[0].EgressPending == 0
	})
}

func TestSegmenterSeesEndOfStream(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	// Stand-in for ffmpeg that keeps working for a while after stdin closes.
	script := filepath.Join(dir, "fake-ffmpeg")
	body := "#!/bin/sh\nfor last; do :; done\nd=$(dirname \"$last\")\ncat > \"$d/input.flv\"\nsleep 0.2\ntouch \"$d/eof-seen\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default().Segmenter
	cfg.FFmpegPath = script
	cfg.StreamsDir = filepath.Join(dir, "streams")

	env := newTestEnvWithSink(t, egress.NewFFmpegSink(cfg, zap.NewNop()), nil)
	pub := env.dial(t)
	pub.connect("live")
	pub.publish("cam")
	pub.expectStatus(codePublishStart)
	pub.media(rtmpprotocol.MessageTypeVideo, 0, avcKeyframe...)
	pub.barrier()

	_ = pub.conn.Close()
	waitFor(t, "registry cleanup", func() bool { return env.registry.Count() == 0 })

	streamDir := filepath.Join(cfg.StreamsDir, "live", "cam")
	waitFor(t, "segmenter exit after end of stream", func() bool {
		_, err := os.Stat(filepath.Join(streamDir, "eof-seen"))
		return err == nil
	})
	data, err := os.ReadFile(filepath.Join(streamDir, "input.flv"))
	if err != nil {
		t.Fatal(err)
	}
	r := bytes.NewReader(data)
	if _, err := flv.ReadHeader(r); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if tag, err := flv.ReadTag(r); err != nil || tag.Type != flv.TagTypeVideo {
		t.Fatalf("first tag = %+v, %v", tag, err)
	}
}

func TestReassemblyLimitClosesConnection(t *testing.T) {
	env := newTestEnv(t, func(c *config.IngestConfig) { c.MaxMessageSize = 1024 })
	c := env.dial(t)
	c.connect("live")

	// Open many chunk streams, each holding the first chunk of a 1000-byte message.
	var raw bytes.Buffer
	for cs := uint32(10); cs < 30; cs++ {
		var msg bytes.Buffer
		if err := rtmpprotocol.WriteChunk(&msg, cs, rtmpprotocol.MessageTypeVideo, 0, 1, make([]byte, 1000), rtmpprotocol.DefaultChunkSize); err != nil {
			t.Fatal(err)
		}
		raw.Write(msg.Bytes()[:1+11+rtmpprotocol.DefaultChunkSize])
	}
	go func() { _, _ = c.conn.Write(raw.Bytes()) }()

	c.expectClosed()
	waitFor(t, "protocol error metric", func() bool { return env.metrics.Snapshot().ProtocolErrors == 1 })
}
