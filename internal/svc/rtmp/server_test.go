// If you are AI: This file contains end-to-end tests of the RTMP service over in-memory pipes.

package rtmp

import (
	"context"
	"net"
	"testing"
	"time"

	"streamx/internal/config"
	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/amf0"
	rtmpprotocol "streamx/internal/core/protocol/rtmp"
)

var (
	avcHeader   = []byte{0x17, 0x00, 0x00, 0x00, 0x00, 0x01, 0x64}
	avcKeyframe = []byte{0x17, 0x01, 0x00, 0x00, 0x00, 0xAA}
	avcInter    = []byte{0x27, 0x01, 0x00, 0x00, 0x00, 0xBB}
	aacHeader   = []byte{0xAF, 0x00, 0x12, 0x10}
)

func metadataBody(t *testing.T) []byte {
	t.Helper()
	body, err := amf0.EncodeValues(
		amf0.String("@setDataFrame"),
		amf0.String("onMetaData"),
		amf0.ECMAArray{
			{Key: "width", Value: amf0.Number(1280)},
			{Key: "height", Value: amf0.Number(720)},
			{Key: "encoder", Value: amf0.String("obs")},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestPublishPlayAndUnpublish(t *testing.T) {
	env := newTestEnv(t, nil)
	key := bus.NewStreamKey("live", "test")

	pub := env.dial(t)
	pub.connect("live")
	pub.publish("test?token=abc")
	pub.expectStatus(codePublishStart)

	pub.send(rtmpprotocol.ChunkStreamData, &rtmpprotocol.Message{
		Type: rtmpprotocol.MessageTypeDataAMF0, StreamID: 1, Body: metadataBody(t),
	})
	pub.media(rtmpprotocol.MessageTypeVideo, 0, avcHeader...)
	pub.media(rtmpprotocol.MessageTypeAudio, 0, aacHeader...)
	pub.media(rtmpprotocol.MessageTypeVideo, 0, avcKeyframe...)
	pub.barrier()

	stream := env.registry.Lookup(key)
	if stream == nil {
		t.Fatal("stream not registered")
	}
	if got := stream.Info().Metadata["width"]; got != float64(1280) {
		t.Fatalf("metadata width = %v", got)
	}

	player := env.dial(t)
	player.connect("live")
	player.play("test")
	begin := player.next(rtmpprotocol.MessageTypeUserCtrl)
	if event, _, _ := rtmpprotocol.ParseUserControl(begin.Body); event != rtmpprotocol.ControlStreamBegin {
		t.Fatalf("first user control event = %d", event)
	}
	player.expectStatus(codePlayReset)
	player.expectStatus(codePlayStart)

	meta := player.next(rtmpprotocol.MessageTypeDataAMF0)
	values, err := amf0.DecodeAll(meta.Body)
	if err != nil || len(values) != 2 {
		t.Fatalf("metadata = %v, %v", values, err)
	}
	if name, _ := amf0.AsString(values[0]); name != "onMetaData" {
		t.Fatalf("metadata name = %q", name)
	}
	if got := player.next(rtmpprotocol.MessageTypeVideo); got.Body[1] != 0 {
		t.Fatalf("late joiner did not get the video sequence header first")
	}

	pub.media(rtmpprotocol.MessageTypeVideo, 40, avcInter...)
	live := player.next(rtmpprotocol.MessageTypeVideo)
	if live.Timestamp != 40 || live.Body[5] != 0xBB {
		t.Fatalf("relayed frame ts=%d body=%x", live.Timestamp, live.Body)
	}

	waitFor(t, "egress records", func() bool { return env.sink.Records() == 5 })

	_ = pub.conn.Close()
	eof := player.next(rtmpprotocol.MessageTypeUserCtrl)
	if event, _, _ := rtmpprotocol.ParseUserControl(eof.Body); event != rtmpprotocol.ControlStreamEOF {
		t.Fatalf("user control event = %d, want stream EOF", event)
	}
	player.expectStatus(codePlayUnpublish)
	player.expectClosed()

	waitFor(t, "registry cleanup", func() bool { return env.registry.Count() == 0 })
	snap := env.metrics.Snapshot()
	if snap.PublishesStarted != 1 || snap.PlaysStarted != 1 {
		t.Fatalf("metrics = %+v", snap)
	}
}

func TestDuplicatePublishRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.dial(t)
	first.connect("live")
	first.publish("cam")
	first.expectStatus(codePublishStart)

	second := env.dial(t)
	second.connect("live")
	second.publish("cam")
	second.expectStatus(codePublishBadName)
	second.expectClosed()

	stream := env.registry.Lookup(bus.NewStreamKey("live", "cam"))
	if stream == nil || stream.Closed() {
		t.Fatal("original publisher lost its stream")
	}
	waitFor(t, "rejection metric", func() bool { return env.metrics.Snapshot().PublishesRejected == 1 })
}

func TestCapacityExceeded(t *testing.T) {
	env := newTestEnv(t, func(c *config.IngestConfig) { c.MaxStreams = 1 })

	first := env.dial(t)
	first.connect("live")
	first.publish("a")
	first.expectStatus(codePublishStart)

	second := env.dial(t)
	second.connect("live")
	second.publish("b")
	second.expectStatus(codePublishRejected)
	second.expectClosed()
}

func TestConnectRejectsUnknownApp(t *testing.T) {
	env := newTestEnv(t, func(c *config.IngestConfig) { c.AllowedApps = []string{"live"} })

	c := env.dial(t)
	c.command(0, "connect", 1, amf0.Object{{Key: "app", Value: amf0.String("other")}})
	res := c.expectCommand("_error")
	if got := statusCode(t, res); got != codeConnectRejected {
		t.Fatalf("code = %q", got)
	}
	c.expectClosed()
}

func TestMediaBeforePublishClosesConnection(t *testing.T) {
	env := newTestEnv(t, nil)

	c := env.dial(t)
	c.connect("live")
	c.media(rtmpprotocol.MessageTypeVideo, 0, avcKeyframe...)
	c.expectClosed()

	waitFor(t, "protocol error metric", func() bool { return env.metrics.Snapshot().ProtocolErrors == 1 })
}

func TestPlayMissingStreamKeepsConnection(t *testing.T) {
	env := newTestEnv(t, nil)

	c := env.dial(t)
	c.connect("live")
	c.play("nothing")
	c.expectStatus(codePlayNotFound)

	// The connection is still usable.
	if id := c.createStream(5); id != 2 {
		t.Fatalf("second stream id = %d", id)
	}
}

func TestCommandReplies(t *testing.T) {
	env := newTestEnv(t, nil)

	c := env.dial(t)
	c.command(0, "createStream", 1, amf0.Null{})
	if got := statusCode(t, c.expectCommand("_error")); got != codeCallFailed {
		t.Fatalf("createStream before connect code = %q", got)
	}

	c.connect("live")
	c.expectCommand("onBWDone")

	for i, name := range []string{"releaseStream", "FCPublish", "FCUnpublish"} {
		txn := float64(10 + i)
		c.command(0, name, txn, amf0.Null{}, amf0.String("cam"))
		if res := c.expectCommand("_result"); res.TransactionID != txn {
			t.Fatalf("%s txn = %v", name, res.TransactionID)
		}
	}

	c.command(0, "_checkbw", 20, amf0.Null{})
	c.expectCommand("_result")
	c.expectCommand("onBWCheck")

	c.command(0, "fooBar", 21, amf0.Null{})
	if got := statusCode(t, c.expectCommand("_error")); got != codeCallFailed {
		t.Fatalf("unknown command code = %q", got)
	}

	if first, second := c.createStream(22), c.createStream(23); second != first+1 {
		t.Fatalf("stream ids %d, %d", first, second)
	}
}

func TestAMF3CommandAccepted(t *testing.T) {
	env := newTestEnv(t, nil)

	c := env.dial(t)
	c.connect("live")
	body, err := (&amf0.Command{Name: "createStream", TransactionID: 7, Object: amf0.Null{}}).Encode()
	if err != nil {
		t.Fatal(err)
	}
	c.send(rtmpprotocol.ChunkStreamCommand, &rtmpprotocol.Message{
		Type: rtmpprotocol.MessageTypeCommandAMF3,
		Body: append([]byte{0}, body...),
	})
	if res := c.expectCommand("_result"); res.TransactionID != 7 {
		t.Fatalf("txn = %v", res.TransactionID)
	}
}

func TestDeleteStreamEndsPublish(t *testing.T) {
	env := newTestEnv(t, nil)

	c := env.dial(t)
	c.connect("live")
	c.publish("cam")
	c.expectStatus(codePublishStart)

	c.command(0, "deleteStream", 4, amf0.Null{}, amf0.Number(1))
	c.expectStatus(codeUnpublishSuccess)
	c.expectClosed()
	waitFor(t, "registry cleanup", func() bool { return env.registry.Count() == 0 })
}

func TestShutdownClosesSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.server.Listen("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- env.server.Serve() }()

	conn, err := net.Dial("tcp", env.server.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	c := newTestClient(t, conn)
	c.connect("live")
	c.publish("cam")
	c.expectStatus(codePublishStart)

	waitFor(t, "session listed", func() bool {
		sessions := env.server.Sessions()
		return len(sessions) == 1 && sessions[0].Stream == "live/cam" && sessions[0].State == "publishing"
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := <-served; err != nil {
		t.Fatalf("serve: %v", err)
	}
	c.expectClosed()
	if env.registry.Count() != 0 {
		t.Fatal("stream left registered after shutdown")
	}
}

func TestStreamName(t *testing.T) {
	tests := map[string]string{
		"cam":           "cam",
		"cam?token=abc": "cam",
		"/cam/":         "cam",
		"":              "",
	}
	for in, want := range tests {
		if got := streamName(in); got != want {
			t.Errorf("streamName(%q) = %q, want %q", in, got, want)
		}
	}
}
