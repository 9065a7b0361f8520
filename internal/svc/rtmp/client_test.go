// If you are AI: This file contains a scripted RTMP client used by the server tests.

package rtmp

import (
	"net"
	"testing"
	"time"

	"streamx/internal/config"
	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/amf0"
	rtmpprotocol "streamx/internal/core/protocol/rtmp"
	"streamx/internal/metrics"
	"streamx/internal/svc/egress"
)

const testTimeout = 2 * time.Second

type testEnv struct {
	server   *Server
	registry *bus.Registry
	sink     *egress.DiscardSink
	metrics  *metrics.Collector
}

func newTestEnv(t *testing.T, mutate func(*config.IngestConfig)) *testEnv {
	t.Helper()
	return newTestEnvWithSink(t, nil, mutate)
}

// newTestEnvWithSink uses sink for egress; nil keeps the recording DiscardSink.
func newTestEnvWithSink(t *testing.T, sink egress.Sink, mutate func(*config.IngestConfig)) *testEnv {
	t.Helper()
	cfg := config.Default().Ingest
	if mutate != nil {
		mutate(&cfg)
	}
	env := &testEnv{
		registry: bus.NewRegistry(cfg.MaxStreams),
		sink:     egress.NewDiscardSink(),
		metrics:  metrics.NewCollector(),
	}
	if sink == nil {
		sink = env.sink
	}
	env.server = NewServer(Options{
		Registry:     env.registry,
		Sink:         sink,
		Ingest:       cfg,
		CloseTimeout: time.Second,
		Metrics:      env.metrics,
	})
	return env
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	w    *rtmpprotocol.ChunkWriter
	msgs chan *rtmpprotocol.Message
}

// dial connects a client over an in-memory pipe and completes the handshake.
func (e *testEnv) dial(t *testing.T) *testClient {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	go e.server.ServeConn(serverConn)
	t.Cleanup(func() { _ = clientConn.Close() })
	return newTestClient(t, clientConn)
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	if err := rtmpprotocol.PerformClientHandshake(conn); err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	c := &testClient{
		t:    t,
		conn: conn,
		w:    rtmpprotocol.NewChunkWriter(conn),
		msgs: make(chan *rtmpprotocol.Message, 1024),
	}
	go c.pump(rtmpprotocol.NewChunkReader(conn, 0))
	return c
}

// pump reads server messages so server writes never block on the pipe.
func (c *testClient) pump(r *rtmpprotocol.ChunkReader) {
	defer close(c.msgs)
	for {
		msg, err := r.ReadMessage()
		if err != nil {
			return
		}
		if msg.Type == rtmpprotocol.MessageTypeSetChunkSize {
			if size, err := rtmpprotocol.ParseSetChunkSize(msg.Body); err == nil {
				_ = r.SetChunkSize(size)
			}
			continue
		}
		c.msgs <- msg
	}
}

func (c *testClient) send(csID uint32, msg *rtmpprotocol.Message) {
	c.t.Helper()
	if err := c.w.WriteMessage(csID, msg); err != nil {
		c.t.Fatalf("send type %d: %v", msg.Type, err)
	}
}

func (c *testClient) command(streamID uint32, name string, txn float64, obj amf0.Value, args ...amf0.Value) {
	c.t.Helper()
	body, err := (&amf0.Command{Name: name, TransactionID: txn, Object: obj, Args: args}).Encode()
	if err != nil {
		c.t.Fatal(err)
	}
	c.send(rtmpprotocol.ChunkStreamCommand, &rtmpprotocol.Message{
		Type:     rtmpprotocol.MessageTypeCommandAMF0,
		StreamID: streamID,
		Body:     body,
	})
}

func (c *testClient) media(t byte, ts uint32, payload ...byte) {
	c.t.Helper()
	c.send(rtmpprotocol.ChunkStreamVideo, &rtmpprotocol.Message{Type: t, Timestamp: ts, StreamID: 1, Body: payload})
}

// next returns the next message of type t, skipping others.
func (c *testClient) next(t byte) *rtmpprotocol.Message {
	c.t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				c.t.Fatalf("connection closed waiting for message type %d", t)
			}
			if msg.Type == t {
				return msg
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for message type %d", t)
		}
	}
}

// expectCommand returns the next command named name, skipping other commands.
func (c *testClient) expectCommand(name string) *amf0.Command {
	c.t.Helper()
	for {
		msg := c.next(rtmpprotocol.MessageTypeCommandAMF0)
		cmd, err := amf0.DecodeCommand(msg.Body)
		if err != nil {
			c.t.Fatalf("decode command: %v", err)
		}
		if cmd.Name == name {
			return cmd
		}
	}
}

// statusCode returns the code of the info object in argument 0.
func statusCode(t *testing.T, cmd *amf0.Command) string {
	t.Helper()
	if len(cmd.Args) == 0 {
		t.Fatalf("%s has no info object", cmd.Name)
	}
	props, _ := amf0.Properties(cmd.Args[0])
	code, _ := amf0.Object(props).String("code")
	return code
}

func (c *testClient) expectStatus(code string) {
	c.t.Helper()
	if got := statusCode(c.t, c.expectCommand("onStatus")); got != code {
		c.t.Fatalf("onStatus code = %q, want %q", got, code)
	}
}

// expectClosed waits for the server to close the connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case _, ok := <-c.msgs:
			if !ok {
				return
			}
		case <-deadline:
			c.t.Fatal("connection still open")
		}
	}
}

func (c *testClient) connect(app string) {
	c.t.Helper()
	c.command(0, "connect", 1, amf0.Object{
		{Key: "app", Value: amf0.String(app)},
		{Key: "tcUrl", Value: amf0.String("rtmp://localhost/" + app)},
		{Key: "objectEncoding", Value: amf0.Number(0)},
	})
	res := c.expectCommand("_result")
	if got := statusCode(c.t, res); got != codeConnectSuccess {
		c.t.Fatalf("connect code = %q", got)
	}
}

// createStream returns the allocated message stream id.
func (c *testClient) createStream(txn float64) uint32 {
	c.t.Helper()
	c.command(0, "createStream", txn, amf0.Null{})
	res := c.expectCommand("_result")
	id, ok := res.NumberArg(0)
	if !ok {
		c.t.Fatal("createStream result has no stream id")
	}
	return uint32(id)
}

func (c *testClient) publish(name string) {
	c.t.Helper()
	id := c.createStream(2)
	c.command(id, "publish", 3, amf0.Null{}, amf0.String(name), amf0.String("live"))
}

func (c *testClient) play(name string) {
	c.t.Helper()
	id := c.createStream(2)
	c.command(id, "play", 3, amf0.Null{}, amf0.String(name))
}

// barrier round-trips a command so every earlier message has been processed.
func (c *testClient) barrier() {
	c.t.Helper()
	c.command(0, "getStreamLength", 42, amf0.Null{})
	for {
		if c.expectCommand("_result").TransactionID == 42 {
			return
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
