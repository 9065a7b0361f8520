// If you are AI: This file implements the RTMP publishing client used by push relays.
// It runs the client handshake, connect/createStream/publish, then writes media.

package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"streamx/internal/core/bus"
	"streamx/internal/core/protocol/amf0"
	rtmpprotocol "streamx/internal/core/protocol/rtmp"
)

var (
	ErrInvalidURL    = errors.New("invalid rtmp url")
	ErrCallRejected  = errors.New("remote rejected call")
	ErrPublishDenied = errors.New("remote denied publish")
)

const (
	defaultRTMPPort = "1935"
	clientChunkSize = 4096
)

// Target is a parsed rtmp://host[:port]/app/name URL.
type Target struct {
	Host  string // host:port
	App   string
	Name  string
	TCURL string
}

// ParseURL splits an RTMP URL into connection and stream parts.
func ParseURL(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	app, name, ok := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if u.Scheme != "rtmp" || u.Hostname() == "" || !ok || app == "" || name == "" {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if u.RawQuery != "" {
		name += "?" + u.RawQuery
	}
	port := u.Port()
	if port == "" {
		port = defaultRTMPPort
	}
	return Target{
		Host:  net.JoinHostPort(u.Hostname(), port),
		App:   app,
		Name:  name,
		TCURL: "rtmp://" + u.Host + "/" + app,
	}, nil
}

// Client is a publishing RTMP connection.
type Client struct {
	conn     net.Conn
	session  *rtmpprotocol.Session
	streamID uint32
	txn      float64
}

// Dial connects to target and publishes its stream name.
// timeout bounds the dial and the whole command exchange.
func Dial(ctx context.Context, target Target, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", target.Host)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))

	c := &Client{conn: conn, session: rtmpprotocol.NewSession(conn, 0)}
	if err := c.setup(target); err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	go c.drain()
	return c, nil
}

// setup runs handshake, connect, createStream and publish.
func (c *Client) setup(target Target) error {
	if err := rtmpprotocol.PerformClientHandshake(c.conn); err != nil {
		return err
	}
	if err := c.session.Transition(rtmpprotocol.StateConnected); err != nil {
		return err
	}
	if err := c.session.SetOutgoingChunkSize(clientChunkSize); err != nil {
		return err
	}

	connectObj := amf0.Object{
		{Key: "app", Value: amf0.String(target.App)},
		{Key: "type", Value: amf0.String("nonprivate")},
		{Key: "tcUrl", Value: amf0.String(target.TCURL)},
	}
	if _, err := c.call("connect", connectObj); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	res, err := c.call("createStream", amf0.Null{})
	if err != nil {
		return fmt.Errorf("createStream: %w", err)
	}
	id, ok := res.NumberArg(0)
	if !ok {
		return fmt.Errorf("createStream: %w: no stream id", ErrCallRejected)
	}
	c.streamID = uint32(id)

	if err := c.send(rtmpprotocol.ChunkStreamStatus, c.streamID, "publish", 0, amf0.Null{},
		amf0.String(target.Name), amf0.String("live")); err != nil {
		return err
	}
	for {
		cmd, err := c.readCommand()
		if err != nil {
			return err
		}
		if cmd.Name != "onStatus" || len(cmd.Args) == 0 {
			continue
		}
		props, _ := amf0.Properties(cmd.Args[0])
		code, _ := amf0.Object(props).String("code")
		if code == "NetStream.Publish.Start" {
			return c.session.Transition(rtmpprotocol.StatePublishing)
		}
		return fmt.Errorf("%w: %s", ErrPublishDenied, code)
	}
}

// call sends a command and waits for its _result.
func (c *Client) call(name string, obj amf0.Value, args ...amf0.Value) (*amf0.Command, error) {
	c.txn++
	txn := c.txn
	if err := c.send(rtmpprotocol.ChunkStreamCommand, 0, name, txn, obj, args...); err != nil {
		return nil, err
	}
	for {
		cmd, err := c.readCommand()
		if err != nil {
			return nil, err
		}
		if cmd.TransactionID != txn {
			continue
		}
		switch cmd.Name {
		case "_result":
			return cmd, nil
		case "_error":
			return nil, fmt.Errorf("%w: %s", ErrCallRejected, name)
		}
	}
}

// readCommand returns the next AMF0 command, skipping everything else.
func (c *Client) readCommand() (*amf0.Command, error) {
	for {
		msg, err := c.session.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msg.Type != rtmpprotocol.MessageTypeCommandAMF0 {
			continue
		}
		return amf0.DecodeCommand(msg.Body)
	}
}

// send writes one AMF0 command.
func (c *Client) send(csID, streamID uint32, name string, txn float64, obj amf0.Value, args ...amf0.Value) error {
	body, err := (&amf0.Command{Name: name, TransactionID: txn, Object: obj, Args: args}).Encode()
	if err != nil {
		return err
	}
	return c.session.WriteMessage(csID, &rtmpprotocol.Message{
		Type:     rtmpprotocol.MessageTypeCommandAMF0,
		StreamID: streamID,
		Body:     body,
	})
}

// drain keeps reading so acknowledgements and pings are answered.
func (c *Client) drain() {
	for {
		if _, err := c.session.ReadMessage(); err != nil {
			return
		}
	}
}

// WriteMedia sends one bus message on the published stream.
// Script data is wrapped in @setDataFrame so the remote keeps it as metadata.
func (c *Client) WriteMedia(msg *bus.Message, timeout time.Duration) error {
	out := &rtmpprotocol.Message{Timestamp: msg.Timestamp, StreamID: c.streamID, Body: msg.Payload}
	csID := uint32(rtmpprotocol.ChunkStreamData)
	switch msg.Type {
	case bus.MessageTypeAudio:
		out.Type, csID = rtmpprotocol.MessageTypeAudio, rtmpprotocol.ChunkStreamAudio
	case bus.MessageTypeVideo:
		out.Type, csID = rtmpprotocol.MessageTypeVideo, rtmpprotocol.ChunkStreamVideo
	default:
		prefix, err := amf0.EncodeValues(amf0.String("@setDataFrame"))
		if err != nil {
			return err
		}
		out.Type, out.Body = rtmpprotocol.MessageTypeDataAMF0, append(prefix, msg.Payload...)
	}
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return c.session.WriteMessage(csID, out)
}

// Close unpublishes and closes the connection.
func (c *Client) Close() error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.send(rtmpprotocol.ChunkStreamCommand, 0, "deleteStream", 0, amf0.Null{}, amf0.Number(c.streamID))
	c.session.Close()
	return c.conn.Close()
}
