// If you are AI: This file manages RTMP session state and protocol handling.
// Session owns the chunk reader/writer pair, the state machine, and acknowledgement accounting.

package rtmp

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// SessionState represents the current state of an RTMP session.
type SessionState int

const (
	StateHandshaking SessionState = iota
	StateConnected
	StatePublishing
	StatePlaying
	StateClosed
)

// String returns the state name for logs and the API.
func (s SessionState) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StatePublishing:
		return "publishing"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next is allowed.
// Every state may close; otherwise states only move forward.
func (s SessionState) CanTransition(next SessionState) bool {
	if next == StateClosed {
		return s != StateClosed
	}
	switch s {
	case StateHandshaking:
		return next == StateConnected
	case StateConnected:
		return next == StatePublishing || next == StatePlaying
	default:
		return false
	}
}

// Session manages an RTMP connection session.
// Read side is owned by one goroutine; writes are serialized by the ChunkWriter.
type Session struct {
	conn   io.ReadWriter
	reader *ChunkReader
	writer *ChunkWriter

	// readMu is held by ReadMessage; the reader and Close both release
	// chunk stream contexts after it is free, so the last one wins.
	readMu sync.Mutex

	mu    sync.Mutex
	state SessionState
	epoch time.Time

	// Acknowledgement accounting for the window the peer announced
	peerWindow uint32
	received   uint32
	lastAck    uint32
}

// NewSession creates a new RTMP session over conn.
func NewSession(conn io.ReadWriter, maxMessageSize uint32) *Session {
	return &Session{
		conn:   conn,
		reader: NewChunkReader(conn, maxMessageSize),
		writer: NewChunkWriter(conn),
		state:  StateHandshaking,
	}
}

// PerformHandshake runs the server handshake and moves the session to Connected.
func (s *Session) PerformHandshake() error {
	if s.State() != StateHandshaking {
		return fmt.Errorf("%w: handshake in state %s", ErrInvalidTransition, s.State())
	}
	epoch, err := PerformServerHandshake(s.conn)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.epoch = epoch
	s.mu.Unlock()
	return s.Transition(StateConnected)
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to next or returns ErrInvalidTransition.
func (s *Session) Transition(next SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, next)
	}
	s.state = next
	return nil
}

// Uptime returns the time elapsed on the session clock.
func (s *Session) Uptime() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch.IsZero() {
		return 0
	}
	return uint32(time.Since(s.epoch).Milliseconds())
}

// ReadMessage returns the next message that is not handled at the protocol layer.
// Set Chunk Size, Abort, Window Acknowledgement Size, Acknowledgement, Set Peer Bandwidth
// and ping requests are consumed here.
func (s *Session) ReadMessage() (*Message, error) {
	s.readMu.Lock()
	defer func() {
		s.readMu.Unlock()
		s.releaseIfClosed()
	}()
	for {
		if s.State() == StateClosed {
			return nil, ErrSessionClosed
		}
		msg, err := s.reader.ReadChunk()
		if ackErr := s.accountBytes(s.reader.TakeBytesRead()); ackErr != nil && err == nil {
			err = ackErr
		}
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		handled, err := s.handleControl(msg)
		if err != nil {
			return nil, err
		}
		if !handled {
			return msg, nil
		}
	}
}

// handleControl applies protocol control messages to the session.
func (s *Session) handleControl(msg *Message) (bool, error) {
	switch msg.Type {
	case MessageTypeSetChunkSize:
		size, err := ParseSetChunkSize(msg.Body)
		if err != nil {
			return true, err
		}
		return true, s.reader.SetChunkSize(size)
	case MessageTypeAbortMessage:
		csID, err := ParseUint32(msg.Body)
		if err != nil {
			return true, err
		}
		s.reader.Abort(csID)
		return true, nil
	case MessageTypeWinAckSize:
		size, err := ParseUint32(msg.Body)
		if err != nil {
			return true, err
		}
		s.mu.Lock()
		s.peerWindow = size
		s.mu.Unlock()
		return true, nil
	case MessageTypeAck, MessageTypeSetPeerBandwidth:
		return true, nil
	case MessageTypeUserCtrl:
		event, data, err := ParseUserControl(msg.Body)
		if err != nil {
			return true, err
		}
		if event == ControlPingRequest {
			ts, err := ParseUint32(data)
			if err != nil {
				return true, err
			}
			return true, s.WriteControl(NewPingResponse(ts))
		}
		return true, nil
	}
	return false, nil
}

// accountBytes adds n to the received counter and sends an acknowledgement once the peer window is reached.
func (s *Session) accountBytes(n uint32) error {
	s.mu.Lock()
	s.received += n
	if s.received >= ackCounterWrap {
		s.received = 0
		s.lastAck = 0
	}
	var seq uint32
	due := s.peerWindow > 0 && s.received-s.lastAck >= s.peerWindow
	if due {
		s.lastAck = s.received
		seq = s.received
	}
	s.mu.Unlock()
	if !due {
		return nil
	}
	return s.WriteControl(NewAck(seq))
}

// BytesReceived returns the acknowledgement counter.
func (s *Session) BytesReceived() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// WriteControl sends a protocol control message on chunk stream 2, message stream 0.
func (s *Session) WriteControl(msg *Message) error {
	msg.StreamID = 0
	return s.writer.WriteMessage(ChunkStreamControl, msg)
}

// WriteMessage sends msg on the given chunk stream.
func (s *Session) WriteMessage(csID uint32, msg *Message) error {
	return s.writer.WriteMessage(csID, msg)
}

// SetOutgoingChunkSize announces size to the peer and applies it to subsequent writes.
func (s *Session) SetOutgoingChunkSize(size uint32) error {
	if err := s.WriteControl(NewSetChunkSize(size)); err != nil {
		return err
	}
	return s.writer.SetChunkSize(size)
}

// IncomingChunkSize returns the chunk size the peer is using.
func (s *Session) IncomingChunkSize() uint32 {
	return s.reader.ChunkSize()
}

// OutgoingChunkSize returns the chunk size used for writes.
func (s *Session) OutgoingChunkSize() uint32 {
	return s.writer.ChunkSize()
}

// Close marks the session closed and releases its chunk stream contexts.
// When a read is in flight the reader releases them as it returns.
// It reports whether this call performed the transition.
func (s *Session) Close() bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return false
	}
	s.state = StateClosed
	s.mu.Unlock()

	s.releaseIfClosed()
	return true
}

// releaseIfClosed drops the chunk stream contexts once closed, unless a read holds them.
func (s *Session) releaseIfClosed() {
	if s.State() != StateClosed || !s.readMu.TryLock() {
		return
	}
	s.reader.Reset()
	s.readMu.Unlock()
}
