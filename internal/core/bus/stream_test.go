// If you are AI: This file contains unit tests for stream fanout and end-of-stream propagation.

package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStreamKey(t *testing.T) {
	key := NewStreamKey("live", "mystream")
	if key.String() != "live/mystream" {
		t.Errorf("Expected 'live/mystream', got '%s'", key.String())
	}

	parsed, err := ParseStreamKey("live/mystream")
	if err != nil || parsed != key {
		t.Errorf("ParseStreamKey = %v, %v", parsed, err)
	}
	for _, bad := range []string{"", "live", "live/", "/name"} {
		if _, err := ParseStreamKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseStreamKey(%q) should fail, got %v", bad, err)
		}
	}
}

func TestStreamFanout(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"), Owner{SessionID: "p"})
	sub1, err := stream.AttachSubscriber(16)
	if err != nil {
		t.Fatal(err)
	}
	sub2, _ := stream.AttachSubscriber(16)
	if stream.SubscriberCount() != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", stream.SubscriberCount())
	}

	msg := &Message{Type: MessageTypeVideo, Timestamp: 40, Payload: []byte{0x27, 0x01}}
	stream.Publish(msg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, sub := range []*Subscriber{sub1, sub2} {
		got, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != msg {
			t.Error("Subscriber should receive the published message")
		}
	}

	info := stream.Info()
	if info.Messages != 1 || info.Bytes != 2 || info.Subscribers != 2 {
		t.Errorf("unexpected info %+v", info)
	}

	stream.DetachSubscriber(sub1.ID())
	if stream.SubscriberCount() != 1 {
		t.Error("Detach should remove the subscriber")
	}
	select {
	case <-sub1.Done():
	default:
		t.Error("Detached subscriber should be done")
	}
}

func TestStreamLateJoinerGetsHeaders(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"), Owner{})
	meta := &Message{Type: MessageTypeData, Payload: []byte{0x02}}
	avc := &Message{Type: MessageTypeVideo, Payload: []byte{0x17, 0x00, 0x00}}
	aac := &Message{Type: MessageTypeAudio, Payload: []byte{0xAF, 0x00, 0x12}}
	frame := &Message{Type: MessageTypeVideo, Payload: []byte{0x27, 0x01}}
	for _, m := range []*Message{meta, avc, aac, frame} {
		stream.Publish(m)
	}

	sub, err := stream.AttachSubscriber(8)
	if err != nil {
		t.Fatal(err)
	}
	want := []*Message{meta, avc, aac}
	for i, w := range want {
		got, ok := sub.Buffer().Read()
		if !ok || got != w {
			t.Fatalf("header %d missing or out of order", i)
		}
	}
	if _, ok := sub.Buffer().Read(); ok {
		t.Error("Inter frames must not be replayed")
	}
}

func TestStreamCloseEndsSubscribers(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"), Owner{})
	sub, _ := stream.AttachSubscriber(8)
	stream.Publish(&Message{Type: MessageTypeAudio, Payload: []byte{0x2F, 0x01}})
	stream.Close()
	stream.Close()

	ctx := context.Background()
	if _, err := sub.Next(ctx); err != nil {
		t.Fatalf("Buffered message should drain before end: %v", err)
	}
	if _, err := sub.Next(ctx); !errors.Is(err, ErrStreamEnded) {
		t.Errorf("Expected ErrStreamEnded, got %v", err)
	}
	if _, err := stream.AttachSubscriber(8); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Attach after close should fail, got %v", err)
	}
	if !stream.Closed() {
		t.Error("Closed should report true")
	}
}

func TestSubscriberNextContextCancel(t *testing.T) {
	stream := NewStream(NewStreamKey("live", "test"), Owner{})
	sub, _ := stream.AttachSubscriber(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestMessageClassification(t *testing.T) {
	tests := []struct {
		msg      Message
		header   bool
		keyframe bool
	}{
		{Message{Type: MessageTypeVideo, Payload: []byte{0x17, 0x00}}, true, true},
		{Message{Type: MessageTypeVideo, Payload: []byte{0x17, 0x01}}, false, true},
		{Message{Type: MessageTypeVideo, Payload: []byte{0x27, 0x01}}, false, false},
		{Message{Type: MessageTypeVideo, Payload: []byte{0x1C, 0x00}}, true, true},
		{Message{Type: MessageTypeAudio, Payload: []byte{0xAF, 0x00}}, true, false},
		{Message{Type: MessageTypeAudio, Payload: []byte{0xAF, 0x01}}, false, false},
		{Message{Type: MessageTypeAudio, Payload: []byte{0x2F, 0x00}}, false, false},
		{Message{Type: MessageTypeData, Payload: []byte{0x02}}, false, false},
	}
	for i, tt := range tests {
		if got := tt.msg.IsSequenceHeader(); got != tt.header {
			t.Errorf("case %d: IsSequenceHeader = %v", i, got)
		}
		if got := tt.msg.IsKeyframe(); got != tt.keyframe {
			t.Errorf("case %d: IsKeyframe = %v", i, got)
		}
	}
}
