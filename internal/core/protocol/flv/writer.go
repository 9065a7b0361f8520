// If you are AI: This file provides the FLV stream writer used by segmenter sinks.
// Muxing preserves original payloads without transcoding.

package flv

import (
	"io"

	"streamx/internal/core/bus"
)

// Writer writes an FLV stream: the header once, then tags.
type Writer struct {
	w             io.Writer
	header        Header
	headerWritten bool
}

// NewWriter creates a writer announcing both audio and video.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, header: Header{HasAudio: true, HasVideo: true}}
}

// TagType maps a bus message type to its FLV tag type.
func TagType(t bus.MessageType) (byte, bool) {
	switch t {
	case bus.MessageTypeAudio:
		return TagTypeAudio, true
	case bus.MessageTypeVideo:
		return TagTypeVideo, true
	case bus.MessageTypeData:
		return TagTypeScript, true
	}
	return 0, false
}

// WriteMessage writes msg as a tag, emitting the header first if needed.
// Unknown message types are skipped.
func (fw *Writer) WriteMessage(t bus.MessageType, timestamp uint32, payload []byte) error {
	tagType, ok := TagType(t)
	if !ok {
		return nil
	}
	if !fw.headerWritten {
		if _, err := fw.w.Write(fw.header.Bytes()); err != nil {
			return err
		}
		fw.headerWritten = true
	}
	_, err := NewTag(tagType, timestamp, payload).WriteTo(fw.w)
	return err
}
