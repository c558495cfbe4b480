package codec

import (
	"encoding/binary"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

// StreamWriter accumulates length-prefixed encoded messages into a
// buffer, matching the 4-byte little-endian length prefix required by
// stream transports.
type StreamWriter struct {
	codec  Codec
	buffer []byte
}

func NewStreamWriter(codec Codec) *StreamWriter {
	return &StreamWriter{codec: codec}
}

// WriteMessage encodes m and appends a 4-byte LE length prefix plus the
// encoded bytes to the internal buffer.
func (w *StreamWriter) WriteMessage(m protocol.Message) error {
	data, err := w.codec.EncodeMessage(m)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	w.buffer = append(w.buffer, lenBuf[:]...)
	w.buffer = append(w.buffer, data...)
	return nil
}

// Flush returns the accumulated bytes and clears the buffer.
func (w *StreamWriter) Flush() []byte {
	out := w.buffer
	w.buffer = nil
	return out
}

// Clear discards any accumulated bytes without returning them.
func (w *StreamWriter) Clear() {
	w.buffer = nil
}

// StreamReader reassembles length-prefixed frames fed to it
// incrementally, mirroring StreamWriter's framing.
type StreamReader struct {
	codec  Codec
	buffer []byte
}

func NewStreamReader(codec Codec) *StreamReader {
	return &StreamReader{codec: codec}
}

// Feed appends data to the internal buffer.
func (r *StreamReader) Feed(data []byte) {
	r.buffer = append(r.buffer, data...)
}

// TryReadMessage attempts to decode one complete frame from the buffer.
// It returns (nil, nil) when fewer than 4 header bytes, or fewer than the
// declared payload bytes, are currently buffered — the caller should Feed
// more data and retry rather than treating this as an error.
func (r *StreamReader) TryReadMessage() (*protocol.Message, error) {
	if len(r.buffer) < 4 {
		return nil, nil
	}
	length := binary.LittleEndian.Uint32(r.buffer[:4])
	if uint32(len(r.buffer)-4) < length {
		return nil, nil
	}

	frame := r.buffer[4 : 4+length]
	r.buffer = r.buffer[4+length:]

	m, err := r.codec.DecodeMessage(frame)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Clear discards any buffered, not-yet-decoded bytes.
func (r *StreamReader) Clear() {
	r.buffer = nil
}
