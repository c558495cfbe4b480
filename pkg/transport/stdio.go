package transport

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/opd-ai/worldlink/pkg/codec"
	"github.com/opd-ai/worldlink/pkg/protocol"
)

// StdioTransport exchanges messages over an io.Reader/io.Writer pair
// (typically os.Stdin/os.Stdout) using the same 4-byte little-endian
// length-prefix framing the wire contract requires for stream transports.
type StdioTransport struct {
	mu        sync.Mutex
	r         io.Reader
	w         io.Writer
	codec     codec.Codec
	connected bool
}

// NewStdioTransport builds a transport over r/w using the given codec
// for message framing.
func NewStdioTransport(r io.Reader, w io.Writer, c codec.Codec) *StdioTransport {
	return &StdioTransport{r: r, w: w, codec: c, connected: true}
}

func (t *StdioTransport) Send(m protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return protocol.NewError(protocol.KindConnectionClosed, "stdio transport closed")
	}
	data, err := t.codec.EncodeMessage(m)
	if err != nil {
		return protocol.WrapError(protocol.KindSerialization, "encoding message", err)
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := t.w.Write(lenBuf[:]); err != nil {
		return protocol.WrapError(protocol.KindTransport, "writing length prefix", err)
	}
	if _, err := t.w.Write(data); err != nil {
		return protocol.WrapError(protocol.KindTransport, "writing message body", err)
	}
	return nil
}

// Receive reads exactly one length-prefixed frame. It returns (nil, nil)
// on a clean EOF before any bytes of a new frame are read. It is not
// non-blocking: when no data is pending it waits on the reader until a
// full frame or EOF arrives, holding the transport's lock, so a concurrent
// Send waits as well.
func (t *StdioTransport) Receive() (*protocol.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return nil, protocol.NewError(protocol.KindConnectionClosed, "stdio transport closed")
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(t.r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, protocol.WrapError(protocol.KindTransport, "reading length prefix", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])

	body := make([]byte, length)
	if _, err := io.ReadFull(t.r, body); err != nil {
		return nil, protocol.WrapError(protocol.KindTransport, "reading message body", err)
	}

	m, err := t.codec.DecodeMessage(body)
	if err != nil {
		return nil, protocol.WrapError(protocol.KindDeserialization, "decoding message", err)
	}
	return &m, nil
}

func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

func (t *StdioTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}
