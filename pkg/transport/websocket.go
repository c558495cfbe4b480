package transport

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/worldlink/pkg/codec"
	"github.com/opd-ai/worldlink/pkg/protocol"
)

// WebSocketTransport exchanges messages over a gorilla/websocket
// connection. Receive is non-blocking: a background goroutine reads
// frames off the socket and feeds a buffered channel, the same
// read-goroutine-feeds-a-channel shape the producer's game server uses
// for per-connection command queues.
type WebSocketTransport struct {
	conn  *websocket.Conn
	codec codec.Codec

	mu         sync.Mutex
	connected  bool
	closeOnce  sync.Once
	incoming   chan protocol.Message
	readErr    chan error
	closedChan chan struct{}

	log *logrus.Entry
}

// NewWebSocketTransport wraps conn, starting the background read loop
// immediately.
func NewWebSocketTransport(conn *websocket.Conn, c codec.Codec) *WebSocketTransport {
	t := &WebSocketTransport{
		conn:       conn,
		codec:      c,
		connected:  true,
		incoming:   make(chan protocol.Message, 64),
		readErr:    make(chan error, 1),
		closedChan: make(chan struct{}),
		log:        logrus.WithFields(logrus.Fields{"component": "websocket_transport"}),
	}
	go t.readLoop()
	return t
}

func (t *WebSocketTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.log.WithError(err).Debug("websocket read loop exiting")
			select {
			case t.readErr <- err:
			default:
			}
			t.markDisconnected()
			return
		}
		m, err := t.codec.DecodeMessage(data)
		if err != nil {
			t.log.WithError(err).Warn("dropping undecodable frame")
			continue
		}
		select {
		case t.incoming <- m:
		case <-t.closedChan:
			return
		}
	}
}

func (t *WebSocketTransport) markDisconnected() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
}

func (t *WebSocketTransport) Send(m protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return protocol.NewError(protocol.KindConnectionClosed, "websocket transport closed")
	}
	data, err := t.codec.EncodeMessage(m)
	if err != nil {
		return protocol.WrapError(protocol.KindSerialization, "encoding message", err)
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return protocol.WrapError(protocol.KindTransport, "writing websocket frame", err)
	}
	return nil
}

// Receive returns the next buffered message, or (nil, nil) when none is
// currently queued.
func (t *WebSocketTransport) Receive() (*protocol.Message, error) {
	select {
	case m := <-t.incoming:
		return &m, nil
	case err := <-t.readErr:
		return nil, protocol.WrapError(protocol.KindTransport, "websocket read failed", err)
	default:
		return nil, nil
	}
}

func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		close(t.closedChan)
		err = t.conn.Close()
	})
	return err
}

func (t *WebSocketTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}
