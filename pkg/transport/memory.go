package transport

import (
	"sync"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

// MemoryTransport is an in-process loopback transport. Two instances are
// wired together with ConnectTo, which swaps their send/receive buffers
// so that one side's Send feeds the other side's Receive.
type MemoryTransport struct {
	mu             sync.Mutex
	sendBuffer     *[]protocol.Message
	receiveBuffer  *[]protocol.Message
	ownSend        []protocol.Message
	ownReceive     []protocol.Message
	connected      bool
}

// NewMemoryTransport builds a standalone transport whose send/receive
// buffers are not yet wired to a peer.
func NewMemoryTransport() *MemoryTransport {
	t := &MemoryTransport{connected: true}
	t.sendBuffer = &t.ownSend
	t.receiveBuffer = &t.ownReceive
	return t
}

// NewMemoryTransportPair builds two MemoryTransports already wired
// together: a's Send feeds b's Receive and vice versa.
func NewMemoryTransportPair() (a, b *MemoryTransport) {
	a = NewMemoryTransport()
	b = NewMemoryTransport()
	a.ConnectTo(b)
	return a, b
}

// ConnectTo wires this transport's send buffer to other's receive buffer
// and vice versa.
func (t *MemoryTransport) ConnectTo(other *MemoryTransport) {
	t.mu.Lock()
	other.mu.Lock()
	defer t.mu.Unlock()
	defer other.mu.Unlock()

	t.sendBuffer = &other.ownReceive
	other.sendBuffer = &t.ownReceive
	t.receiveBuffer = &t.ownReceive
	other.receiveBuffer = &other.ownReceive
}

func (t *MemoryTransport) Send(m protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return protocol.NewError(protocol.KindConnectionClosed, "memory transport closed")
	}
	*t.sendBuffer = append(*t.sendBuffer, m)
	return nil
}

func (t *MemoryTransport) Receive() (*protocol.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return nil, protocol.NewError(protocol.KindConnectionClosed, "memory transport closed")
	}
	buf := *t.receiveBuffer
	if len(buf) == 0 {
		return nil, nil
	}
	m := buf[0]
	*t.receiveBuffer = buf[1:]
	return &m, nil
}

func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	t.ownSend = nil
	t.ownReceive = nil
	return nil
}

func (t *MemoryTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}
