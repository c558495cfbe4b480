// Package transport defines the byte-transport contract the core
// consumes, plus a required in-memory loopback implementation and two
// enrichment implementations (stdio, websocket).
package transport

import "github.com/opd-ai/worldlink/pkg/protocol"

// Transport is what the core consumes: send must not silently drop,
// receive must not reorder, close is idempotent.
type Transport interface {
	// Send transmits a message. It must not silently drop it.
	Send(m protocol.Message) error

	// Receive returns the next available message, or (nil, nil) when
	// none is currently available. It must not reorder.
	Receive() (*protocol.Message, error)

	// Close shuts the transport down. Idempotent.
	Close() error

	// IsConnected reports whether Send/Receive are currently usable.
	IsConnected() bool
}
