package sync

import (
	"time"

	"github.com/opd-ai/worldlink/pkg/protocol"
	"github.com/opd-ai/worldlink/pkg/ratelimit"
	"github.com/opd-ai/worldlink/pkg/schema"
	"github.com/opd-ai/worldlink/pkg/worldstate"
)

// Receive pulls the next message off the transport, if any, and maps it
// to an Event via ProcessMessage.
func (m *Manager) Receive() (*Event, error) {
	if !m.transport.IsConnected() {
		return nil, protocol.NewError(protocol.KindConnectionClosed, "transport is not connected")
	}
	msg, err := m.transport.Receive()
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	ev, err := m.ProcessMessage(*msg)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ProcessMessage maps a received Message's payload to a SyncEvent,
// applying the side effects each variant requires (resetting the delta
// compressor on Snapshot, auto-replying Pong on Ping, counting errors).
func (m *Manager) ProcessMessage(msg protocol.Message) (Event, error) {
	switch msg.Header.MsgType {
	case protocol.TypeSnapshot:
		p := msg.Payload.Snapshot
		snapshot := worldstate.WorldSnapshot{
			Entities:  p.Entities,
			Timestamp: p.Metadata.WorldTime,
			Version:   "1.0.0",
		}
		m.deltaCompressor.Reset()
		return Event{Kind: EventSnapshot, Snapshot: snapshot}, nil

	case protocol.TypeDelta:
		p := msg.Payload.Delta
		delta := worldstate.Delta{
			Changes:       p.Changes,
			Timestamp:     float64(msg.Header.TimestampMs) / 1000.0,
			BaseTimestamp: float64(p.BaseTimestampMs) / 1000.0,
		}
		return Event{Kind: EventDelta, Delta: delta}, nil

	case protocol.TypeRequestSnapshot:
		return Event{Kind: EventSnapshotRequested}, nil

	case protocol.TypeAck:
		return Event{Kind: EventAck, AckID: msg.Payload.Ack.AckID}, nil

	case protocol.TypePing:
		pong := protocol.NewPongMessage(nowMs(), m.schemaVersion)
		if err := m.transport.Send(pong); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventPing}, nil

	case protocol.TypePong:
		return Event{Kind: EventPong}, nil

	case protocol.TypeSchemaSync:
		return Event{Kind: EventSchemaSync, Schemas: msg.Payload.SchemaSync.Schemas}, nil

	case protocol.TypeError:
		m.mu.Lock()
		m.errorCount++
		m.mu.Unlock()
		return Event{
			Kind:      EventError,
			ErrorCode: msg.Payload.Error.Code,
			ErrorMsg:  msg.Payload.Error.Message,
		}, nil

	default:
		return Event{}, protocol.NewError(protocol.KindInvalidMessage, "unknown message type")
	}
}

// RequestSnapshot sends an empty RequestSnapshot message.
func (m *Manager) RequestSnapshot() error {
	return m.transport.Send(protocol.NewRequestSnapshotMessage(nowMs(), m.schemaVersion))
}

// SendAck sends an Ack for the given correlation id.
func (m *Manager) SendAck(ackID uint64) error {
	return m.transport.Send(protocol.NewAckMessage(ackID, nowMs(), m.schemaVersion))
}

// Ping sends an empty Ping message.
func (m *Manager) Ping() error {
	return m.transport.Send(protocol.NewPingMessage(nowMs(), m.schemaVersion))
}

// ShouldSync reports whether the caller should sync now: always false in
// ModeManual; otherwise true if no sync has happened yet or the sync
// interval has elapsed.
func (m *Manager) ShouldSync() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.Mode == ModeManual {
		return false
	}
	if m.lastSync == nil {
		return true
	}
	return time.Since(*m.lastSync) >= m.config.SyncInterval
}

// GetStats returns a snapshot of the manager's observable state.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rlStats *ratelimit.Stats
	if m.rateLimiter != nil {
		s := m.rateLimiter.GetStats()
		rlStats = &s
	}
	return Stats{
		SyncCount:         m.syncCount,
		ErrorCount:        m.errorCount,
		LastSync:          m.lastSync,
		RateLimiterStats:  rlStats,
		ReconnectAttempts: m.reconnectAttempts,
	}
}

// GetSchemaRegistry returns the manager's schema registry handle.
func (m *Manager) GetSchemaRegistry() *schema.SchemaRegistry {
	return m.schemaRegistry
}

// SetSchemaVersion sets the schema_version stamped on outgoing messages.
func (m *Manager) SetSchemaVersion(v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaVersion = v
}

// GetSchemaVersion returns the schema_version stamped on outgoing messages.
func (m *Manager) GetSchemaVersion() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schemaVersion
}

// ResetDeltaCompressor drops the compressor's stored previous snapshot.
func (m *Manager) ResetDeltaCompressor() {
	m.deltaCompressor.Reset()
}

// IsConnected reports the underlying transport's connection state.
func (m *Manager) IsConnected() bool {
	return m.transport.IsConnected()
}

// Close closes the underlying transport.
func (m *Manager) Close() error {
	return m.transport.Close()
}
