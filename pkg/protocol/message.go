package protocol

import "sync/atomic"

// MessageType is the stable wire discriminant for a message's payload kind.
type MessageType uint8

const (
	TypeSnapshot MessageType = iota
	TypeDelta
	TypeRequestSnapshot
	TypeAck
	TypePing
	TypePong
	TypeSchemaSync
	TypeError
)

// sequenceCounter is the process-global monotonic sequence source backing
// MessageHeader.Sequence. Its increment must be serialized; atomic
// fetch-add is sufficient per the design note in spec.md.
var sequenceCounter uint64

// nextSequence returns the next strictly-increasing sequence number for
// this process.
func nextSequence() uint64 {
	return atomic.AddUint64(&sequenceCounter, 1)
}

// MessageHeader is the envelope carried by every Message. ID is a
// correlation token derived from (timestamp_ms << 20) | (sequence &
// 0xFFFFF) — it is not a globally unique identifier; only Sequence is.
type MessageHeader struct {
	MsgType       MessageType `json:"msg_type"`
	TimestampMs   uint64      `json:"timestamp_ms"`
	ID            uint64      `json:"id"`
	Sequence      uint64      `json:"sequence"`
	SchemaVersion uint32      `json:"schema_version"`
}

// NewMessageHeader builds a header with a freshly allocated sequence
// number and derived id, for the given wall-clock millisecond timestamp.
func NewMessageHeader(msgType MessageType, timestampMs uint64, schemaVersion uint32) MessageHeader {
	seq := nextSequence()
	id := (timestampMs << 20) | (seq & 0xFFFFF)
	return MessageHeader{
		MsgType:       msgType,
		TimestampMs:   timestampMs,
		ID:            id,
		Sequence:      seq,
		SchemaVersion: schemaVersion,
	}
}

// CompressionType names how a SnapshotPayload's entity data was encoded.
// It does not affect message framing; it is informational metadata.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionDelta
)

// SnapshotMetadata accompanies a SnapshotPayload.
type SnapshotMetadata struct {
	WorldTime      float64         `json:"world_time"`
	EntityCount    int             `json:"entity_count"`
	ComponentCount int             `json:"component_count"`
	Compression    CompressionType `json:"compression"`
}

// SnapshotPayload carries a full world state.
type SnapshotPayload struct {
	Entities []SerializedEntity `json:"entities"`
	Metadata SnapshotMetadata   `json:"metadata"`
}

// DeltaPayload carries a sequence of changes relative to BaseTimestampMs.
type DeltaPayload struct {
	Changes       []DeltaChange `json:"changes"`
	BaseTimestampMs uint64      `json:"base_timestamp"`
	Metadata      DeltaMetadata `json:"metadata"`
}

// AckPayload acknowledges receipt of a prior message by id.
type AckPayload struct {
	AckID uint64 `json:"ack_id"`
}

// ErrorPayload carries a machine-readable code and human-readable message.
type ErrorPayload struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

// FieldType enumerates the declared type of a schema field, independent
// of any concrete FieldValue instance.
type FieldType uint8

const (
	FieldTypeNull FieldType = iota
	FieldTypeBool
	FieldTypeU8
	FieldTypeU16
	FieldTypeU32
	FieldTypeU64
	FieldTypeI8
	FieldTypeI16
	FieldTypeI32
	FieldTypeI64
	FieldTypeF32
	FieldTypeF64
	FieldTypeString
	FieldTypeBytes
	FieldTypeArray
	FieldTypeMap
)

// KindOf returns the FieldType matching a FieldValue's Kind.
func KindOf(v FieldValue) FieldType {
	return FieldType(v.Kind)
}

// FieldSchemaInfo describes one field of a component schema on the wire.
type FieldSchemaInfo struct {
	FieldID      FieldID   `json:"field_id"`
	FieldType    FieldType `json:"field_type"`
	Optional     bool      `json:"optional"`
	DefaultValue *string   `json:"default_value,omitempty"`
	Description  *string   `json:"description,omitempty"`
}

// ComponentSchemaInfo describes one component's schema on the wire.
type ComponentSchemaInfo struct {
	ComponentID ComponentID       `json:"component_id"`
	Version     uint32            `json:"version"`
	Fields      []FieldSchemaInfo `json:"fields"`
	Description *string           `json:"description,omitempty"`
}

// SchemaSyncPayload advertises a set of component schemas.
type SchemaSyncPayload struct {
	Schemas []ComponentSchemaInfo `json:"schemas"`
}

// MessagePayload is a tagged union keyed on the enclosing header's
// MsgType. Only the field matching MsgType is populated.
type MessagePayload struct {
	Snapshot       *SnapshotPayload   `json:"snapshot,omitempty"`
	Delta          *DeltaPayload      `json:"delta,omitempty"`
	Ack            *AckPayload        `json:"ack,omitempty"`
	Error          *ErrorPayload      `json:"error,omitempty"`
	SchemaSync     *SchemaSyncPayload `json:"schema_sync,omitempty"`
}

// Message is the full envelope-plus-payload unit exchanged over a
// Transport.
type Message struct {
	Header  MessageHeader  `json:"header"`
	Payload MessagePayload `json:"payload"`
}

// NewSnapshotMessage builds a Snapshot message from entities, deriving
// entity/component counts for the metadata.
func NewSnapshotMessage(entities []SerializedEntity, timestampMs uint64, worldTime float64, schemaVersion uint32) Message {
	componentCount := 0
	for _, e := range entities {
		componentCount += len(e.Components)
	}
	return Message{
		Header: NewMessageHeader(TypeSnapshot, timestampMs, schemaVersion),
		Payload: MessagePayload{
			Snapshot: &SnapshotPayload{
				Entities: entities,
				Metadata: SnapshotMetadata{
					WorldTime:      worldTime,
					EntityCount:    len(entities),
					ComponentCount: componentCount,
					Compression:    CompressionNone,
				},
			},
		},
	}
}

// NewDeltaMessage builds a Delta message, deriving the metadata counters
// by scanning changes.
func NewDeltaMessage(changes []DeltaChange, baseTimestampMs uint64, timestampMs uint64, schemaVersion uint32) Message {
	return Message{
		Header: NewMessageHeader(TypeDelta, timestampMs, schemaVersion),
		Payload: MessagePayload{
			Delta: &DeltaPayload{
				Changes:         changes,
				BaseTimestampMs: baseTimestampMs,
				Metadata:        ComputeDeltaMetadata(changes),
			},
		},
	}
}

// NewRequestSnapshotMessage builds an empty RequestSnapshot message.
func NewRequestSnapshotMessage(timestampMs uint64, schemaVersion uint32) Message {
	return Message{Header: NewMessageHeader(TypeRequestSnapshot, timestampMs, schemaVersion)}
}

// NewAckMessage builds an Ack message for the given correlation id.
func NewAckMessage(ackID uint64, timestampMs uint64, schemaVersion uint32) Message {
	return Message{
		Header:  NewMessageHeader(TypeAck, timestampMs, schemaVersion),
		Payload: MessagePayload{Ack: &AckPayload{AckID: ackID}},
	}
}

// NewPingMessage builds an empty Ping message.
func NewPingMessage(timestampMs uint64, schemaVersion uint32) Message {
	return Message{Header: NewMessageHeader(TypePing, timestampMs, schemaVersion)}
}

// NewPongMessage builds an empty Pong message.
func NewPongMessage(timestampMs uint64, schemaVersion uint32) Message {
	return Message{Header: NewMessageHeader(TypePong, timestampMs, schemaVersion)}
}

// NewSchemaSyncMessage builds a SchemaSync message advertising schemas.
func NewSchemaSyncMessage(schemas []ComponentSchemaInfo, timestampMs uint64, schemaVersion uint32) Message {
	return Message{
		Header:  NewMessageHeader(TypeSchemaSync, timestampMs, schemaVersion),
		Payload: MessagePayload{SchemaSync: &SchemaSyncPayload{Schemas: schemas}},
	}
}

// NewErrorMessage builds an Error message.
func NewErrorMessage(code uint32, message string, timestampMs uint64, schemaVersion uint32) Message {
	return Message{
		Header:  NewMessageHeader(TypeError, timestampMs, schemaVersion),
		Payload: MessagePayload{Error: &ErrorPayload{Code: code, Message: message}},
	}
}
