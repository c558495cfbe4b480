package protocol

import "testing"

func TestMessageHeaderSequenceMonotonic(t *testing.T) {
	h1 := NewMessageHeader(TypePing, 1000, 1)
	h2 := NewMessageHeader(TypePing, 1000, 1)

	if h2.Sequence <= h1.Sequence {
		t.Errorf("Sequence not strictly increasing: %d then %d", h1.Sequence, h2.Sequence)
	}
}

func TestMessageHeaderIDDerivation(t *testing.T) {
	h := NewMessageHeader(TypePing, 42, 1)
	want := (uint64(42) << 20) | (h.Sequence & 0xFFFFF)
	if h.ID != want {
		t.Errorf("ID = %d, want %d", h.ID, want)
	}
}

func TestMessageTypeDiscriminants(t *testing.T) {
	tests := []struct {
		name string
		typ  MessageType
		want MessageType
	}{
		{"Snapshot", TypeSnapshot, 0},
		{"Delta", TypeDelta, 1},
		{"RequestSnapshot", TypeRequestSnapshot, 2},
		{"Ack", TypeAck, 3},
		{"Ping", TypePing, 4},
		{"Pong", TypePong, 5},
		{"SchemaSync", TypeSchemaSync, 6},
		{"Error", TypeError, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.typ != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.typ, tt.want)
			}
		})
	}
}

func TestNewSnapshotMessageMetadata(t *testing.T) {
	entities := []SerializedEntity{
		{ID: 1, Components: []SerializedComponent{
			{ID: "Position", Data: StructuredData(map[FieldID]FieldValue{"x": F64Value(1)})},
			{ID: "Velocity", Data: StructuredData(map[FieldID]FieldValue{"x": F64Value(0)})},
		}},
		{ID: 2, Components: nil},
	}

	msg := NewSnapshotMessage(entities, 100, 1.5, 1)

	if msg.Header.MsgType != TypeSnapshot {
		t.Fatalf("MsgType = %v, want TypeSnapshot", msg.Header.MsgType)
	}
	if msg.Payload.Snapshot.Metadata.EntityCount != 2 {
		t.Errorf("EntityCount = %d, want 2", msg.Payload.Snapshot.Metadata.EntityCount)
	}
	if msg.Payload.Snapshot.Metadata.ComponentCount != 2 {
		t.Errorf("ComponentCount = %d, want 2", msg.Payload.Snapshot.Metadata.ComponentCount)
	}
}

func TestNewDeltaMessageMetadata(t *testing.T) {
	changes := []DeltaChange{
		EntityAdded(1),
		ComponentAdded(1, "Position", StructuredData(nil)),
		EntityRemoved(2),
		ComponentUpdated(3, "Health", StructuredData(nil)),
	}

	msg := NewDeltaMessage(changes, 500, 1000, 1)

	meta := msg.Payload.Delta.Metadata
	if meta.ChangeCount != 4 {
		t.Errorf("ChangeCount = %d, want 4", meta.ChangeCount)
	}
	if meta.EntitiesAdded != 1 {
		t.Errorf("EntitiesAdded = %d, want 1", meta.EntitiesAdded)
	}
	if meta.EntitiesRemoved != 1 {
		t.Errorf("EntitiesRemoved = %d, want 1", meta.EntitiesRemoved)
	}
	if meta.ComponentsUpdated != 1 {
		t.Errorf("ComponentsUpdated = %d, want 1", meta.ComponentsUpdated)
	}
	if msg.Payload.Delta.BaseTimestampMs != 500 {
		t.Errorf("BaseTimestampMs = %d, want 500", msg.Payload.Delta.BaseTimestampMs)
	}
}
