package compression

import (
	"testing"

	"github.com/opd-ai/worldlink/pkg/protocol"
	"github.com/opd-ai/worldlink/pkg/worldstate"
)

func positionSnapshot(x, y, timestamp float64) worldstate.WorldSnapshot {
	return worldstate.WorldSnapshot{
		Entities: []protocol.SerializedEntity{
			{
				ID: 1,
				Components: []protocol.SerializedComponent{
					{
						ID: "Position",
						Data: protocol.StructuredData(map[protocol.FieldID]protocol.FieldValue{
							"x": protocol.F64Value(x),
							"y": protocol.F64Value(y),
						}),
					},
				},
			},
		},
		Timestamp: timestamp,
		Version:   "1.0.0",
	}
}

func TestDeltaCompressionInitial(t *testing.T) {
	c := NewDeltaCompressor(true)
	snap := positionSnapshot(10, 20, 100)

	delta := c.CreateDelta(snap)

	if delta.BaseTimestamp != 0 {
		t.Errorf("BaseTimestamp = %v, want 0", delta.BaseTimestamp)
	}
	if len(delta.Changes) != 2 {
		t.Fatalf("len(Changes) = %d, want 2", len(delta.Changes))
	}
	if delta.Changes[0].Kind != protocol.EntityAddedChange || delta.Changes[0].Entity != 1 {
		t.Errorf("Changes[0] = %+v, want EntityAdded{1}", delta.Changes[0])
	}
	if delta.Changes[1].Kind != protocol.ComponentAddedChange || delta.Changes[1].Component != "Position" {
		t.Errorf("Changes[1] = %+v, want ComponentAdded{1,Position,...}", delta.Changes[1])
	}
}

func TestDeltaCompressionUpdate(t *testing.T) {
	c := NewDeltaCompressor(true)
	c.CreateDelta(positionSnapshot(10, 20, 100))

	delta := c.CreateDelta(positionSnapshot(15, 20, 200))

	if len(delta.Changes) != 1 {
		t.Fatalf("len(Changes) = %d, want 1", len(delta.Changes))
	}
	change := delta.Changes[0]
	if change.Kind != protocol.FieldsUpdatedChange {
		t.Fatalf("Kind = %v, want FieldsUpdatedChange", change.Kind)
	}
	if len(change.Fields) != 1 {
		t.Fatalf("len(Fields) = %d, want 1", len(change.Fields))
	}
	fd := change.Fields[0]
	if fd.FieldID != "x" {
		t.Errorf("FieldID = %q, want x", fd.FieldID)
	}
	if fd.OldValue == nil || fd.OldValue.F64 != 10 {
		t.Errorf("OldValue = %+v, want 10", fd.OldValue)
	}
	if fd.NewValue.F64 != 15 {
		t.Errorf("NewValue = %+v, want 15", fd.NewValue)
	}
}

func TestDeltaCompressionNoFieldCompression(t *testing.T) {
	c := NewDeltaCompressor(false)
	c.CreateDelta(positionSnapshot(10, 20, 100))

	delta := c.CreateDelta(positionSnapshot(15, 20, 200))

	if len(delta.Changes) != 1 {
		t.Fatalf("len(Changes) = %d, want 1", len(delta.Changes))
	}
	if delta.Changes[0].Kind != protocol.ComponentUpdatedChange {
		t.Errorf("Kind = %v, want ComponentUpdatedChange", delta.Changes[0].Kind)
	}
}

func TestEmptyDeltaLaw(t *testing.T) {
	c := NewDeltaCompressor(true)
	snap := positionSnapshot(10, 20, 100)

	c.CreateDelta(snap)
	delta := c.CreateDelta(snap)

	if len(delta.Changes) != 0 {
		t.Errorf("second create_delta on same snapshot: len(Changes) = %d, want 0", len(delta.Changes))
	}
}

func TestResetLaw(t *testing.T) {
	c := NewDeltaCompressor(true)
	snap := positionSnapshot(10, 20, 100)

	c.CreateDelta(snap)
	c.CreateDelta(positionSnapshot(99, 99, 200))
	c.Reset()

	delta := c.CreateDelta(snap)

	fresh := NewDeltaCompressor(true)
	want := fresh.CreateDelta(snap)

	if len(delta.Changes) != len(want.Changes) {
		t.Fatalf("after reset len(Changes) = %d, want %d", len(delta.Changes), len(want.Changes))
	}
	for i := range delta.Changes {
		if delta.Changes[i].Kind != want.Changes[i].Kind {
			t.Errorf("Changes[%d].Kind = %v, want %v", i, delta.Changes[i].Kind, want.Changes[i].Kind)
		}
	}
}

func TestEntityAddedRemoved(t *testing.T) {
	c := NewDeltaCompressor(true)
	c.CreateDelta(worldstate.WorldSnapshot{
		Entities: []protocol.SerializedEntity{{ID: 1}, {ID: 2}},
	})

	delta := c.CreateDelta(worldstate.WorldSnapshot{
		Entities: []protocol.SerializedEntity{{ID: 1}, {ID: 3}},
	})

	var addedIDs, removedIDs []protocol.EntityID
	for _, ch := range delta.Changes {
		switch ch.Kind {
		case protocol.EntityAddedChange:
			addedIDs = append(addedIDs, ch.Entity)
		case protocol.EntityRemovedChange:
			removedIDs = append(removedIDs, ch.Entity)
		}
	}

	if len(addedIDs) != 1 || addedIDs[0] != 3 {
		t.Errorf("added = %v, want [3]", addedIDs)
	}
	if len(removedIDs) != 1 || removedIDs[0] != 2 {
		t.Errorf("removed = %v, want [2]", removedIDs)
	}
}

func TestComponentVariantMismatchAlwaysUnequal(t *testing.T) {
	if componentsEqual(protocol.BinaryData([]byte("x")), protocol.JSONData("x")) {
		t.Error("mismatched variants should never be equal")
	}
}

func TestFieldCompressorJSONObjects(t *testing.T) {
	fc := NewFieldCompressor(true)
	prev := protocol.JSONData(`{"x":1,"y":2}`)
	curr := protocol.JSONData(`{"x":1,"y":3,"z":4}`)

	deltas := fc.ComputeFieldDeltas(prev, curr)
	if len(deltas) != 2 {
		t.Fatalf("len(deltas) = %d, want 2 (y changed, z added)", len(deltas))
	}
}

func TestFieldCompressorDisabled(t *testing.T) {
	fc := NewFieldCompressor(false)
	prev := protocol.StructuredData(map[protocol.FieldID]protocol.FieldValue{"x": protocol.I64Value(1)})
	curr := protocol.StructuredData(map[protocol.FieldID]protocol.FieldValue{"x": protocol.I64Value(2)})

	if deltas := fc.ComputeFieldDeltas(prev, curr); deltas != nil {
		t.Errorf("disabled compressor returned %v, want nil", deltas)
	}
}

func TestFieldCompressorIncompatibleVariants(t *testing.T) {
	fc := NewFieldCompressor(true)
	prev := protocol.BinaryData([]byte("a"))
	curr := protocol.StructuredData(nil)

	if deltas := fc.ComputeFieldDeltas(prev, curr); deltas != nil {
		t.Errorf("incompatible variants returned %v, want nil", deltas)
	}
}
