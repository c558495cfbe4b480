// Package compression turns a sequence of world snapshots into minimal
// deltas, with optional field-level granularity.
package compression

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/worldlink/pkg/protocol"
	"github.com/opd-ai/worldlink/pkg/worldstate"
)

// FieldCompressor computes FieldDeltas between two components when
// fine-grained diffing is enabled and both sides are compatible.
type FieldCompressor struct {
	enabled bool
}

// NewFieldCompressor builds a FieldCompressor; enabled controls whether
// ComputeFieldDeltas ever returns a non-nil result.
func NewFieldCompressor(enabled bool) *FieldCompressor {
	return &FieldCompressor{enabled: enabled}
}

// ComputeFieldDeltas returns field-level deltas between prev and curr, or
// nil when field compression is disabled, the variants are incompatible,
// or (for JSON) either side does not parse as a JSON object.
func (f *FieldCompressor) ComputeFieldDeltas(prev, curr protocol.ComponentData) []protocol.FieldDelta {
	if !f.enabled {
		return nil
	}
	if prev.Kind != curr.Kind {
		return nil
	}
	switch curr.Kind {
	case protocol.ComponentStructured:
		return diffFieldMaps(prev.Structured, curr.Structured)
	case protocol.ComponentJSON:
		prevFields, ok1 := jsonObjectToFields(prev.JSON)
		currFields, ok2 := jsonObjectToFields(curr.JSON)
		if !ok1 || !ok2 {
			return nil
		}
		return diffFieldMaps(prevFields, currFields)
	default:
		return nil
	}
}

func diffFieldMaps(prev, curr map[protocol.FieldID]protocol.FieldValue) []protocol.FieldDelta {
	var deltas []protocol.FieldDelta
	for key, cv := range curr {
		if pv, ok := prev[key]; ok {
			if !pv.Equal(cv) {
				pvCopy := pv
				deltas = append(deltas, protocol.FieldDelta{FieldID: key, OldValue: &pvCopy, NewValue: cv})
			}
		} else {
			deltas = append(deltas, protocol.FieldDelta{FieldID: key, OldValue: nil, NewValue: cv})
		}
	}
	for key, pv := range prev {
		if _, ok := curr[key]; !ok {
			pvCopy := pv
			deltas = append(deltas, protocol.FieldDelta{FieldID: key, OldValue: &pvCopy, NewValue: protocol.NullValue()})
		}
	}
	return deltas
}

// DeltaCompressor turns a sequence of WorldSnapshots into a sequence of
// Deltas, each minimal with respect to the prior snapshot.
type DeltaCompressor struct {
	mu              sync.Mutex
	previousSnapshot *worldstate.WorldSnapshot
	fieldCompressor *FieldCompressor

	log *logrus.Entry
}

// NewDeltaCompressor builds a compressor with field-level diffing
// enabled or disabled per enableFieldCompression.
func NewDeltaCompressor(enableFieldCompression bool) *DeltaCompressor {
	return &DeltaCompressor{
		fieldCompressor: NewFieldCompressor(enableFieldCompression),
		log:             logrus.WithFields(logrus.Fields{"component": "delta_compressor"}),
	}
}

// CreateDelta diffs current against the stored previous snapshot (or
// emits an initial full-add delta on the first call), then stores
// current as the new previous snapshot.
func (c *DeltaCompressor) CreateDelta(current worldstate.WorldSnapshot) worldstate.Delta {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changes []protocol.DeltaChange
	baseTimestamp := 0.0
	if c.previousSnapshot != nil {
		baseTimestamp = c.previousSnapshot.Timestamp
		changes = c.computeChanges(*c.previousSnapshot, current)
	} else {
		changes = createInitialDelta(current)
	}

	c.log.WithFields(logrus.Fields{
		"change_count": len(changes),
		"base_timestamp": baseTimestamp,
	}).Debug("created delta")

	prev := current
	c.previousSnapshot = &prev

	return worldstate.Delta{
		Changes:       changes,
		Timestamp:     current.Timestamp,
		BaseTimestamp: baseTimestamp,
	}
}

// createInitialDelta emits EntityAdded followed by one ComponentAdded per
// component, in entity-insertion then component-insertion order.
func createInitialDelta(current worldstate.WorldSnapshot) []protocol.DeltaChange {
	var changes []protocol.DeltaChange
	for _, e := range current.Entities {
		changes = append(changes, protocol.EntityAdded(e.ID))
		for _, comp := range e.Components {
			changes = append(changes, protocol.ComponentAdded(e.ID, comp.ID, comp.Data))
		}
	}
	return changes
}

func (c *DeltaCompressor) computeChanges(prev, curr worldstate.WorldSnapshot) []protocol.DeltaChange {
	prevEntities := prev.IndexByID()
	currEntities := curr.IndexByID()

	var changes []protocol.DeltaChange

	for _, e := range curr.Entities {
		prevEntity, existed := prevEntities[e.ID]
		if !existed {
			changes = append(changes, protocol.EntityAdded(e.ID))
			for _, comp := range e.Components {
				changes = append(changes, protocol.ComponentAdded(e.ID, comp.ID, comp.Data))
			}
			continue
		}
		changes = append(changes, c.computeComponentChanges(e.ID, prevEntity, e)...)
	}

	for id := range prevEntities {
		if _, stillPresent := currEntities[id]; !stillPresent {
			changes = append(changes, protocol.EntityRemoved(id))
		}
	}

	return changes
}

func (c *DeltaCompressor) computeComponentChanges(entityID protocol.EntityID, prevEntity, currEntity protocol.SerializedEntity) []protocol.DeltaChange {
	prevComponents := indexComponents(prevEntity.Components)
	currComponents := indexComponents(currEntity.Components)

	var changes []protocol.DeltaChange

	for _, comp := range currEntity.Components {
		prevComp, existed := prevComponents[comp.ID]
		if !existed {
			changes = append(changes, protocol.ComponentAdded(entityID, comp.ID, comp.Data))
			continue
		}
		if componentsEqual(prevComp, comp.Data) {
			continue
		}
		if fieldDeltas := c.fieldCompressor.ComputeFieldDeltas(prevComp, comp.Data); len(fieldDeltas) > 0 {
			changes = append(changes, protocol.FieldsUpdated(entityID, comp.ID, fieldDeltas))
		} else {
			changes = append(changes, protocol.ComponentUpdated(entityID, comp.ID, comp.Data))
		}
	}

	for id := range prevComponents {
		if _, stillPresent := currComponents[id]; !stillPresent {
			changes = append(changes, protocol.ComponentRemoved(entityID, id))
		}
	}

	return changes
}

func indexComponents(components []protocol.SerializedComponent) map[protocol.ComponentID]protocol.ComponentData {
	idx := make(map[protocol.ComponentID]protocol.ComponentData, len(components))
	for _, comp := range components {
		idx[comp.ID] = comp.Data
	}
	return idx
}

// componentsEqual reports whether two ComponentData values are equal: a
// mismatch of variants is always unequal, with no field-level diff
// possible.
func componentsEqual(a, b protocol.ComponentData) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case protocol.ComponentBinary:
		if len(a.Binary) != len(b.Binary) {
			return false
		}
		for i := range a.Binary {
			if a.Binary[i] != b.Binary[i] {
				return false
			}
		}
		return true
	case protocol.ComponentJSON:
		return a.JSON == b.JSON
	case protocol.ComponentStructured:
		if len(a.Structured) != len(b.Structured) {
			return false
		}
		for k, av := range a.Structured {
			bv, ok := b.Structured[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Reset drops the stored previous snapshot. The next CreateDelta call
// behaves as if called on a fresh compressor.
func (c *DeltaCompressor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previousSnapshot = nil
	c.log.Debug("reset previous snapshot")
}

// PreviousSnapshot returns the stored previous snapshot, or nil if none.
func (c *DeltaCompressor) PreviousSnapshot() *worldstate.WorldSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previousSnapshot
}
