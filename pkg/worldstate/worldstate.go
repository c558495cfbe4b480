// Package worldstate holds the snapshot and delta payload types a
// producer and the DeltaCompressor exchange, separate from the wire
// envelope types in pkg/protocol.
package worldstate

import "github.com/opd-ai/worldlink/pkg/protocol"

// WorldSnapshot is a complete, self-contained world state at a timestamp.
// Entity order is not significant for diffing; it is preserved only in
// the wire encoding.
type WorldSnapshot struct {
	Entities  []protocol.SerializedEntity `json:"entities"`
	Timestamp float64                     `json:"timestamp"`
	Version   string                      `json:"version"`
}

// IndexByID maps each entity's ID to itself. When the snapshot contains
// duplicate EntityIds, later entries overwrite earlier ones — deterministic
// but producers should ensure uniqueness.
func (s WorldSnapshot) IndexByID() map[protocol.EntityID]protocol.SerializedEntity {
	idx := make(map[protocol.EntityID]protocol.SerializedEntity, len(s.Entities))
	for _, e := range s.Entities {
		idx[e.ID] = e
	}
	return idx
}

// Delta is a minimal description of the changes between two snapshots.
type Delta struct {
	Changes       []protocol.DeltaChange `json:"changes"`
	Timestamp     float64                `json:"timestamp"`
	BaseTimestamp float64                `json:"base_timestamp"`
}
