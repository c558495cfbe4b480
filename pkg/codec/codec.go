// Package codec provides the byte encodings the core treats as
// interchangeable: a symmetric encode/decode contract for Message,
// WorldSnapshot, Delta, and SerializedComponent, plus stream framing.
package codec

import (
	"github.com/opd-ai/worldlink/pkg/protocol"
	"github.com/opd-ai/worldlink/pkg/worldstate"
)

// Format names a concrete Codec implementation, the Go analogue of the
// original BinaryFormat enum. Only JSON and Gob are implemented; see
// SPEC_FULL.md for why no MessagePack/bincode codec is wired in.
type Format uint8

const (
	FormatJSON Format = iota
	FormatGob
)

// Codec is the symmetric encode/decode contract the core consumes. A
// codec must round-trip every value defined by pkg/protocol and
// pkg/worldstate exactly, modulo the numeric-narrowing rule applied by
// pkg/compression's field-level JSON diffing.
type Codec interface {
	Format() Format
	EncodeMessage(m protocol.Message) ([]byte, error)
	DecodeMessage(data []byte) (protocol.Message, error)
	EncodeSnapshot(s worldstate.WorldSnapshot) ([]byte, error)
	DecodeSnapshot(data []byte) (worldstate.WorldSnapshot, error)
	EncodeDelta(d worldstate.Delta) ([]byte, error)
	DecodeDelta(data []byte) (worldstate.Delta, error)
	EncodeComponent(c protocol.SerializedComponent) ([]byte, error)
	DecodeComponent(data []byte) (protocol.SerializedComponent, error)
}

// New builds the Codec for the given format.
func New(format Format) Codec {
	switch format {
	case FormatGob:
		return &gobCodec{}
	default:
		return &jsonCodec{}
	}
}
