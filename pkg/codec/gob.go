package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/opd-ai/worldlink/pkg/protocol"
	"github.com/opd-ai/worldlink/pkg/worldstate"
)

type gobCodec struct{}

func (g *gobCodec) Format() Format { return FormatGob }

func (g *gobCodec) EncodeMessage(m protocol.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *gobCodec) DecodeMessage(data []byte) (protocol.Message, error) {
	var m protocol.Message
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m)
	return m, err
}

func (g *gobCodec) EncodeSnapshot(s worldstate.WorldSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *gobCodec) DecodeSnapshot(data []byte) (worldstate.WorldSnapshot, error) {
	var s worldstate.WorldSnapshot
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s)
	return s, err
}

func (g *gobCodec) EncodeDelta(d worldstate.Delta) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *gobCodec) DecodeDelta(data []byte) (worldstate.Delta, error) {
	var d worldstate.Delta
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d)
	return d, err
}

func (g *gobCodec) EncodeComponent(c protocol.SerializedComponent) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *gobCodec) DecodeComponent(data []byte) (protocol.SerializedComponent, error) {
	var c protocol.SerializedComponent
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c)
	return c, err
}
