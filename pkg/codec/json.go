package codec

import (
	"encoding/json"

	"github.com/opd-ai/worldlink/pkg/protocol"
	"github.com/opd-ai/worldlink/pkg/worldstate"
)

type jsonCodec struct{}

func (j *jsonCodec) Format() Format { return FormatJSON }

func (j *jsonCodec) EncodeMessage(m protocol.Message) ([]byte, error) {
	return json.Marshal(m)
}

func (j *jsonCodec) DecodeMessage(data []byte) (protocol.Message, error) {
	var m protocol.Message
	err := json.Unmarshal(data, &m)
	return m, err
}

func (j *jsonCodec) EncodeSnapshot(s worldstate.WorldSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func (j *jsonCodec) DecodeSnapshot(data []byte) (worldstate.WorldSnapshot, error) {
	var s worldstate.WorldSnapshot
	err := json.Unmarshal(data, &s)
	return s, err
}

func (j *jsonCodec) EncodeDelta(d worldstate.Delta) ([]byte, error) {
	return json.Marshal(d)
}

func (j *jsonCodec) DecodeDelta(data []byte) (worldstate.Delta, error) {
	var d worldstate.Delta
	err := json.Unmarshal(data, &d)
	return d, err
}

func (j *jsonCodec) EncodeComponent(c protocol.SerializedComponent) ([]byte, error) {
	return json.Marshal(c)
}

func (j *jsonCodec) DecodeComponent(data []byte) (protocol.SerializedComponent, error) {
	var c protocol.SerializedComponent
	err := json.Unmarshal(data, &c)
	return c, err
}
