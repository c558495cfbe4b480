package compression

import (
	"encoding/json"
	"math"

	"github.com/opd-ai/worldlink/pkg/protocol"
)

// jsonObjectToFields parses raw as JSON and, if it decodes to an object,
// converts it to a FieldID->FieldValue map. The second return is false
// when raw does not parse or does not decode to a JSON object.
func jsonObjectToFields(raw string) (map[protocol.FieldID]protocol.FieldValue, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	fields := make(map[protocol.FieldID]protocol.FieldValue, len(obj))
	for k, val := range obj {
		fields[k] = jsonValueToFieldValue(val)
	}
	return fields, true
}

// jsonValueToFieldValue converts a decoded JSON value to a FieldValue,
// narrowing numbers to I64 if exactly representable as a signed integer,
// else U64 if exactly representable as unsigned, else F64. Numbers
// outside i64/u64/f64 precision fall through to F64 (float64 is already
// the decoder's native number type, so no further narrowing is lossy
// beyond what json.Unmarshal already performed).
func jsonValueToFieldValue(v interface{}) protocol.FieldValue {
	switch t := v.(type) {
	case nil:
		return protocol.NullValue()
	case bool:
		return protocol.BoolValue(t)
	case float64:
		return numberToFieldValue(t)
	case string:
		return protocol.StringValue(t)
	case []interface{}:
		arr := make([]protocol.FieldValue, len(t))
		for i, elem := range t {
			arr[i] = jsonValueToFieldValue(elem)
		}
		return protocol.ArrayValue(arr)
	case map[string]interface{}:
		m := make(map[string]protocol.FieldValue, len(t))
		for k, elem := range t {
			m[k] = jsonValueToFieldValue(elem)
		}
		return protocol.MapValue(m)
	default:
		return protocol.NullValue()
	}
}

func numberToFieldValue(n float64) protocol.FieldValue {
	if n == math.Trunc(n) {
		if n >= math.MinInt64 && n < math.MaxInt64 {
			return protocol.I64Value(int64(n))
		}
		if n >= 0 && n < math.MaxUint64 {
			return protocol.U64Value(uint64(n))
		}
	}
	return protocol.F64Value(n)
}
