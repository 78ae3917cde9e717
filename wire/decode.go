package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
)

// imageChannels carry raw frame bytes. Their payloads pass through as
// opaque base64; no structural decode is attempted.
var imageChannels = map[string]bool{
	ChannelCamera:    true,
	ChannelRoutedMap: true,
}

// IsImageChannel reports whether a channel carries opaque frame data.
func IsImageChannel(channel string) bool { return imageChannels[channel] }

// DecodePayload turns a raw broker message body into a structured
// value. Robots publish msgpack; older firmware publishes JSON, and a
// few diagnostic channels emit plain text, so the cascade is
// msgpack, then JSON, then UTF-8 string. Image channels short-circuit
// to base64. A body no branch can make sense of is an error; the
// caller degrades, it never halts ingest.
func DecodePayload(channel string, body []byte) (any, error) {
	if IsImageChannel(channel) {
		return base64.StdEncoding.EncodeToString(body), nil
	}
	if v, err := decodeMsgpack(body); err == nil {
		return normalize(v), nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return normalize(v), nil
	}
	if utf8.Valid(body) {
		return string(body), nil
	}
	return nil, fmt.Errorf("decode %s payload: not msgpack, json, or utf-8", channel)
}

// decodeMsgpack decodes one msgpack value and insists the body holds
// nothing else. Without the trailing check, short JSON or text bodies
// whose first byte happens to be a valid fixint would mis-decode.
func decodeMsgpack(body []byte) (any, error) {
	r := bytes.NewReader(body)
	dec := msgpack.NewDecoder(r)
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, fmt.Errorf("trailing data after msgpack value")
	}
	return v, nil
}

// normalize rewrites msgpack's map[interface{}]interface{} maps into
// map[string]any so downstream field lookups work uniformly.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

// Confirmation extracts the confirmation code from a decoded
// robot_status payload. Returns false when the payload is not a map or
// carries no numeric confirmation field.
func Confirmation(payload any) (int, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	return asInt(m["confirmation"])
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
