package protocol

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Payloads share their json tags with the msgpack form so one set of
// structs serves both encodings.
const structTag = "json"

func packPayload(v interface{}) (msgpack.RawMessage, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return msgpack.RawMessage(buf.Bytes()), nil
}

func unpackPayload(data msgpack.RawMessage, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag(structTag)
	return dec.Decode(v)
}
