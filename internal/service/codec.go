package service

import "encoding/json"

// JSONCodec encodes RPC messages as plain JSON. It is registered under the
// "json" name, so it serves application/json and application/connect+json
// requests in place of the protobuf JSON codec.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (JSONCodec) Unmarshal(data []byte, message any) error {
	return json.Unmarshal(data, message)
}
