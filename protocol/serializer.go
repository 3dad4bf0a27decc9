package protocol

import "encoding/json"

// Serializer defines the contract for encoding outbound requests and decoding inbound frames.
// This allows the wire format to be swapped (JSON, a faster JSON codec, etc.)
// without touching the reconciliation path.
type Serializer interface {
	// Marshal serializes a Go struct (e.g. SubscribeRequest) into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a Go struct.
	// v must be a pointer to the target struct.
	Unmarshal(data []byte, v any) error
}

// DefaultJSONSerializer uses encoding/json.
type DefaultJSONSerializer struct{}

func (DefaultJSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (DefaultJSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
