// Package proto defines the wire messages and gRPC service descriptors
// for the worker's RPC surfaces (worker, control-plane, registry, and the
// client side of the handler's Invoke) without depending on generated protobuf code: messages are plain Go
// structs carrying JSON tags, and a codec named "proto" serializes them
// with encoding/json so a stock grpc-go client/server pair can carry
// them over HTTP/2 framing unmodified.
package proto

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "proto"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements encoding.Codec, registered under the name
// "proto" so grpc.CallContentSubtype("proto") selects it. Registering
// under that name replaces grpc-go's built-in protobuf codec for the
// whole process.
type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("proto codec: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("proto codec: unmarshal: %w", err)
	}
	return nil
}
