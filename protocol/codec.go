package protocol

import "encoding/json"

// jsonCodec is a grpc.Codec/grpc.Encoding.Codec implementation that encodes
// RPC messages as JSON rather than protobuf wire format. spec.md §1 places
// wire encoding explicitly out of scope ("assumed: a schema-defined RPC
// transport"); this codec is the minimal concrete choice that lets the
// adapter and dispatcher sit on genuine gRPC server/client plumbing without
// a protoc step, while keeping the hand-written message types in this
// package as plain Go structs instead of generated proto.Message types.
type jsonCodec struct{}

// Name implements encoding.Codec and grpc.Codec.
func (jsonCodec) Name() string { return "json" }

// Marshal implements encoding.Codec and grpc.Codec.
func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements encoding.Codec and grpc.Codec.
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// Codec returns the shared JSON codec used by both the server (via
// grpc.ForceServerCodec) and client (via grpc.ForceCodec) sides of the
// Membership service.
func Codec() jsonCodec { return jsonCodec{} }
