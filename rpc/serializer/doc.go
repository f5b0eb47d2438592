// Package serializer provides the pluggable payload encodings of the dRPC
// wire protocol. Every serializer is identified by the one byte id carried
// in the frame header, so both endpoints agree on the encoding per frame.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//     Deserialize always decodes into the empty target returned by common.NewMessage,
//     the concrete message type is therefore chosen before the payload is read.
//
//   - Registry (Register, Lookup, Default, ForName): maps header ids to serializers.
//     Unknown ids are reported as common.ErrSerialization.
//
//   - gobSerializerImpl (id 0, structured-object): Go's gob encoding. Preserves Go types,
//     custom types must be registered with common.RegisterType. This is the default.
//
//   - jsonSerializerImpl (id 1, text): human readable JSON. Numbers and structs lose their
//     Go type and are re-typed with common.Coerce by the receiver.
//
//   - binarySerializerImpl (id 2, compact-binary): custom flag based format. Only present
//     fields are written, primitive values are tagged natively and composite values are
//     embedded as msgpack blobs labelled with their type descriptor.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s, err := serializer.Lookup(header.Serializer)
//	msg, err := common.NewMessage(header.MessageType)
//	err = s.Deserialize(payload, msg)
package serializer
