// Package rpc provides a minimal framework for remote procedure calls.
// Calls travel as length-prefixed frames over one long-lived connection and
// are correlated with their responses by sequence id, so many calls may be
// in flight at once.
//
// The package is organized into several subpackages:
//
//   - common: Message model, type descriptors, error taxonomy, configuration and logging.
//
//   - protocol: The frame codec (16 byte header plus payload) and the sequence generator.
//
//   - serializer: Message serialization with multiple format options (object, JSON, binary)
//     selected per frame by the serializer id in the header.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets). The base package holds the connection handling and the
//     call correlator shared by both.
//
//   - client: The client stub, dynamic and typed invocation of remote methods.
//
//   - server: The service registry and the dispatcher that invokes registered methods.
package rpc
