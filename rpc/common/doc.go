// Package common provides core data structures and utilities shared across
// the dRPC system. It defines the logical message model, the type descriptors
// used to describe method signatures, the error taxonomy, configuration
// structures and the logging setup used by the other packages.
//
// The package focuses on:
//   - Message model for requests and responses exchanged between endpoints
//   - Type descriptors and value coercion to declared types
//   - A portable, structured error value that survives the network boundary
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with the Dragonboat logger
//
// Key Components:
//
//   - Message: Interface implemented by RequestMessage and ResponseMessage.
//     The MessageType discriminant selects the decode target before any
//     payload is deserialized.
//
//   - MethodDescriptor: Compile-time description of a remote method (name,
//     parameter type descriptors and return type descriptor). Client stubs
//     and server adapters share the same descriptors.
//
//   - TypeDescriptor: Portable name of a Go type. Custom types are made known
//     with RegisterType, which also registers them with encoding/gob.
//
//   - RemoteError: Structured error (kind, message, stack summary) carried in
//     a ResponseMessage. errors.Is maps its kind to the taxonomy sentinels
//     (ErrServiceNotFound, ErrMethodNotFound, ...).
//
//   - ServerConfig / ClientConfig: Runtime configuration of the two sides.
//
//   - ConfigSource: Key/value accessor for process configuration with the
//     defaults 127.0.0.1, 8080, 8080 and the structured-object serializer.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
