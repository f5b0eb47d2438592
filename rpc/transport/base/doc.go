// Package base provides the foundation for all dRPC transports, implementing the
// connection level protocol independent of the specific network (TCP, Unix sockets).
// It is extended with protocol-specific connectors.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Keeps one connection per endpoint shared by all calls. A
//     reader goroutine decodes response frames and hands them to the Correlator.
//     Losing the connection fails every pending call with common.ErrConnection,
//     the next call re-dials if AutoReconnect is configured.
//
//   - Correlator/PendingCall: Matches responses to requests by sequence id. Every
//     pending call is completed exactly once (resolved, failed or timed out) and
//     removed from the correlator. Responses for unknown ids are logged and dropped.
//
//   - serverTransport: Accepts connections and runs decoded requests on a bounded
//     per-connection worker pool. Responses are written under a per-connection mutex
//     in completion order, encoded with the serializer of the request.
//
// Error Handling on the server:
//
//   - A frame larger than the configured limit closes the connection.
//   - A frame with a bad header, unknown serializer or unknown message type is
//     logged and discarded, later frames on the same connection are processed.
//
// Thread Safety:
//
//	All public methods are thread-safe. Writes to a connection are serialized by a
//	mutex, reads happen on a single goroutine per connection.
package base
