// Package transport defines the interfaces and abstractions for RPC communication
// in dRPC. It provides a common contract that all transport implementations must
// fulfill, enabling protocol-agnostic communication.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request/response correlation.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and hands them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// The implementations live in the base package (framing, correlation, worker pool)
// and are specialized for TCP and Unix domain sockets by the tcp and unix packages.
package transport
