// Package tcp implements the TCP socket transport of dRPC. It provides concrete
// implementations of the base package's connector interfaces.
//
// See the base package documentation for the framing, correlation and worker
// pool shared by all transports.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Both ends disable Nagle's algorithm and enable keep-alive probes.
package tcp
