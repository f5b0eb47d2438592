// Package unix implements a transport layer for dRPC using Unix domain sockets.
// It provides cheaper communication for processes running on the same machine.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting framing, response correlation and the worker pool from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners (removing stale socket files) and accepts connections
package unix
