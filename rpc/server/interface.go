package server

import (
	"net"
	"time"
)

// IRPCServer is the interface of an RPC server
type IRPCServer interface {
	// Register adds a service. Services may be added while the server is running.
	Register(desc *ServiceDesc) error

	// Registry returns the services known to the server
	Registry() *ServiceRegistry

	// Serve starts the transport and blocks until the server is shut down
	Serve() error

	// Addr returns the bound address or nil if the server is not listening yet
	Addr() net.Addr

	// Shutdown stops accepting connections and waits up to timeout for
	// in-flight requests to be answered
	Shutdown(timeout time.Duration) error
}
