package transport

import (
	"context"
	"net"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It must always return a response, the transport sets its sequence id to the one of the request
type ServerHandleFunc func(ctx context.Context, req *common.RequestMessage) *common.ResponseMessage

// IRPCServerTransport is the interface for the RPC transport layer
// It must accept a ServerConfig as a parameter
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called concurrently for every decoded request
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves incoming connections
	// It blocks until Shutdown is called or the listener fails
	Listen(config common.ServerConfig) error
	// Addr returns the listen address, nil before Listen has bound the socket
	Addr() net.Addr
	// Shutdown stops accepting connections and requests and waits up to
	// timeout for in-flight requests before closing all connections
	Shutdown(timeout time.Duration) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration and
	// establishes the connection shared by all calls
	Connect(config common.ClientConfig) error
	// Call sends req encoded with alg and waits for the matching response.
	// It fails with common.ErrTimeout once ctx expires and with
	// common.ErrConnection if the connection is missing or lost.
	Call(ctx context.Context, alg common.SerializerAlgorithm, req *common.RequestMessage) (*common.ResponseMessage, error)
	// Pending returns the number of calls waiting for a response
	Pending() int
	// Close closes the transport connection and fails all pending calls
	Close() error
}
