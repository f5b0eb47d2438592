package client

import (
	"context"
	"reflect"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/protocol"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/cockroachdb/errors"
)

// Client invokes remote methods over a single transport. It is safe for
// concurrent use, all calls share the connection of the transport.
type Client struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
	stats     *Stats
}

// NewClient creates a client. Requests are encoded with config.Serializer.
// Connect must be called before the first call.
func NewClient(config common.ClientConfig, transport transport.IRPCClientTransport) *Client {
	return &Client{
		config:    config,
		transport: transport,
		stats:     newStats(),
	}
}

// Connect establishes the connection to config.Endpoint
func (c *Client) Connect() error {
	return c.transport.Connect(c.config)
}

// Close closes the connection and fails all pending calls
func (c *Client) Close() error {
	return c.transport.Close()
}

// Pending returns the number of calls waiting for a response
func (c *Client) Pending() int {
	return c.transport.Pending()
}

// Stats returns the call statistics
func (c *Client) Stats() *Stats {
	return c.stats
}

// Invoke calls method on the remote interface iface and returns the result
// converted to the declared return type (nil for void methods).
//
// The call fails with common.ErrTimeout if no response arrives before ctx
// expires or, if ctx has no deadline, within config.TimeoutSecond. A failure
// reported by the server is returned as *common.RemoteError, which matches
// the sentinels of the error taxonomy with errors.Is.
func (c *Client) Invoke(ctx context.Context, iface string, method common.MethodDescriptor, args ...any) (any, error) {
	if len(args) != len(method.ParamTypes) {
		return nil, errors.Wrapf(common.ErrSerialization, "%s expects %d arguments, got %d",
			method.Signature(), len(method.ParamTypes), len(args))
	}

	if _, ok := ctx.Deadline(); !ok && c.config.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.config.TimeoutSecond)*time.Second)
		defer cancel()
	}

	req := common.NewRequest(protocol.NextSequenceID(), iface, method, args...)

	start := time.Now()
	resp, err := c.transport.Call(ctx, c.config.Serializer, req)
	if err != nil {
		c.stats.failures.Inc(1)
		if errors.Is(err, common.ErrTimeout) {
			c.stats.timeouts.Inc(1)
		}
		return nil, err
	}
	c.stats.calls.UpdateSince(start)

	if resp.Failed() {
		c.stats.remote.Inc(1)
		return nil, resp.Error
	}

	value, err := common.Coerce(resp.ReturnValue, method.ReturnType)
	if err != nil {
		return nil, errors.Wrapf(err, "return value of %s.%s", iface, method.Signature())
	}
	return value, nil
}

// Call is the typed form of Invoke
func Call[T any](ctx context.Context, c *Client, iface string, method common.MethodDescriptor, args ...any) (T, error) {
	var zero T
	value, err := c.Invoke(ctx, iface, method, args...)
	if err != nil || value == nil {
		return zero, err
	}
	result, ok := value.(T)
	if !ok {
		return zero, errors.Wrapf(common.ErrSerialization, "%s.%s returned %T, expected %s",
			iface, method.Signature(), value, reflect.TypeOf((*T)(nil)).Elem())
	}
	return result, nil
}
