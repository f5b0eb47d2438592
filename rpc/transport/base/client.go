package base

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/protocol"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientConnection represents a single net connection and the calls in flight on it
type clientConnection struct {
	conn     net.Conn
	endpoint string
	codec    *protocol.Codec
	writeMu  sync.Mutex // Protects writes to the connection
	pending  *Correlator
	done     chan struct{} // Closed when the reader goroutine exits
	parent   *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	connMu     sync.Mutex // Protects config, conn, configured and closed
	conn       *clientConnection
	configured bool
	closed     bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return errors.Wrap(common.ErrConnection, "no endpoint provided")
	}

	t.connMu.Lock()
	defer t.connMu.Unlock()

	// Store the config, a repeated Connect replaces the old connection
	t.config = config
	t.configured = true
	t.closed = false
	if t.conn != nil {
		t.conn.close(errors.Wrap(common.ErrConnection, "connection replaced"))
		t.conn = nil
	}

	conn, err := t.dial()
	if err != nil {
		return err
	}
	t.conn = conn

	Logger.Infof("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Call(ctx context.Context, alg common.SerializerAlgorithm, req *common.RequestMessage) (*common.ResponseMessage, error) {
	conn, err := t.connection()
	if err != nil {
		return nil, err
	}

	// Register before writing, the response may arrive before Write returns
	call, err := conn.pending.Register(req.SequenceID)
	if err != nil {
		return nil, errors.Wrapf(common.ErrConnection, "%v", err)
	}

	frame, err := conn.codec.Encode(req, alg)
	if err != nil {
		conn.pending.Abandon(req.SequenceID, err)
		return nil, err
	}

	if err := conn.write(ctx, frame); err != nil {
		lost := errors.Wrapf(common.ErrConnection, "failed to send request %d: %v", req.SequenceID, err)
		conn.close(lost)
		return nil, lost
	}

	// Wait for response, timeout or cancellation
	resp, err := call.Wait(ctx)
	if err == nil {
		return resp, nil
	}
	cause := err
	if errors.Is(err, context.DeadlineExceeded) {
		cause = errors.Wrapf(common.ErrTimeout, "no response for %s.%s (sequence id %d)",
			req.InterfaceName, req.MethodName, req.SequenceID)
	}
	if !conn.pending.Abandon(req.SequenceID, cause) {
		// completed by the reader or a closing connection in the meantime
		<-call.Done()
		return call.resp, call.err
	}
	return nil, cause
}

func (t *clientTransport) Pending() int {
	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()

	if conn == nil {
		return 0
	}
	return conn.pending.Len()
}

func (t *clientTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	t.closed = true
	if t.conn != nil {
		t.conn.close(errors.Wrap(common.ErrConnection, "client closed"))
		t.conn = nil
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// connection returns the live connection. A lost connection is re-dialled if
// AutoReconnect is set, otherwise ErrConnection is returned.
func (t *clientTransport) connection() (*clientConnection, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}
	if !t.configured {
		return nil, errors.Wrap(common.ErrConnection, "not connected, call Connect first")
	}
	if t.closed || !t.config.AutoReconnect {
		return nil, errors.Wrapf(common.ErrConnection, "not connected to %s", t.config.Endpoint)
	}

	Logger.Infof("Reconnecting to %s", t.config.Endpoint)
	conn, err := t.dial()
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return conn, nil
}

// dial opens and upgrades a new connection and starts its reader, connMu must be held
func (t *clientTransport) dial() (*clientConnection, error) {
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	netConn, err := t.connector.Connect(t.config.Endpoint, timeout)
	if err != nil {
		return nil, errors.Wrapf(common.ErrConnection, "failed to connect to %s: %v", t.config.Endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(netConn); err != nil {
		_ = netConn.Close()
		return nil, errors.Wrapf(common.ErrConnection, "failed to upgrade connection to %s: %v", t.config.Endpoint, err)
	}

	conn := &clientConnection{
		conn:     netConn,
		endpoint: t.config.Endpoint,
		codec:    protocol.NewCodec(t.config.FrameLimit()),
		pending:  NewCorrelator(),
		done:     make(chan struct{}),
		parent:   t,
	}
	go conn.readResponses()
	return conn, nil
}

// forget removes c as the current connection if it still is
func (t *clientTransport) forget(c *clientConnection) {
	t.connMu.Lock()
	if t.conn == c {
		t.conn = nil
	}
	t.connMu.Unlock()
}

// write sends one frame, honouring the deadline of ctx
func (c *clientConnection) write(ctx context.Context, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return protocol.WriteFrame(c.conn, frame)
}

// close closes the socket and fails every pending call with cause
func (c *clientConnection) close(cause error) {
	_ = c.conn.Close()
	if failed := c.pending.FailAll(cause); failed > 0 {
		Logger.Warningf("Failed %d pending calls: %v", failed, cause)
	}
}

// readResponses reads responses in a loop and distributes them to waiting calls
func (c *clientConnection) readResponses() {
	defer close(c.done)

	for {
		frame, err := protocol.ReadFrame(c.conn, c.codec.MaxFrameSize())
		if err != nil {
			// the stream is unusable, every pending call is lost
			c.parent.forget(c)
			if errors.Is(err, net.ErrClosed) {
				c.close(errors.Wrap(common.ErrConnection, "connection closed"))
				return
			}
			Logger.Errorf("Connection to %s lost: %v", c.endpoint, err)
			c.close(errors.Wrapf(common.ErrConnection, "connection lost: %v", err))
			return
		}

		header, msg, err := c.codec.DecodeWithHeader(frame)
		if err != nil {
			// an intact response header still names the waiting call
			if errors.Is(err, common.ErrSerialization) && header.MessageType == common.MsgTResponse &&
				c.pending.Abandon(header.SeqID, err) {
				Logger.Warningf("Failed to decode response %d: %v", header.SeqID, err)
				continue
			}
			Logger.Warningf("Discarding malformed frame: %v", err)
			continue
		}

		resp, ok := msg.(*common.ResponseMessage)
		if !ok {
			Logger.Warningf("Discarding unexpected %s frame with sequence id %d", msg.Type(), msg.SeqID())
			continue
		}
		c.pending.Resolve(resp)
	}
}
