package base

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/protocol"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	connectionsTotal     = metrics.NewCounter("drpc_server_connections_total")
	framesDiscardedTotal = metrics.NewCounter("drpc_server_frames_discarded_total")
	framesOversizeTotal  = metrics.NewCounter("drpc_server_frames_oversize_total")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig
	codec     *protocol.Codec

	listenerMu sync.Mutex
	listener   net.Listener

	conns    *xsync.MapOf[string, net.Conn] // Open connections by connection id
	connsWg  sync.WaitGroup
	closing  atomic.Bool
	ctx      context.Context // Cancelled when Shutdown gives up waiting
	cancelFn context.CancelFunc
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[string, net.Conn](),
		ctx:       ctx,
		cancelFn:  cancel,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}
	t.config = config
	t.codec = protocol.NewCodec(config.FrameLimit())

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return errors.Wrapf(common.ErrConnection, "failed to create listener: %v", err)
	}
	t.listenerMu.Lock()
	t.listener = listener
	t.listenerMu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), config.Workers())

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closing.Load() {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				Logger.Warningf("Accept error: %v", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return errors.Wrapf(common.ErrConnection, "accept failed: %v", err)
		}

		// Handle the connection in a goroutine
		t.connsWg.Add(1)
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) Addr() net.Addr {
	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()

	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) Shutdown(timeout time.Duration) error {
	if !t.closing.CompareAndSwap(false, true) {
		return nil
	}

	t.listenerMu.Lock()
	if t.listener != nil {
		_ = t.listener.Close()
	}
	t.listenerMu.Unlock()

	// Unblock all readers, in-flight requests are still answered
	t.conns.Range(func(_ string, conn net.Conn) bool {
		_ = conn.SetReadDeadline(time.Now())
		return true
	})

	done := make(chan struct{})
	go func() {
		t.connsWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.cancelFn()
		Logger.Infof("Server stopped gracefully")
		return nil
	case <-time.After(timeout):
		// Cancel running handlers and drop the connections
		t.cancelFn()
		t.conns.Range(func(_ string, conn net.Conn) bool {
			_ = conn.Close()
			return true
		})
		return errors.Newf("shutdown timed out after %s with open connections", timeout)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection handles incoming requests for one connection
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer t.connsWg.Done()

	connID := uuid.NewString()
	t.conns.Store(connID, conn)
	defer t.conns.Delete(connID)
	defer conn.Close()
	connectionsTotal.Inc()

	if err := t.connector.UpgradeConnection(conn); err != nil {
		Logger.Errorf("[%s] Failed to upgrade connection from %s: %v", connID, conn.RemoteAddr(), err)
		return
	}
	Logger.Debugf("[%s] Accepted connection from %s", connID, conn.RemoteAddr())

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// Create a semaphore to limit concurrent workers for this connection
	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.config.Workers())

	// Create a wait group to wait for all workers to finish
	var wg sync.WaitGroup

	// Create a mutex to protect writes to the connection
	var connMutex sync.Mutex

	// Handler function that processes requests in worker goroutines
	handleResponse := func(alg common.SerializerAlgorithm, req *common.RequestMessage) {
		// When done, release the semaphore and mark worker as done
		defer func() {
			<-workerSemaphore // Release semaphore slot
			wg.Done()         // Mark worker as done
		}()

		// Process the request
		start := time.Now()
		resp := t.handler(t.ctx, req)
		if resp == nil {
			resp = common.NewErrorResponse(req.SequenceID, errors.Wrap(common.ErrRemoteInvocation, "handler returned no response"))
		}
		resp.SequenceID = req.SequenceID
		Logger.Debugf("[%s] Processed %s.%s with sequence id %d took %s",
			connID, req.InterfaceName, req.MethodName, req.SequenceID, time.Since(start))

		// The response uses the serializer of the request
		frame, err := t.codec.Encode(resp, alg)
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			Logger.Warningf("[%s] Response to %d exceeds the frame limit: %v", connID, req.SequenceID, err)
			frame, err = t.codec.Encode(common.NewErrorResponse(req.SequenceID, &common.RemoteError{
				Kind:    common.KindFraming,
				Message: "response exceeds the frame size limit",
			}), alg)
		}
		if err != nil {
			Logger.Errorf("[%s] Failed to encode response to %d: %v", connID, req.SequenceID, err)
			return
		}

		// Protect writes to the connection with a mutex
		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("[%s] Failed to set write deadline: %v", connID, err)
				return
			}
		}

		// Write the response with the same sequence id
		if err := protocol.WriteFrame(conn, frame); err != nil {
			Logger.Errorf("[%s] Failed to write response: %v", connID, err)
		}
	}

	// Function to handle incoming requests
	handleRequest := func() error {
		if timeout > 0 && !t.closing.Load() {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				return errors.Wrap(err, "failed to set read deadline")
			}
			// Shutdown may have expired the deadline between the check and the set
			if t.closing.Load() {
				_ = conn.SetReadDeadline(time.Now())
			}
		}

		// Read one complete frame
		frame, err := protocol.ReadFrame(conn, t.codec.MaxFrameSize())
		if err != nil {
			return err
		}

		// Malformed frames are discarded, the connection stays usable
		header, msg, err := t.codec.DecodeWithHeader(frame)
		if err != nil {
			framesDiscardedTotal.Inc()
			Logger.Warningf("[%s] Discarding frame: %v", connID, err)
			return nil
		}
		req, ok := msg.(*common.RequestMessage)
		if !ok {
			framesDiscardedTotal.Inc()
			Logger.Warningf("[%s] Discarding unexpected %s frame with sequence id %d", connID, msg.Type(), msg.SeqID())
			return nil
		}

		// Acquire a slot in the semaphore (blocks if the worker limit is reached)
		workerSemaphore <- struct{}{}

		// Increment the wait group counter
		wg.Add(1)

		// Process in a goroutine
		go handleResponse(header.Serializer, req)

		return nil
	}

	// Handle requests in a loop
	for {
		// Handle request
		err := handleRequest()
		if err == nil {
			continue
		}

		switch {
		// Case shutdown: stop reading, answer in-flight requests
		case t.closing.Load():
			Logger.Debugf("[%s] Stop reading due to shutdown", connID)

		// Case EOF: Connection closed by client
		case errors.Is(err, io.EOF):
			Logger.Infof("[%s] Connection closed by client", connID)

		// Case oversize: the stream can not be resynchronized
		case errors.Is(err, protocol.ErrFrameTooLarge):
			framesOversizeTotal.Inc()
			Logger.Errorf("[%s] Closing connection: %v", connID, err)

		// Case error: log and close connection
		default:
			Logger.Errorf("[%s] Error handling request: %v", connID, err)
		}
		break
	}

	// Wait for all workers to finish before closing the connection
	// This ensures we don't lose any in-progress work
	wg.Wait()
}
