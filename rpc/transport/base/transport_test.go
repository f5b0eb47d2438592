package base

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/protocol"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Test connectors (plain loopback TCP)
// --------------------------------------------------------------------------

type testClientConnector struct{}

func (c *testClientConnector) GetName() string { return "test" }

func (c *testClientConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}

func (c *testClientConnector) UpgradeConnection(net.Conn) error { return nil }

type testServerConnector struct{}

func (c *testServerConnector) GetName() string { return "test" }

func (c *testServerConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", config.Endpoint)
}

func (c *testServerConnector) UpgradeConnection(net.Conn) error { return nil }

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

var echo = common.MethodDescriptor{
	Name:       "Echo",
	ParamTypes: []common.TypeDescriptor{common.TypeString},
	ReturnType: common.TypeString,
}

// echoHandler returns the first parameter. Parameters starting with "sleep"
// delay the response, "block" waits until release is closed.
func echoHandler(release <-chan struct{}) transport.ServerHandleFunc {
	return func(ctx context.Context, req *common.RequestMessage) *common.ResponseMessage {
		arg, _ := req.ParameterValues[0].(string)
		switch {
		case strings.HasPrefix(arg, "sleep"):
			time.Sleep(50 * time.Millisecond)
		case arg == "block":
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
		return common.NewSuccessResponse(req.SequenceID, arg)
	}
}

// startServer starts a server on a random loopback port and returns its address
func startServer(t *testing.T, handler transport.ServerHandleFunc, config common.ServerConfig) (transport.IRPCServerTransport, string) {
	t.Helper()
	config.Endpoint = "127.0.0.1:0"

	server := NewBaseServerTransport(&testServerConnector{})
	server.RegisterHandler(handler)
	go func() {
		if err := server.Listen(config); err != nil {
			t.Errorf("Listen failed: %v", err)
		}
	}()
	t.Cleanup(func() { _ = server.Shutdown(time.Second) })

	deadline := time.Now().Add(2 * time.Second)
	for server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("Server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return server, server.Addr().String()
}

// connectClient connects a client transport to addr
func connectClient(t *testing.T, addr string, autoReconnect bool) transport.IRPCClientTransport {
	t.Helper()
	client := NewBaseClientTransport(&testClientConnector{})
	if err := client.Connect(common.ClientConfig{Endpoint: addr, TimeoutSecond: 2, AutoReconnect: autoReconnect}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

var testSeq protocol.SequenceGenerator

func call(client transport.IRPCClientTransport, timeout time.Duration, arg string) (*common.ResponseMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Call(ctx, common.AlgBinary, common.NewRequest(testSeq.Next(), "IEcho", echo, arg))
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

// TestTransportRoundTrip tests a single call with every serializer
func TestTransportRoundTrip(t *testing.T) {
	_, addr := startServer(t, echoHandler(nil), common.ServerConfig{})
	client := connectClient(t, addr, false)

	for _, alg := range []common.SerializerAlgorithm{common.AlgObject, common.AlgJSON, common.AlgBinary} {
		seq := testSeq.Next()
		resp, err := client.Call(context.Background(), alg, common.NewRequest(seq, "IEcho", echo, "yanan"))
		if err != nil {
			t.Fatalf("%s: call failed: %v", alg, err)
		}
		if resp.SequenceID != seq || resp.ReturnValue != "yanan" {
			t.Errorf("%s: unexpected response %+v", alg, resp)
		}
	}
	if n := client.Pending(); n != 0 {
		t.Errorf("Expected no pending calls, got %d", n)
	}
}

// TestTransportConcurrentCalls tests that concurrent calls on one connection get their own responses
func TestTransportConcurrentCalls(t *testing.T) {
	_, addr := startServer(t, echoHandler(nil), common.ServerConfig{WorkersPerConn: 8})
	client := connectClient(t, addr, false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every other call is slow, so responses complete out of order
			arg := strings.Repeat("x", i+1)
			if i%2 == 0 {
				arg = "sleep" + arg
			}
			resp, err := call(client, 5*time.Second, arg)
			if err != nil {
				t.Errorf("Call %d failed: %v", i, err)
				return
			}
			if resp.ReturnValue != arg {
				t.Errorf("Call %d got response for %v", i, resp.ReturnValue)
			}
		}(i)
	}
	wg.Wait()

	if n := client.Pending(); n != 0 {
		t.Errorf("Expected no pending calls, got %d", n)
	}
}

// TestTransportTimeout tests that a missing response yields ErrTimeout and cleans up
func TestTransportTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	_, addr := startServer(t, echoHandler(release), common.ServerConfig{})
	client := connectClient(t, addr, false)

	start := time.Now()
	_, err := call(client, 100*time.Millisecond, "block")
	if !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Timeout took %s", elapsed)
	}
	if n := client.Pending(); n != 0 {
		t.Errorf("Expected timed out call to be removed, got %d pending", n)
	}

	// the connection stays usable
	if resp, err := call(client, time.Second, "after"); err != nil || resp.ReturnValue != "after" {
		t.Errorf("Call after timeout got %+v, %v", resp, err)
	}
}

// TestTransportNotConnected tests calls before Connect
func TestTransportNotConnected(t *testing.T) {
	client := NewBaseClientTransport(&testClientConnector{})
	_, err := call(client, time.Second, "x")
	if !errors.Is(err, common.ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", err)
	}
}

// TestTransportConnectionLoss tests that a lost connection fails pending calls
func TestTransportConnectionLoss(t *testing.T) {
	// a server that reads one frame and hangs up
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_, _ = protocol.ReadFrame(conn, common.DefaultMaxFrameSize)
			_ = conn.Close()
		}
	}()

	client := connectClient(t, listener.Addr().String(), false)
	_, err = call(client, 5*time.Second, "lost")
	if !errors.Is(err, common.ErrConnection) {
		t.Fatalf("Expected ErrConnection, got %v", err)
	}

	// without AutoReconnect the client stays disconnected
	if _, err := call(client, time.Second, "again"); !errors.Is(err, common.ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", err)
	}
}

// TestTransportUndecodableResponse tests that a response with an intact header
// but a corrupt payload fails its call at once instead of running into the timeout
func TestTransportUndecodableResponse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		codec := protocol.NewCodec(0)
		frame, err := protocol.ReadFrame(conn, common.DefaultMaxFrameSize)
		if err != nil {
			return
		}
		header, err := protocol.ParseHeader(frame)
		if err != nil {
			return
		}
		resp, _ := codec.Encode(common.NewSuccessResponse(header.SeqID, "ok"), common.AlgObject)
		corrupt := append(resp[:protocol.HeaderSize:protocol.HeaderSize], 0xde, 0xad, 0xbe, 0xef)
		binary.BigEndian.PutUint32(corrupt[protocol.HeaderSize-4:], 4)
		_ = protocol.WriteFrame(conn, corrupt)
		_, _ = io.Copy(io.Discard, conn)
	}()

	client := connectClient(t, listener.Addr().String(), false)
	start := time.Now()
	_, err = call(client, 10*time.Second, "corrupt")
	if !errors.Is(err, common.ErrSerialization) {
		t.Fatalf("Expected ErrSerialization, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Call failed after %v, expected an immediate failure", elapsed)
	}
	conn, err := client.(*clientTransport).connection()
	if err != nil {
		t.Fatalf("Expected the connection to survive, got %v", err)
	}
	if n := conn.pending.Len(); n != 0 {
		t.Errorf("Expected no pending calls, got %d", n)
	}
}

// TestTransportAutoReconnect tests that the next call re-dials a lost connection
func TestTransportAutoReconnect(t *testing.T) {
	server, addr := startServer(t, echoHandler(nil), common.ServerConfig{})
	client := connectClient(t, addr, true)

	if _, err := call(client, time.Second, "one"); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	// drop all server side connections
	server.(*serverTransport).conns.Range(func(_ string, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})
	time.Sleep(50 * time.Millisecond)

	if resp, err := call(client, time.Second, "two"); err != nil || resp.ReturnValue != "two" {
		t.Errorf("Call after reconnect got %+v, %v", resp, err)
	}
}

// TestServerDiscardsMalformedFrames tests that bad frames do not break the connection
func TestServerDiscardsMalformedFrames(t *testing.T) {
	_, addr := startServer(t, echoHandler(nil), common.ServerConfig{})
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	codec := protocol.NewCodec(0)
	bad, _ := codec.Encode(common.NewRequest(1, "IEcho", echo, "bad"), common.AlgJSON)
	bad[0] = 0x09 // bad magic
	unknown, _ := codec.Encode(common.NewRequest(2, "IEcho", echo, "unknown"), common.AlgJSON)
	unknown[5] = 0x07 // unknown serializer
	good, _ := codec.Encode(common.NewRequest(3, "IEcho", echo, "good"), common.AlgJSON)

	for _, frame := range [][]byte{bad, unknown, good} {
		if err := protocol.WriteFrame(conn, frame); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := protocol.ReadFrame(conn, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	header, msg, err := codec.DecodeWithHeader(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.SeqID() != 3 || header.Serializer != common.AlgJSON {
		t.Errorf("Expected JSON response to 3, got %+v", header)
	}
}

// TestServerClosesOnOversizeFrame tests that an oversize frame closes the connection
func TestServerClosesOnOversizeFrame(t *testing.T) {
	_, addr := startServer(t, echoHandler(nil), common.ServerConfig{MaxFrameSize: 128})
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	frame, err := protocol.NewCodec(4096).Encode(common.NewRequest(1, "IEcho", echo, strings.Repeat("x", 512)), common.AlgBinary)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := protocol.WriteFrame(conn, frame); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err != io.EOF && !errors.Is(err, net.ErrClosed) && !isConnReset(err) {
		t.Errorf("Expected the server to close the connection, got %v", err)
	}
}

// TestServerShutdownWaitsForInflight tests graceful shutdown
func TestServerShutdownWaitsForInflight(t *testing.T) {
	server, addr := startServer(t, echoHandler(nil), common.ServerConfig{})
	client := connectClient(t, addr, false)

	result := make(chan error, 1)
	go func() {
		resp, err := call(client, 2*time.Second, "sleep-shutdown")
		if err == nil && resp.ReturnValue != "sleep-shutdown" {
			err = errors.Newf("unexpected response %+v", resp)
		}
		result <- err
	}()
	time.Sleep(25 * time.Millisecond)

	if err := server.Shutdown(2 * time.Second); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if err := <-result; err != nil {
		t.Errorf("In-flight call failed: %v", err)
	}
}

// TestServerShutdownWithReadTimeout tests that idle readers with a long read
// deadline are released by Shutdown instead of waiting for the deadline
func TestServerShutdownWithReadTimeout(t *testing.T) {
	server, addr := startServer(t, echoHandler(nil), common.ServerConfig{TimeoutSecond: 30})

	clients := make([]transport.IRPCClientTransport, 4)
	for i := range clients {
		clients[i] = connectClient(t, addr, false)
		if _, err := call(clients[i], time.Second, "warmup"); err != nil {
			t.Fatalf("Call failed: %v", err)
		}
	}

	start := time.Now()
	if err := server.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Shutdown took %v, readers were not released", elapsed)
	}
}

func isConnReset(err error) bool {
	return err != nil && strings.Contains(err.Error(), "connection reset")
}
