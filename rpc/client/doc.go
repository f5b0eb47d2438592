// Package client implements the calling side of dRPC.
//
// A Client owns one client transport and encodes its requests with the
// configured serializer. Every call gets a fresh sequence id, is registered
// with the correlator of the connection and waits for the response carrying
// the same id, so any number of goroutines may call concurrently.
//
// Key Components:
//
//   - Client.Invoke: dynamic invocation by interface name and method descriptor.
//     The result is converted to the declared return type.
//
//   - Call: generic, typed wrapper around Invoke.
//
//   - NewRPCHelloService, NewRPCArithService: typed stubs implementing the
//     service interfaces of the lib packages.
//
//   - Stats: call counts and latency (rcrowley/go-metrics).
//
// Usage Example:
//
//	c := client.NewClient(common.ClientConfig{
//		Endpoint:      "localhost:8080",
//		TimeoutSecond: 5,
//		Serializer:    common.AlgBinary,
//	}, tcp.NewTCPClientTransport())
//
//	if err := c.Connect(); err != nil {
//		panic(err)
//	}
//	defer c.Close()
//
//	greeting, err := client.NewRPCHelloService(c).SayHello("yanan")
//
// Errors reported by the server are returned as *common.RemoteError and can be
// checked with errors.Is against common.ErrServiceNotFound, common.ErrMethodNotFound
// and the other sentinels. Local failures wrap common.ErrConnection or common.ErrTimeout.
package client
