// Package hello contains the greeting example service of dRPC: the IHelloService
// interface, its method descriptors and a local implementation. The server exposes
// the implementation through server.NewHelloServiceDesc, callers use the stub
// returned by client.NewRPCHelloService.
package hello
