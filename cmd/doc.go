// Package cmd implements the command-line interface of dRPC. It provides a
// hierarchical command structure for running a server that hosts the example
// services and for calling them as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a dRPC server hosting the hello and arith services
//   - call: Client commands (hello, add, divide, swap, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See drpc -help for a list of all commands.
package cmd
