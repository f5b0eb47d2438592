/*
Package server implements the dispatching side of dRPC.

A server owns a ServiceRegistry mapping interface names to service
descriptions. A ServiceDesc holds the methods of one implementation keyed
by their exact signature, e.g. "Add(int,int)", so overloads that differ in
parameter types coexist. Descriptions are either written by hand (see
NewHelloServiceDesc and NewArithServiceDesc) or derived by reflection with
NewReflectService.

# Request Flow

For every decoded request the Dispatcher:

 1. validates the request
 2. looks up the service by interface name (ServiceNotFoundError)
 3. looks up the method by signature (MethodNotFoundError)
 4. converts the parameter values to the declared types (SerializationError)
 5. invokes the method, failures and panics become RemoteInvocationError

The response always carries the sequence id of the request, so one bad
request never affects other calls on the same connection.

# Middleware

The dispatcher is wrapped in a chain of middlewares:

  - LoggingMiddleware logs each call at debug level
  - MetricsMiddleware records counters and histograms (VictoriaMetrics)
  - RateLimitMiddleware rejects requests over the configured rate
  - TimeoutMiddleware bounds the execution time of a method

Usage:

	s := server.NewRPCServer(config, tcp.NewTCPServerTransport())
	_ = s.Register(server.NewHelloServiceDesc(hello.NewHelloService()))
	go s.Serve()
	defer s.Shutdown(5 * time.Second)
*/
package server
