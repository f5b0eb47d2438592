package client

import (
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var (
	Logger = logger.GetLogger("client")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of a typed stub
// Used by the RPCHelloService and RPCArithService with composition pattern
type rpcClientAdapter struct {
	client *Client
}

// --------------------------------------------------------------------------
// Client Statistics
// --------------------------------------------------------------------------

// Stats collects call statistics of a client
type Stats struct {
	registry metrics.Registry
	calls    metrics.Timer   // Duration of every completed call
	remote   metrics.Counter // Calls answered with an error response
	failures metrics.Counter // Calls without a response (connection, encoding)
	timeouts metrics.Counter // Calls that ran into the timeout
}

func newStats() *Stats {
	s := &Stats{
		registry: metrics.NewRegistry(),
		calls:    metrics.NewTimer(),
		remote:   metrics.NewCounter(),
		failures: metrics.NewCounter(),
		timeouts: metrics.NewCounter(),
	}
	_ = s.registry.Register("calls", s.calls)
	_ = s.registry.Register("remote_errors", s.remote)
	_ = s.registry.Register("failures", s.failures)
	_ = s.registry.Register("timeouts", s.timeouts)
	return s
}

// Calls returns the number of calls that received a response
func (s *Stats) Calls() int64 {
	return s.calls.Count()
}

// RemoteErrors returns the number of calls answered with an error
func (s *Stats) RemoteErrors() int64 {
	return s.remote.Count()
}

// Failures returns the number of calls that did not receive a response, timeouts included
func (s *Stats) Failures() int64 {
	return s.failures.Count()
}

// Timeouts returns the number of calls that timed out
func (s *Stats) Timeouts() int64 {
	return s.timeouts.Count()
}

// Latency returns the mean and the 99th percentile of the call duration
func (s *Stats) Latency() (mean, p99 time.Duration) {
	snapshot := s.calls.Snapshot()
	return time.Duration(snapshot.Mean()), time.Duration(snapshot.Percentile(0.99))
}

// Registry exposes the underlying metrics, e.g. for metrics.WriteOnce
func (s *Stats) Registry() metrics.Registry {
	return s.registry
}
