package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/time/rate"
)

// Middleware wraps a request handler
type Middleware func(next transport.ServerHandleFunc) transport.ServerHandleFunc

// Chain combines middlewares, the first one is the outermost
func Chain(middlewares ...Middleware) Middleware {
	return func(next transport.ServerHandleFunc) transport.ServerHandleFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// LoggingMiddleware logs every request at debug level and failures as warnings
func LoggingMiddleware() Middleware {
	return func(next transport.ServerHandleFunc) transport.ServerHandleFunc {
		return func(ctx context.Context, req *common.RequestMessage) *common.ResponseMessage {
			start := time.Now()
			resp := next(ctx, req)
			Logger.Debugf("%s.%s (sequence id %d) took %s", req.InterfaceName, req.Signature(), req.SequenceID, time.Since(start))
			if resp.Failed() {
				Logger.Warningf("%s.%s (sequence id %d) failed: %s", req.InterfaceName, req.Signature(), req.SequenceID, resp.Error)
			}
			return resp
		}
	}
}

// TimeoutMiddleware answers with a TimeoutError if the handler does not
// return within timeout. The handler keeps running until it observes ctx.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next transport.ServerHandleFunc) transport.ServerHandleFunc {
		return func(ctx context.Context, req *common.RequestMessage) *common.ResponseMessage {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *common.ResponseMessage, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return common.NewErrorResponse(req.SequenceID, &common.RemoteError{
					Kind:    common.KindTimeout,
					Message: fmt.Sprintf("%s.%s did not complete within %s", req.InterfaceName, req.Signature(), timeout),
				})
			}
		}
	}
}

// RateLimitMiddleware rejects requests exceeding r per second (token bucket of size burst)
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next transport.ServerHandleFunc) transport.ServerHandleFunc {
		return func(ctx context.Context, req *common.RequestMessage) *common.ResponseMessage {
			if !limiter.Allow() {
				return common.NewErrorResponse(req.SequenceID, &common.RemoteError{
					Kind:    common.KindRateLimited,
					Message: fmt.Sprintf("%s: rejected %s.%s", common.ErrRateLimited, req.InterfaceName, req.MethodName),
				})
			}
			return next(ctx, req)
		}
	}
}

// MetricsMiddleware records request counts, errors by kind and durations
// per interface and method in the default VictoriaMetrics set
func MetricsMiddleware() Middleware {
	return func(next transport.ServerHandleFunc) transport.ServerHandleFunc {
		return func(ctx context.Context, req *common.RequestMessage) *common.ResponseMessage {
			start := time.Now()
			resp := next(ctx, req)

			labels := fmt.Sprintf(`service=%q,method=%q`, req.InterfaceName, req.MethodName)
			metrics.GetOrCreateCounter(`drpc_server_requests_total{` + labels + `}`).Inc()
			metrics.GetOrCreateHistogram(`drpc_server_request_duration_seconds{` + labels + `}`).UpdateDuration(start)
			if resp.Failed() {
				metrics.GetOrCreateCounter(fmt.Sprintf(`drpc_server_errors_total{%s,kind=%q}`, labels, resp.Error.Kind)).Inc()
			}
			return resp
		}
	}
}
