package server

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("server")

// NewRPCServer creates a new RPC server
// It takes a config and a transport as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//	)
//
//	if err := s.Register(server.NewHelloServiceDesc(hello.NewHelloService())); err != nil {
//		panic(err)
//	}
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(config common.ServerConfig, transport transport.IRPCServerTransport) IRPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	registry := NewServiceRegistry()

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", config.String())

	return &rpcServer{
		config:     config,
		transport:  transport,
		registry:   registry,
		dispatcher: NewDispatcher(registry),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	registry   *ServiceRegistry
	dispatcher *Dispatcher

	metricsMu  sync.Mutex
	metricsSrv *http.Server
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IRPCServer)
// --------------------------------------------------------------------------

func (s *rpcServer) Register(desc *ServiceDesc) error {
	return s.registry.Register(desc)
}

func (s *rpcServer) Registry() *ServiceRegistry {
	return s.registry
}

func (s *rpcServer) Serve() error {
	s.transport.RegisterHandler(s.handler())

	if s.config.MetricsEndpoint != "" {
		if err := s.serveMetrics(); err != nil {
			return err
		}
	}

	Logger.Infof("Serving services %v", s.registry.Names())
	return s.transport.Listen(s.config)
}

func (s *rpcServer) Addr() net.Addr {
	return s.transport.Addr()
}

func (s *rpcServer) Shutdown(timeout time.Duration) error {
	Logger.Infof("Shutting down RPC server (timeout %s)", timeout)

	err := s.transport.Shutdown(timeout)

	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if mErr := s.metricsSrv.Shutdown(ctx); mErr != nil {
			err = errors.CombineErrors(err, errors.Wrap(mErr, "failed to stop metrics endpoint"))
		}
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handler builds the transport handler: the dispatcher wrapped in the
// middlewares enabled by the config
func (s *rpcServer) handler() transport.ServerHandleFunc {
	middlewares := []Middleware{LoggingMiddleware(), MetricsMiddleware()}

	if s.config.RateLimit > 0 {
		burst := s.config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		middlewares = append(middlewares, RateLimitMiddleware(s.config.RateLimit, burst))
	}
	if s.config.HandlerTimeoutSecond > 0 {
		middlewares = append(middlewares, TimeoutMiddleware(time.Duration(s.config.HandlerTimeoutSecond)*time.Second))
	}

	return Chain(middlewares...)(s.dispatcher.Dispatch)
}

// serveMetrics exposes the VictoriaMetrics default set in prometheus format
func (s *rpcServer) serveMetrics() error {
	listener, err := net.Listen("tcp", s.config.MetricsEndpoint)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on metrics endpoint %s", s.config.MetricsEndpoint)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.metricsMu.Lock()
	s.metricsSrv = srv
	s.metricsMu.Unlock()

	go func() {
		Logger.Infof("Serving metrics on http://%s/metrics", listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics endpoint failed: %v", err)
		}
	}()
	return nil
}
