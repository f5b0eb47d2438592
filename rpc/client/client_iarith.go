package client

import (
	"context"

	"github.com/ValentinKolb/dRPC/lib/arith"
)

// NewRPCArithService creates an arith.IArithService backed by the remote service
func NewRPCArithService(client *Client) arith.IArithService {
	return &rpcArithService{rpcClientAdapter{client: client}}
}

type rpcArithService struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see arith.IArithService)
// --------------------------------------------------------------------------

func (s *rpcArithService) Add(a, b int) (int, error) {
	return Call[int](context.Background(), s.client, arith.ServiceName, arith.MethodAdd, a, b)
}

func (s *rpcArithService) AddFloat(a, b float64) (float64, error) {
	return Call[float64](context.Background(), s.client, arith.ServiceName, arith.MethodAddFloat, a, b)
}

func (s *rpcArithService) Divide(a, b int) (int, error) {
	return Call[int](context.Background(), s.client, arith.ServiceName, arith.MethodDivide, a, b)
}

func (s *rpcArithService) Swap(p arith.Pair) (arith.Pair, error) {
	return Call[arith.Pair](context.Background(), s.client, arith.ServiceName, arith.MethodSwap, p)
}

func (s *rpcArithService) Reset() error {
	_, err := s.client.Invoke(context.Background(), arith.ServiceName, arith.MethodReset)
	return err
}

func (s *rpcArithService) Calls() (int64, error) {
	return Call[int64](context.Background(), s.client, arith.ServiceName, arith.MethodCalls)
}
