package client

import (
	"context"

	"github.com/ValentinKolb/dRPC/lib/hello"
)

// NewRPCHelloService creates a hello.IHelloService that forwards every call to
// the service registered under hello.ServiceName on the remote side
func NewRPCHelloService(client *Client) hello.IHelloService {
	return &rpcHelloService{rpcClientAdapter{client: client}}
}

type rpcHelloService struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see hello.IHelloService)
// --------------------------------------------------------------------------

func (s *rpcHelloService) SayHello(name string) (string, error) {
	return Call[string](context.Background(), s.client, hello.ServiceName, hello.MethodSayHello, name)
}
