package server

import (
	"context"

	"github.com/ValentinKolb/dRPC/lib/hello"
)

// NewHelloServiceDesc exposes impl under hello.ServiceName
func NewHelloServiceDesc(impl hello.IHelloService) *ServiceDesc {
	return NewServiceDesc(hello.ServiceName,
		Method{
			MethodDescriptor: hello.MethodSayHello,
			Invoke: func(_ context.Context, args []any) (any, error) {
				return impl.SayHello(args[0].(string))
			},
		},
	)
}
