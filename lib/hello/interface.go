package hello

import "github.com/ValentinKolb/dRPC/rpc/common"

// ServiceName is the interface name callers use to address the hello service
const ServiceName = "hello.IHelloService"

// IHelloService defines the interface of the greeting example service.
type IHelloService interface {
	// SayHello returns a greeting for name.
	// An empty name is rejected with an error.
	SayHello(name string) (string, error)
}

// MethodSayHello describes IHelloService.SayHello on the wire
var MethodSayHello = common.MethodDescriptor{
	Name:       "SayHello",
	ParamTypes: []common.TypeDescriptor{common.TypeString},
	ReturnType: common.TypeString,
}
