package server

import (
	"context"

	"github.com/ValentinKolb/dRPC/lib/arith"
)

// NewArithServiceDesc exposes impl under arith.ServiceName. Add is exposed
// twice, for int and for float64 operands.
func NewArithServiceDesc(impl arith.IArithService) *ServiceDesc {
	return NewServiceDesc(arith.ServiceName,
		Method{
			MethodDescriptor: arith.MethodAdd,
			Invoke: func(_ context.Context, args []any) (any, error) {
				return impl.Add(args[0].(int), args[1].(int))
			},
		},
		Method{
			MethodDescriptor: arith.MethodAddFloat,
			Invoke: func(_ context.Context, args []any) (any, error) {
				return impl.AddFloat(args[0].(float64), args[1].(float64))
			},
		},
		Method{
			MethodDescriptor: arith.MethodDivide,
			Invoke: func(_ context.Context, args []any) (any, error) {
				return impl.Divide(args[0].(int), args[1].(int))
			},
		},
		Method{
			MethodDescriptor: arith.MethodSwap,
			Invoke: func(_ context.Context, args []any) (any, error) {
				return impl.Swap(args[0].(arith.Pair))
			},
		},
		Method{
			MethodDescriptor: arith.MethodReset,
			Invoke: func(_ context.Context, _ []any) (any, error) {
				return nil, impl.Reset()
			},
		},
		Method{
			MethodDescriptor: arith.MethodCalls,
			Invoke: func(_ context.Context, _ []any) (any, error) {
				return impl.Calls()
			},
		},
	)
}
