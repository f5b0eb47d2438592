package server

import (
	"context"
	"reflect"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// NewReflectService builds a service description from the exported methods
// of impl. A method is exposed if
//   - its parameters (after an optional leading context.Context) have registered type descriptors
//   - it returns either error, or a value with a registered descriptor followed by error
//
// Other methods are skipped. The wire name of a method is its Go name.
func NewReflectService(name string, impl any) (*ServiceDesc, error) {
	typ := reflect.TypeOf(impl)
	if typ == nil {
		return nil, errors.Newf("service %s: implementation is nil", name)
	}
	rcvr := reflect.ValueOf(impl)

	methods := make([]Method, 0, typ.NumMethod())
	for i := 0; i < typ.NumMethod(); i++ {
		m := typ.Method(i)
		method, ok := reflectMethod(rcvr, m)
		if !ok {
			Logger.Debugf("Service %s: skipping method %s with unsupported signature %s", name, m.Name, m.Type)
			continue
		}
		methods = append(methods, method)
	}

	if len(methods) == 0 {
		return nil, errors.Newf("service %s: type %s has no suitable methods", name, typ)
	}
	return NewServiceDesc(name, methods...), nil
}

// reflectMethod derives descriptor and invoker of m, ok is false if m can not be exposed
func reflectMethod(rcvr reflect.Value, m reflect.Method) (method Method, ok bool) {
	ft := m.Type

	// index 0 is the receiver
	first := 1
	withCtx := ft.NumIn() > 1 && ft.In(1) == contextType
	if withCtx {
		first = 2
	}

	params := make([]common.TypeDescriptor, 0, ft.NumIn()-first)
	paramTypes := make([]reflect.Type, 0, ft.NumIn()-first)
	for i := first; i < ft.NumIn(); i++ {
		td, known := common.DescriptorOf(ft.In(i))
		if !known {
			return Method{}, false
		}
		params = append(params, td)
		paramTypes = append(paramTypes, ft.In(i))
	}

	returnType := common.TypeVoid
	switch {
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
		td, known := common.DescriptorOf(ft.Out(0))
		if !known {
			return Method{}, false
		}
		returnType = td
	default:
		return Method{}, false
	}

	invoke := func(ctx context.Context, args []any) (any, error) {
		in := make([]reflect.Value, 0, len(args)+2)
		in = append(in, rcvr)
		if withCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		for i, arg := range args {
			if arg == nil {
				in = append(in, reflect.Zero(paramTypes[i]))
				continue
			}
			in = append(in, reflect.ValueOf(arg))
		}

		out := m.Func.Call(in)
		errVal := out[len(out)-1]
		if !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
		if len(out) == 2 {
			return out[0].Interface(), nil
		}
		return nil, nil
	}

	return Method{
		MethodDescriptor: common.MethodDescriptor{
			Name:       m.Name,
			ParamTypes: params,
			ReturnType: returnType,
		},
		Invoke: invoke,
	}, true
}
