package server

import (
	"context"
	"testing"

	"github.com/ValentinKolb/dRPC/lib/arith"
	"github.com/ValentinKolb/dRPC/lib/hello"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
)

// newTestDispatcher returns a dispatcher serving the hello and arith services
func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	registry := NewServiceRegistry()
	if err := registry.Register(NewHelloServiceDesc(hello.NewHelloService())); err != nil {
		t.Fatalf("Register hello failed: %v", err)
	}
	if err := registry.Register(NewArithServiceDesc(arith.NewArithService())); err != nil {
		t.Fatalf("Register arith failed: %v", err)
	}
	return NewDispatcher(registry)
}

// TestDispatch tests successful and failing dispatches
func TestDispatch(t *testing.T) {
	d := newTestDispatcher(t)

	testCases := []struct {
		name     string
		req      *common.RequestMessage
		expected any
		kind     common.ErrorKind // empty if the call succeeds
	}{
		{
			name:     "Say hello",
			req:      common.NewRequest(1, hello.ServiceName, hello.MethodSayHello, "yanan"),
			expected: "Hello, yanan",
		},
		{
			name:     "Int overload",
			req:      common.NewRequest(2, arith.ServiceName, arith.MethodAdd, 2, 3),
			expected: 5,
		},
		{
			name:     "Float overload",
			req:      common.NewRequest(3, arith.ServiceName, arith.MethodAddFloat, 1.5, 2.25),
			expected: 3.75,
		},
		{
			name:     "JSON numbers are converted",
			req:      common.NewRequest(4, arith.ServiceName, arith.MethodAdd, float64(40), float64(2)),
			expected: 42,
		},
		{
			name:     "Composite value",
			req:      common.NewRequest(5, arith.ServiceName, arith.MethodSwap, map[string]any{"a": 1, "b": 2}),
			expected: arith.Pair{A: 2, B: 1},
		},
		{
			name: "Unknown service",
			req:  common.NewRequest(6, "IUnknown", hello.MethodSayHello, "x"),
			kind: common.KindServiceNotFound,
		},
		{
			name: "Unknown method",
			req: common.NewRequest(7, hello.ServiceName, common.MethodDescriptor{
				Name: "SayGoodbye", ParamTypes: []common.TypeDescriptor{common.TypeString}, ReturnType: common.TypeString,
			}, "x"),
			kind: common.KindMethodNotFound,
		},
		{
			name: "No overload for parameter types",
			req: common.NewRequest(8, arith.ServiceName, common.MethodDescriptor{
				Name: "Add", ParamTypes: []common.TypeDescriptor{common.TypeString, common.TypeString}, ReturnType: common.TypeString,
			}, "a", "b"),
			kind: common.KindMethodNotFound,
		},
		{
			name: "Argument not convertible",
			req:  common.NewRequest(9, arith.ServiceName, arith.MethodAdd, "one", "two"),
			kind: common.KindSerialization,
		},
		{
			name: "Method fails",
			req:  common.NewRequest(10, arith.ServiceName, arith.MethodDivide, 1, 0),
			kind: common.KindRemoteInvocation,
		},
		{
			name: "Parameter count mismatch",
			req: &common.RequestMessage{
				SequenceID:      11,
				InterfaceName:   arith.ServiceName,
				MethodName:      "Add",
				ParameterTypes:  []common.TypeDescriptor{common.TypeInt, common.TypeInt},
				ParameterValues: []any{1},
			},
			kind: common.KindSerialization,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := d.Dispatch(context.Background(), tc.req)
			if resp.SequenceID != tc.req.SequenceID {
				t.Errorf("Expected sequence id %d, got %d", tc.req.SequenceID, resp.SequenceID)
			}

			if tc.kind != "" {
				if !resp.Failed() {
					t.Fatalf("Expected %s, got value %v", tc.kind, resp.ReturnValue)
				}
				if resp.Error.Kind != tc.kind {
					t.Errorf("Expected %s, got %s", tc.kind, resp.Error)
				}
				if resp.ReturnValue != nil {
					t.Errorf("Failed response carries value %v", resp.ReturnValue)
				}
				return
			}

			if resp.Failed() {
				t.Fatalf("Unexpected error: %s", resp.Error)
			}
			if resp.ReturnValue != tc.expected {
				t.Errorf("Expected %v (%T), got %v (%T)", tc.expected, tc.expected, resp.ReturnValue, resp.ReturnValue)
			}
		})
	}
}

// TestDispatchVoid tests that void methods answer without value and without error
func TestDispatchVoid(t *testing.T) {
	d := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), common.NewRequest(1, arith.ServiceName, arith.MethodReset))
	if resp.Failed() || resp.ReturnValue != nil {
		t.Errorf("Expected empty response, got %+v", resp)
	}
}

// TestDispatchRecoversPanic tests that a panicking method yields a RemoteInvocationError
func TestDispatchRecoversPanic(t *testing.T) {
	registry := NewServiceRegistry()
	boom := common.MethodDescriptor{Name: "Boom", ReturnType: common.TypeVoid}
	_ = registry.Register(NewServiceDesc("IPanic", Method{
		MethodDescriptor: boom,
		Invoke: func(context.Context, []any) (any, error) {
			panic("boom")
		},
	}))
	d := NewDispatcher(registry)

	resp := d.Dispatch(context.Background(), common.NewRequest(42, "IPanic", boom))
	if !resp.Failed() || resp.Error.Kind != common.KindRemoteInvocation {
		t.Fatalf("Expected RemoteInvocationError, got %+v", resp)
	}
	if resp.SequenceID != 42 {
		t.Errorf("Expected sequence id 42, got %d", resp.SequenceID)
	}

	// the dispatcher stays usable
	resp = d.Dispatch(context.Background(), common.NewRequest(43, "IPanic", boom))
	if resp.SequenceID != 43 {
		t.Errorf("Expected sequence id 43, got %d", resp.SequenceID)
	}
}

// TestRegistry tests registration and lookup
func TestRegistry(t *testing.T) {
	registry := NewServiceRegistry()
	desc := NewHelloServiceDesc(hello.NewHelloService())

	if err := registry.Register(desc); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := registry.Register(desc); err == nil {
		t.Errorf("Expected duplicate registration to fail")
	}
	if err := registry.Register(&ServiceDesc{}); err == nil {
		t.Errorf("Expected registration without name to fail")
	}

	if got, err := registry.Lookup(hello.ServiceName); err != nil || got != desc {
		t.Errorf("Lookup returned %v, %v", got, err)
	}
	if _, err := registry.Lookup("IUnknown"); !errors.Is(err, common.ErrServiceNotFound) {
		t.Errorf("Expected ErrServiceNotFound, got %v", err)
	}
	if names := registry.Names(); len(names) != 1 || names[0] != hello.ServiceName {
		t.Errorf("Unexpected names %v", names)
	}
}

// TestServiceDescDuplicateMethod tests that duplicate signatures are rejected
func TestServiceDescDuplicateMethod(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic for duplicate signature")
		}
	}()
	m := Method{MethodDescriptor: arith.MethodAdd}
	NewServiceDesc("IDup", m, m)
}

// TestArithSignatures tests that both Add overloads are exposed
func TestArithSignatures(t *testing.T) {
	desc := NewArithServiceDesc(arith.NewArithService())
	for _, sig := range []string{"Add(int,int)", "Add(float64,float64)", "Divide(int,int)", "Swap(arith.Pair)", "Reset()", "Calls()"} {
		if _, err := desc.Method(sig); err != nil {
			t.Errorf("Missing method %s: %v", sig, err)
		}
	}
	if _, err := desc.Method("Add(int)"); !errors.Is(err, common.ErrMethodNotFound) {
		t.Errorf("Expected ErrMethodNotFound, got %v", err)
	}
}
