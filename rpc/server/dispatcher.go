package server

import (
	"context"
	"runtime/debug"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
)

// Dispatcher resolves requests against a ServiceRegistry and invokes the
// target method. Every failure is contained in the returned response.
type Dispatcher struct {
	registry *ServiceRegistry
}

// NewDispatcher creates a dispatcher for the services in registry
func NewDispatcher(registry *ServiceRegistry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch executes req and always returns a response carrying the sequence
// id of req: the converted return value on success, otherwise a structured
// error (ServiceNotFound, MethodNotFound, Serialization or RemoteInvocation).
func (d *Dispatcher) Dispatch(ctx context.Context, req *common.RequestMessage) (resp *common.ResponseMessage) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("Recovered panic in %s.%s: %v\n%s", req.InterfaceName, req.MethodName, r, debug.Stack())
			resp = common.NewErrorResponse(req.SequenceID,
				errors.Wrapf(common.ErrRemoteInvocation, "panic in %s.%s: %v", req.InterfaceName, req.MethodName, r))
		}
	}()

	result, err := d.invoke(ctx, req)
	if err != nil {
		return common.NewErrorResponse(req.SequenceID, err)
	}
	return common.NewSuccessResponse(req.SequenceID, result)
}

// invoke performs the lookup, argument conversion and the call itself
func (d *Dispatcher) invoke(ctx context.Context, req *common.RequestMessage) (any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	service, err := d.registry.Lookup(req.InterfaceName)
	if err != nil {
		return nil, err
	}
	method, err := service.Method(req.Signature())
	if err != nil {
		return nil, err
	}

	// Convert the wire values to the declared parameter types
	args := make([]any, len(req.ParameterValues))
	for i, v := range req.ParameterValues {
		if args[i], err = common.Coerce(v, req.ParameterTypes[i]); err != nil {
			return nil, errors.Wrapf(err, "parameter %d of %s", i, req.Signature())
		}
	}

	// errors outside the taxonomy are reported as RemoteInvocationError
	result, err := method.Invoke(ctx, args)
	if err != nil {
		return nil, err
	}

	if method.ReturnType == common.TypeVoid {
		return nil, nil
	}
	return result, nil
}
