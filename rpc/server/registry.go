package server

import (
	"context"
	"sort"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Service Description
// --------------------------------------------------------------------------

// InvokeFunc executes a method with arguments already converted to the
// declared parameter types
type InvokeFunc func(ctx context.Context, args []any) (any, error)

// Method is one callable operation of a service
type Method struct {
	common.MethodDescriptor
	Invoke InvokeFunc
}

// ServiceDesc binds an interface name to the methods of one implementation.
// Methods are identified by their exact signature, so overloads with
// different parameter types coexist.
type ServiceDesc struct {
	Name    string
	methods map[string]*Method
}

// NewServiceDesc creates a service description. It panics on duplicate signatures.
func NewServiceDesc(name string, methods ...Method) *ServiceDesc {
	desc := &ServiceDesc{
		Name:    name,
		methods: make(map[string]*Method, len(methods)),
	}
	for i := range methods {
		m := methods[i]
		sig := m.Signature()
		if _, dup := desc.methods[sig]; dup {
			panic("server: duplicate method " + sig + " on " + name)
		}
		desc.methods[sig] = &m
	}
	return desc
}

// Method returns the method with the given signature
func (d *ServiceDesc) Method(signature string) (*Method, error) {
	if m, ok := d.methods[signature]; ok {
		return m, nil
	}
	return nil, errors.Wrapf(common.ErrMethodNotFound, "no method %s on %s", signature, d.Name)
}

// Signatures returns the sorted signatures of all methods
func (d *ServiceDesc) Signatures() []string {
	sigs := make([]string, 0, len(d.methods))
	for sig := range d.methods {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	return sigs
}

// --------------------------------------------------------------------------
// Service Registry
// --------------------------------------------------------------------------

// ServiceRegistry maps interface names to services. It is safe for
// concurrent use, services may be registered while requests are served.
type ServiceRegistry struct {
	services *xsync.MapOf[string, *ServiceDesc]
}

// NewServiceRegistry creates an empty registry
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: xsync.NewMapOf[string, *ServiceDesc](),
	}
}

// Register adds desc. Registering an interface name twice is an error.
func (r *ServiceRegistry) Register(desc *ServiceDesc) error {
	if desc == nil || desc.Name == "" {
		return errors.New("service description without name")
	}
	if _, loaded := r.services.LoadOrStore(desc.Name, desc); loaded {
		return errors.Newf("service %s is already registered", desc.Name)
	}
	Logger.Infof("Registered service %s with methods %v", desc.Name, desc.Signatures())
	return nil
}

// Lookup returns the service registered under name
func (r *ServiceRegistry) Lookup(name string) (*ServiceDesc, error) {
	if desc, ok := r.services.Load(name); ok {
		return desc, nil
	}
	return nil, errors.Wrapf(common.ErrServiceNotFound, "no service %s", name)
}

// Names returns the sorted names of all registered services
func (r *ServiceRegistry) Names() []string {
	names := make([]string, 0, r.services.Size())
	r.services.Range(func(name string, _ *ServiceDesc) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
