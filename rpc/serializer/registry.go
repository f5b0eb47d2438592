package serializer

import (
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Serializer Registry
// --------------------------------------------------------------------------

// registry maps the header id to its serializer. The three builtin
// serializers are always present.
var registry = xsync.NewMapOf[common.SerializerAlgorithm, IRPCSerializer]()

func init() {
	Register(NewGOBSerializer())
	Register(NewJSONSerializer())
	Register(NewBinarySerializer())
}

// Register adds s under s.ID(), replacing any serializer with the same id
func Register(s IRPCSerializer) {
	registry.Store(s.ID(), s)
}

// Lookup returns the serializer for the header id. Unknown ids fail with
// an error wrapping common.ErrSerialization.
func Lookup(id common.SerializerAlgorithm) (IRPCSerializer, error) {
	if s, ok := registry.Load(id); ok {
		return s, nil
	}
	return nil, errors.Wrapf(common.ErrSerialization, "unknown serializer id %d", uint8(id))
}

// Default returns the structured-object serializer used when nothing is configured
func Default() IRPCSerializer {
	s, _ := Lookup(common.AlgObject)
	return s
}

// ForName resolves a configured serializer name (see common.ParseSerializerAlgorithm)
func ForName(name string) (IRPCSerializer, error) {
	alg, err := common.ParseSerializerAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return Lookup(alg)
}
