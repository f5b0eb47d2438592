package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
)

// NewGOBSerializer creates the structured-object serializer using Go's gob format.
// Custom parameter and return types must be made known with common.RegisterType.
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IRPCSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) ID() common.SerializerAlgorithm {
	return common.AlgObject
}

func (g gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(msg); err != nil {
		return nil, errors.Wrapf(common.ErrSerialization, "gob encode %s: %v", msg.Type(), err)
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, msg common.Message) error {
	buf := bytes.NewBuffer(b)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(msg); err != nil {
		return errors.Wrapf(common.ErrSerialization, "gob decode %s: %v", msg.Type(), err)
	}
	return nil
}
