package serializer

import (
	"bytes"
	"encoding/json"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
)

// NewJSONSerializer creates the text serializer using json encoding.
// Values lose their Go type on the wire and are re-typed by common.Coerce.
// Numbers are decoded as json.Number so 64 bit integers keep every digit.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) ID() common.SerializerAlgorithm {
	return common.AlgJSON
}

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(common.ErrSerialization, "json encode %s: %v", msg.Type(), err)
	}
	return b, nil
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg common.Message) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(msg); err != nil {
		return errors.Wrapf(common.ErrSerialization, "json decode %s: %v", msg.Type(), err)
	}
	return nil
}
