package serializer

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-msgpack/codec"
)

// NewBinarySerializer creates the compact-binary serializer. Message fields
// are encoded in a custom flag based format, primitive values are tagged
// natively and all other values are carried as msgpack blobs labelled with
// their registered type descriptor.
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields of a request are present
const (
	hasInterface  byte = 1 << 0
	hasMethod     byte = 1 << 1
	hasParams     byte = 1 << 2
	hasReturnType byte = 1 << 3
)

// Bit flags to indicate which optional fields of a response are present
const (
	hasValue byte = 1 << 0
	hasError byte = 1 << 1
	hasStack byte = 1 << 2
)

// Value tags
const (
	valNil byte = iota
	valBool
	valInt
	valUint
	valFloat
	valString
	valBytes
	valExt
)

// msgpackHandle is shared by all encoders and decoders, it is never modified after init
var msgpackHandle = &codec.MsgpackHandle{RawToString: true}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) ID() common.SerializerAlgorithm {
	return common.AlgBinary
}

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Write message type, flags are set after knowing which fields are present
	result := make([]byte, 2, 64)
	result[0] = byte(msg.Type())
	result = binary.BigEndian.AppendUint32(result, msg.SeqID())

	var flags byte
	var err error

	switch m := msg.(type) {
	case *common.RequestMessage:
		if m.InterfaceName != "" {
			flags |= hasInterface
			result = appendString(result, m.InterfaceName)
		}
		if m.MethodName != "" {
			flags |= hasMethod
			result = appendString(result, m.MethodName)
		}
		if len(m.ParameterTypes) > 0 || len(m.ParameterValues) > 0 {
			if len(m.ParameterTypes) != len(m.ParameterValues) {
				return nil, errors.Wrapf(common.ErrSerialization, "request has %d parameter types but %d values",
					len(m.ParameterTypes), len(m.ParameterValues))
			}
			flags |= hasParams
			result = binary.BigEndian.AppendUint32(result, uint32(len(m.ParameterTypes)))
			for i, td := range m.ParameterTypes {
				result = appendString(result, string(td))
				if result, err = appendValue(result, m.ParameterValues[i]); err != nil {
					return nil, err
				}
			}
		}
		if m.ReturnType != "" {
			flags |= hasReturnType
			result = appendString(result, string(m.ReturnType))
		}

	case *common.ResponseMessage:
		if m.ReturnValue != nil {
			flags |= hasValue
			if result, err = appendValue(result, m.ReturnValue); err != nil {
				return nil, err
			}
		}
		if m.Error != nil {
			flags |= hasError
			result = appendString(result, string(m.Error.Kind))
			result = appendString(result, m.Error.Message)
			if m.Error.Stack != "" {
				flags |= hasStack
				result = appendString(result, m.Error.Stack)
			}
		}

	default:
		return nil, errors.Wrapf(common.ErrSerialization, "cannot encode message %T", msg)
	}

	result[1] = flags
	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg common.Message) error {
	// Check minimum size (MsgType + flags + seq)
	if len(data) < 6 {
		return errors.Wrap(common.ErrSerialization, "data too short for message header")
	}
	if common.MessageType(data[0]) != msg.Type() {
		return errors.Wrapf(common.ErrSerialization, "payload holds a %s but a %s was expected",
			common.MessageType(data[0]), msg.Type())
	}

	flags := data[1]
	r := &binaryReader{data: data, pos: 2}
	msg.SetSeqID(r.uint32("sequence id"))

	switch m := msg.(type) {
	case *common.RequestMessage:
		if flags&hasInterface != 0 {
			m.InterfaceName = r.string("interface name")
		}
		if flags&hasMethod != 0 {
			m.MethodName = r.string("method name")
		}
		if flags&hasParams != 0 {
			count := int(r.uint32("parameter count"))
			if r.err == nil && count > r.remaining() {
				return errors.Wrapf(common.ErrSerialization, "parameter count %d exceeds payload", count)
			}
			m.ParameterTypes = make([]common.TypeDescriptor, 0, count)
			m.ParameterValues = make([]any, 0, count)
			for i := 0; i < count && r.err == nil; i++ {
				m.ParameterTypes = append(m.ParameterTypes, common.TypeDescriptor(r.string("parameter type")))
				m.ParameterValues = append(m.ParameterValues, r.value())
			}
		}
		if flags&hasReturnType != 0 {
			m.ReturnType = common.TypeDescriptor(r.string("return type"))
		}

	case *common.ResponseMessage:
		if flags&hasValue != 0 {
			m.ReturnValue = r.value()
		}
		if flags&hasError != 0 {
			m.Error = &common.RemoteError{
				Kind:    common.ErrorKind(r.string("error kind")),
				Message: r.string("error message"),
			}
			if flags&hasStack != 0 {
				m.Error.Stack = r.string("error stack")
			}
		}

	default:
		return errors.Wrapf(common.ErrSerialization, "cannot decode into %T", msg)
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// appendString writes a length prefixed string
func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// appendValue writes a tagged value
func appendValue(buf []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(buf, valNil), nil
	case bool:
		if x {
			return append(buf, valBool, 1), nil
		}
		return append(buf, valBool, 0), nil
	case int:
		return binary.BigEndian.AppendUint64(append(buf, valInt), uint64(int64(x))), nil
	case int8:
		return binary.BigEndian.AppendUint64(append(buf, valInt), uint64(int64(x))), nil
	case int16:
		return binary.BigEndian.AppendUint64(append(buf, valInt), uint64(int64(x))), nil
	case int32:
		return binary.BigEndian.AppendUint64(append(buf, valInt), uint64(int64(x))), nil
	case int64:
		return binary.BigEndian.AppendUint64(append(buf, valInt), uint64(x)), nil
	case uint:
		return binary.BigEndian.AppendUint64(append(buf, valUint), uint64(x)), nil
	case uint8:
		return binary.BigEndian.AppendUint64(append(buf, valUint), uint64(x)), nil
	case uint16:
		return binary.BigEndian.AppendUint64(append(buf, valUint), uint64(x)), nil
	case uint32:
		return binary.BigEndian.AppendUint64(append(buf, valUint), uint64(x)), nil
	case uint64:
		return binary.BigEndian.AppendUint64(append(buf, valUint), x), nil
	case float32:
		return binary.BigEndian.AppendUint64(append(buf, valFloat), math.Float64bits(float64(x))), nil
	case float64:
		return binary.BigEndian.AppendUint64(append(buf, valFloat), math.Float64bits(x)), nil
	case string:
		return appendString(append(buf, valString), x), nil
	case []byte:
		buf = binary.BigEndian.AppendUint32(append(buf, valBytes), uint32(len(x)))
		return append(buf, x...), nil
	}

	// composite values are carried as msgpack, labelled with their descriptor
	name, _ := common.DescriptorOf(reflect.TypeOf(v))
	var blob []byte
	if err := codec.NewEncoderBytes(&blob, msgpackHandle).Encode(v); err != nil {
		return nil, errors.Wrapf(common.ErrSerialization, "msgpack encode %T: %v", v, err)
	}
	buf = appendString(append(buf, valExt), string(name))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(blob)))
	return append(buf, blob...), nil
}

// binaryReader reads length prefixed fields and remembers the first error
type binaryReader struct {
	data []byte
	pos  int
	err  error
}

func (r *binaryReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *binaryReader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.remaining() < n {
		r.err = errors.Wrapf(common.ErrSerialization, "data too short for %s", what)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *binaryReader) uint32(what string) uint32 {
	b := r.take(4, what)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *binaryReader) uint64(what string) uint64 {
	b := r.take(8, what)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *binaryReader) string(what string) string {
	n := r.uint32(what + " length")
	return string(r.take(int(n), what))
}

func (r *binaryReader) value() any {
	tag := r.take(1, "value tag")
	if tag == nil {
		return nil
	}

	switch tag[0] {
	case valNil:
		return nil
	case valBool:
		b := r.take(1, "bool value")
		return b != nil && b[0] != 0
	case valInt:
		return int64(r.uint64("int value"))
	case valUint:
		return r.uint64("uint value")
	case valFloat:
		return math.Float64frombits(r.uint64("float value"))
	case valString:
		return r.string("string value")
	case valBytes:
		n := r.uint32("bytes length")
		b := r.take(int(n), "bytes value")
		if b == nil {
			return nil
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out
	case valExt:
		name := common.TypeDescriptor(r.string("type descriptor"))
		blob := r.take(int(r.uint32("blob length")), "blob")
		if r.err != nil {
			return nil
		}
		return r.decodeExt(name, blob)
	default:
		if r.err == nil {
			r.err = errors.Wrapf(common.ErrSerialization, "unknown value tag %d", tag[0])
		}
		return nil
	}
}

// decodeExt decodes a msgpack blob into the registered type, or into a
// generic value if the descriptor is unknown on this side
func (r *binaryReader) decodeExt(name common.TypeDescriptor, blob []byte) any {
	dec := codec.NewDecoderBytes(blob, msgpackHandle)
	if t, ok := common.LookupType(name); ok {
		target := reflect.New(t)
		if err := dec.Decode(target.Interface()); err != nil {
			r.err = errors.Wrapf(common.ErrSerialization, "msgpack decode %s: %v", name, err)
			return nil
		}
		return target.Elem().Interface()
	}

	if name != "" {
		Logger.Debugf("type descriptor %q is not registered, decoding generically", name)
	}
	var out any
	if err := dec.Decode(&out); err != nil {
		r.err = errors.Wrapf(common.ErrSerialization, "msgpack decode: %v", err)
		return nil
	}
	return out
}
