package common

import (
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

// TypeDescriptor is the portable name of a parameter or return type.
type TypeDescriptor string

// Builtin type descriptors
const (
	TypeVoid    TypeDescriptor = "void" // no return value
	TypeAny     TypeDescriptor = "any"  // value is passed through unchanged
	TypeString  TypeDescriptor = "string"
	TypeBool    TypeDescriptor = "bool"
	TypeInt     TypeDescriptor = "int"
	TypeInt32   TypeDescriptor = "int32"
	TypeInt64   TypeDescriptor = "int64"
	TypeUint32  TypeDescriptor = "uint32"
	TypeUint64  TypeDescriptor = "uint64"
	TypeFloat64 TypeDescriptor = "float64"
	TypeBytes   TypeDescriptor = "bytes"
	TypeStrings TypeDescriptor = "[]string"
)

var (
	typesByName = xsync.NewMapOf[TypeDescriptor, reflect.Type]()
	namesByType = xsync.NewMapOf[reflect.Type, TypeDescriptor]()
	bytesType   = reflect.TypeOf([]byte(nil))
	numberType  = reflect.TypeOf(json.Number(""))
)

func init() {
	// encoding/gob already knows the builtin types, only the lookup tables are filled
	builtin := map[TypeDescriptor]any{
		TypeString:  "",
		TypeBool:    false,
		TypeInt:     0,
		TypeInt32:   int32(0),
		TypeInt64:   int64(0),
		TypeUint32:  uint32(0),
		TypeUint64:  uint64(0),
		TypeFloat64: float64(0),
		TypeBytes:   []byte(nil),
		TypeStrings: []string(nil),
	}
	for name, sample := range builtin {
		t := reflect.TypeOf(sample)
		typesByName.Store(name, t)
		namesByType.Store(t, name)
	}
}

// RegisterType makes a custom type known under name. The type is registered
// with encoding/gob as well so it can travel inside interface values.
// Registering the same name twice with a different type panics.
func RegisterType(name TypeDescriptor, sample any) {
	t := reflect.TypeOf(sample)
	if prev, loaded := typesByName.LoadOrStore(name, t); loaded && prev != t {
		panic("common: type descriptor " + string(name) + " registered twice with different types")
	}
	namesByType.Store(t, name)
	gob.RegisterName(string(name), sample)
}

// LookupType resolves a descriptor to its Go type
func LookupType(name TypeDescriptor) (reflect.Type, bool) {
	return typesByName.Load(name)
}

// DescriptorOf returns the descriptor registered for t
func DescriptorOf(t reflect.Type) (TypeDescriptor, bool) {
	return namesByType.Load(t)
}

// Coerce converts v into the Go type described by td. Serializers that do
// not preserve Go types (JSON numbers, msgpack integers, maps instead of
// structs) produce values that are re-typed here.
func Coerce(v any, td TypeDescriptor) (any, error) {
	switch td {
	case TypeVoid:
		return nil, nil
	case TypeAny, "":
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
			if f, err := n.Float64(); err == nil {
				return f, nil
			}
		}
		return v, nil
	}

	rt, ok := LookupType(td)
	if !ok {
		return nil, errors.Wrapf(ErrSerialization, "unknown type descriptor %q", td)
	}
	if v == nil {
		return reflect.Zero(rt).Interface(), nil
	}
	if reflect.TypeOf(v) == rt {
		return v, nil
	}

	out := reflect.New(rt)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.DecodeHookFuncType(coercionHook),
		Result:     out.Interface(),
		TagName:    "json",
	})
	if err != nil {
		return nil, errors.Wrapf(ErrSerialization, "cannot build decoder for %s: %v", td, err)
	}
	if err := decoder.Decode(v); err != nil {
		return nil, errors.Wrapf(ErrSerialization, "cannot convert %T to %s: %v", v, td, err)
	}
	return out.Elem().Interface(), nil
}

// coercionHook bridges the representations JSON uses for byte slices and
// narrows numbers without losing range or fractional digits
func coercionHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch {
	case isNumeric(to.Kind()) && (from == numberType || isNumeric(from.Kind())):
		return convertNumber(data, to)
	case from.Kind() == reflect.String && to == bytesType:
		return base64.StdEncoding.DecodeString(reflect.ValueOf(data).String())
	case from == bytesType && to.Kind() == reflect.String:
		return string(data.([]byte)), nil
	}
	return data, nil
}

func isNumeric(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || k == reflect.Float32 || k == reflect.Float64
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

// convertNumber converts a numeric value to the numeric type to. Values that
// do not fit, or would drop a fraction, are rejected.
func convertNumber(data any, to reflect.Type) (any, error) {
	if n, ok := data.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return convertNumber(i, to)
		}
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return convertNumber(u, to)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, errors.Newf("invalid number %q", string(n))
		}
		return convertNumber(f, to)
	}

	in := reflect.ValueOf(data)
	out := reflect.New(to).Elem()
	switch k := in.Kind(); {
	case isSigned(k):
		i := in.Int()
		switch {
		case isSigned(to.Kind()):
			if out.OverflowInt(i) {
				return nil, errors.Newf("%d overflows %s", i, to)
			}
			out.SetInt(i)
		case isUnsigned(to.Kind()):
			if i < 0 || out.OverflowUint(uint64(i)) {
				return nil, errors.Newf("%d overflows %s", i, to)
			}
			out.SetUint(uint64(i))
		default:
			out.SetFloat(float64(i))
		}
	case isUnsigned(k):
		u := in.Uint()
		switch {
		case isSigned(to.Kind()):
			if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
				return nil, errors.Newf("%d overflows %s", u, to)
			}
			out.SetInt(int64(u))
		case isUnsigned(to.Kind()):
			if out.OverflowUint(u) {
				return nil, errors.Newf("%d overflows %s", u, to)
			}
			out.SetUint(u)
		default:
			out.SetFloat(float64(u))
		}
	default:
		f := in.Float()
		switch {
		case isSigned(to.Kind()):
			// 2^63 is exactly representable, anything at or above it is out of range
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || out.OverflowInt(int64(f)) {
				return nil, errors.Newf("%v does not fit %s", f, to)
			}
			out.SetInt(int64(f))
		case isUnsigned(to.Kind()):
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || out.OverflowUint(uint64(f)) {
				return nil, errors.Newf("%v does not fit %s", f, to)
			}
			out.SetUint(uint64(f))
		default:
			if out.OverflowFloat(f) {
				return nil, errors.Newf("%v overflows %s", f, to)
			}
			out.SetFloat(f)
		}
	}
	return out.Interface(), nil
}
