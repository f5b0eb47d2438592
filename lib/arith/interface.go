package arith

import "github.com/ValentinKolb/dRPC/rpc/common"

// ServiceName is the interface name callers use to address the arithmetic service
const ServiceName = "arith.IArithService"

// Pair is a composite value passed to and returned from the arithmetic service
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// PairType is the type descriptor of Pair
const PairType common.TypeDescriptor = "arith.Pair"

func init() {
	common.RegisterType(PairType, Pair{})
}

// IArithService defines the interface of the arithmetic example service.
type IArithService interface {
	// Add returns a + b
	Add(a, b int) (int, error)

	// AddFloat returns a + b. On the wire it is an overload of Add.
	AddFloat(a, b float64) (float64, error)

	// Divide returns a / b, division by zero is an error
	Divide(a, b int) (int, error)

	// Swap returns p with A and B exchanged
	Swap(p Pair) (Pair, error)

	// Reset clears the internal call counter and returns nothing
	Reset() error

	// Calls returns the number of calls since the last Reset
	Calls() (int64, error)
}

// Method descriptors of IArithService
var (
	MethodAdd = common.MethodDescriptor{
		Name:       "Add",
		ParamTypes: []common.TypeDescriptor{common.TypeInt, common.TypeInt},
		ReturnType: common.TypeInt,
	}
	MethodAddFloat = common.MethodDescriptor{
		Name:       "Add",
		ParamTypes: []common.TypeDescriptor{common.TypeFloat64, common.TypeFloat64},
		ReturnType: common.TypeFloat64,
	}
	MethodDivide = common.MethodDescriptor{
		Name:       "Divide",
		ParamTypes: []common.TypeDescriptor{common.TypeInt, common.TypeInt},
		ReturnType: common.TypeInt,
	}
	MethodSwap = common.MethodDescriptor{
		Name:       "Swap",
		ParamTypes: []common.TypeDescriptor{PairType},
		ReturnType: PairType,
	}
	MethodReset = common.MethodDescriptor{
		Name:       "Reset",
		ReturnType: common.TypeVoid,
	}
	MethodCalls = common.MethodDescriptor{
		Name:       "Calls",
		ReturnType: common.TypeInt64,
	}
)
