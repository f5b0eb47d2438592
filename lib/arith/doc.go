// Package arith contains the arithmetic example service of dRPC. Besides plain
// integer operations it exercises the less common parts of the protocol: an
// overloaded method (Add for int and float64 operands), a composite parameter
// and return type (Pair), a method without return value (Reset) and a method
// failing with an application error (Divide by zero).
package arith
