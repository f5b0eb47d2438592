package arith

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrDivisionByZero is returned by Divide for a zero divisor
var ErrDivisionByZero = errors.New("division by zero")

// NewArithService creates the local implementation of IArithService
func NewArithService() IArithService {
	return &arithServiceImpl{}
}

type arithServiceImpl struct {
	calls atomic.Int64
}

// --------------------------------------------------------------------------
// Interface Methods (docu see arith.IArithService)
// --------------------------------------------------------------------------

func (s *arithServiceImpl) Add(a, b int) (int, error) {
	s.calls.Add(1)
	return a + b, nil
}

func (s *arithServiceImpl) AddFloat(a, b float64) (float64, error) {
	s.calls.Add(1)
	return a + b, nil
}

func (s *arithServiceImpl) Divide(a, b int) (int, error) {
	s.calls.Add(1)
	if b == 0 {
		return 0, errors.WithStack(ErrDivisionByZero)
	}
	return a / b, nil
}

func (s *arithServiceImpl) Swap(p Pair) (Pair, error) {
	s.calls.Add(1)
	return Pair{A: p.B, B: p.A}, nil
}

func (s *arithServiceImpl) Reset() error {
	s.calls.Store(0)
	return nil
}

func (s *arithServiceImpl) Calls() (int64, error) {
	return s.calls.Load(), nil
}
