package hello

import "github.com/cockroachdb/errors"

// NewHelloService creates the local implementation of IHelloService
func NewHelloService() IHelloService {
	return &helloServiceImpl{}
}

type helloServiceImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see hello.IHelloService)
// --------------------------------------------------------------------------

func (s *helloServiceImpl) SayHello(name string) (string, error) {
	if name == "" {
		return "", errors.New("name must not be empty")
	}
	return "Hello, " + name, nil
}
