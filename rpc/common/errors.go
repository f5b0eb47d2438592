package common

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

var (
	// ErrFraming is returned for bad magic/version, truncated or oversize frames
	ErrFraming = errors.New("framing error")
	// ErrSerialization is returned for unknown algorithm ids, malformed payloads and type mismatches
	ErrSerialization = errors.New("serialization error")
	// ErrServiceNotFound is returned if no service is registered for the requested interface
	ErrServiceNotFound = errors.New("service not found")
	// ErrMethodNotFound is returned if the service has no method with the requested signature
	ErrMethodNotFound = errors.New("method not found")
	// ErrRemoteInvocation is returned if the target method failed during execution
	ErrRemoteInvocation = errors.New("remote invocation failed")
	// ErrConnection is returned if the transport could not be established or was lost
	ErrConnection = errors.New("connection error")
	// ErrTimeout is returned if no response arrived within the configured timeout
	ErrTimeout = errors.New("call timed out")
	// ErrRateLimited is returned if the server rejected the request due to its rate limit
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ErrorKind names an entry of the error taxonomy in a portable way
type ErrorKind string

const (
	KindFraming          ErrorKind = "FramingError"
	KindSerialization    ErrorKind = "SerializationError"
	KindServiceNotFound  ErrorKind = "ServiceNotFoundError"
	KindMethodNotFound   ErrorKind = "MethodNotFoundError"
	KindRemoteInvocation ErrorKind = "RemoteInvocationError"
	KindConnection       ErrorKind = "ConnectionError"
	KindTimeout          ErrorKind = "TimeoutError"
	KindRateLimited      ErrorKind = "RateLimitedError"
)

// kinds maps every kind to its sentinel, order matters for KindOf
var kinds = []struct {
	kind     ErrorKind
	sentinel error
}{
	{KindServiceNotFound, ErrServiceNotFound},
	{KindMethodNotFound, ErrMethodNotFound},
	{KindRateLimited, ErrRateLimited},
	{KindTimeout, ErrTimeout},
	{KindFraming, ErrFraming},
	{KindSerialization, ErrSerialization},
	{KindConnection, ErrConnection},
	{KindRemoteInvocation, ErrRemoteInvocation},
}

// Sentinel returns the taxonomy error belonging to the kind
func (k ErrorKind) Sentinel() error {
	for _, entry := range kinds {
		if entry.kind == k {
			return entry.sentinel
		}
	}
	return ErrRemoteInvocation
}

// KindOf classifies err. Errors outside the taxonomy are failures of the
// invoked method and classify as KindRemoteInvocation.
func KindOf(err error) ErrorKind {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Kind
	}
	for _, entry := range kinds {
		if errors.Is(err, entry.sentinel) {
			return entry.kind
		}
	}
	return KindRemoteInvocation
}

// --------------------------------------------------------------------------
// Structured Remote Error
// --------------------------------------------------------------------------

// Bounds of the stack summary sent over the wire
const (
	maxStackLines = 12
	maxStackBytes = 320
)

// RemoteError is the portable error value carried in a ResponseMessage.
// It does not depend on shared type definitions between the two endpoints.
type RemoteError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Stack   string    `json:"stack,omitempty"`
}

// NewRemoteError converts err into its structured form
func NewRemoteError(err error) *RemoteError {
	if err == nil {
		return nil
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote
	}
	return &RemoteError{
		Kind:    KindOf(err),
		Message: err.Error(),
		Stack:   StackSummary(err),
	}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is makes errors.Is(remoteErr, ErrServiceNotFound) and friends work on the caller side
func (e *RemoteError) Is(target error) bool {
	return e.Kind.Sentinel() == target
}

// StackSummary returns a short textual stack trace of err if one was
// recorded (errors.WithStack and friends), otherwise an empty string.
func StackSummary(err error) string {
	verbose := fmt.Sprintf("%+v", err)
	if verbose == err.Error() {
		return ""
	}
	lines := strings.Split(verbose, "\n")
	if len(lines) > maxStackLines {
		lines = append(lines[:maxStackLines], "...")
	}
	summary := strings.Join(lines, "\n")
	if len(summary) > maxStackBytes {
		cut := maxStackBytes
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut] + "..."
	}
	return summary
}
