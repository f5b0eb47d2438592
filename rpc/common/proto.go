package common

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType is the one byte discriminant carried in every frame header.
// It selects the concrete Message the payload is decoded into.
type MessageType uint8

const (
	MsgTRequest  MessageType = 0 // Caller -> callee
	MsgTResponse MessageType = 1 // Callee -> caller
)

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTRequest:
		return "request"
	case MsgTResponse:
		return "response"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is implemented by every logical payload exchanged on the wire.
type Message interface {
	// SeqID returns the correlation id of the message
	SeqID() uint32
	// SetSeqID sets the correlation id of the message
	SetSeqID(id uint32)
	// Type returns the discriminant matching the concrete variant
	Type() MessageType
}

// NewMessage allocates an empty decode target for the given message type.
func NewMessage(t MessageType) (Message, error) {
	switch t {
	case MsgTRequest:
		return &RequestMessage{}, nil
	case MsgTResponse:
		return &ResponseMessage{}, nil
	default:
		return nil, errors.Wrapf(ErrSerialization, "unknown message type %d", uint8(t))
	}
}

// RequestMessage carries a single method invocation.
type RequestMessage struct {
	SequenceID      uint32           `json:"sequenceId"`
	InterfaceName   string           `json:"interfaceName"`
	MethodName      string           `json:"methodName"`
	ParameterTypes  []TypeDescriptor `json:"parameterTypes"`
	ParameterValues []any            `json:"parameterValues"`
	ReturnType      TypeDescriptor   `json:"returnType"`
}

func (m *RequestMessage) SeqID() uint32      { return m.SequenceID }
func (m *RequestMessage) SetSeqID(id uint32) { m.SequenceID = id }
func (m *RequestMessage) Type() MessageType  { return MsgTRequest }

// NewRequest builds the request for invoking method on iface with args
func NewRequest(seq uint32, iface string, method MethodDescriptor, args ...any) *RequestMessage {
	return &RequestMessage{
		SequenceID:      seq,
		InterfaceName:   iface,
		MethodName:      method.Name,
		ParameterTypes:  method.ParamTypes,
		ParameterValues: args,
		ReturnType:      method.ReturnType,
	}
}

// Validate checks the structural invariants of a request
func (m *RequestMessage) Validate() error {
	if m.InterfaceName == "" {
		return errors.Wrap(ErrSerialization, "request without interface name")
	}
	if m.MethodName == "" {
		return errors.Wrap(ErrSerialization, "request without method name")
	}
	if len(m.ParameterTypes) != len(m.ParameterValues) {
		return errors.Wrapf(ErrSerialization, "request declares %d parameter types but carries %d values",
			len(m.ParameterTypes), len(m.ParameterValues))
	}
	return nil
}

// Signature returns the lookup key of the requested method
func (m *RequestMessage) Signature() string {
	return signature(m.MethodName, m.ParameterTypes)
}

// ResponseMessage carries the outcome of a single invocation. Error is set
// if and only if the invocation failed; ReturnValue is nil for failed calls
// and for methods declared with TypeVoid.
type ResponseMessage struct {
	SequenceID  uint32       `json:"sequenceId"`
	ReturnValue any          `json:"returnValue,omitempty"`
	Error       *RemoteError `json:"error,omitempty"`
}

func (m *ResponseMessage) SeqID() uint32      { return m.SequenceID }
func (m *ResponseMessage) SetSeqID(id uint32) { m.SequenceID = id }
func (m *ResponseMessage) Type() MessageType  { return MsgTResponse }

// Failed reports whether the response carries an error
func (m *ResponseMessage) Failed() bool {
	return m.Error != nil
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSuccessResponse creates a response carrying a return value
func NewSuccessResponse(seq uint32, value any) *ResponseMessage {
	return &ResponseMessage{
		SequenceID:  seq,
		ReturnValue: value,
	}
}

// NewErrorResponse creates a response carrying the structured form of err
func NewErrorResponse(seq uint32, err error) *ResponseMessage {
	return &ResponseMessage{
		SequenceID: seq,
		Error:      NewRemoteError(err),
	}
}

// --------------------------------------------------------------------------
// Method Descriptors
// --------------------------------------------------------------------------

// MethodDescriptor describes a remote method at compile time. The pair of
// Name and ParamTypes identifies the method on the remote interface, no
// overload resolution beyond an exact match is performed.
type MethodDescriptor struct {
	Name       string
	ParamTypes []TypeDescriptor
	ReturnType TypeDescriptor
}

// Signature returns the lookup key of the method, e.g. "Add(int,int)"
func (d MethodDescriptor) Signature() string {
	return signature(d.Name, d.ParamTypes)
}

func signature(name string, params []TypeDescriptor) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(p))
	}
	sb.WriteByte(')')
	return sb.String()
}
