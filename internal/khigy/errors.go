package khigy

import "fmt"

// Protocol error codes sent in wire.Error.
const (
	CodeInvalidObject uint32 = iota + 1
	CodeInvalidMethod
	CodeInvalidMessage
	CodeRole
	CodeInvalidParent
	CodeInvalidBuffer
)

// ProtocolError is a client mistake. The client that caused it receives it as
// a fatal error event and is disconnected.
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %d (code %d): %s", e.Object, e.Code, e.Message)
}

func protocolErrorf(object, code uint32, format string, args ...any) *ProtocolError {
	return &ProtocolError{Object: object, Code: code, Message: fmt.Sprintf(format, args...)}
}
