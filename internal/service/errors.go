package service

import "fmt"

type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindNotFound
	KindAccessDenied
	KindConflict
	KindForbidden
	KindInvalidState
	KindUnauthenticated
	KindOperationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindOperationFailed:
		return "operation_failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error 业务错误。Message 可以直接返回给客户端，Err 只用于日志。
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidInput(msg string) *Error    { return &Error{Kind: KindInvalidInput, Message: msg} }
func notFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func accessDenied(msg string) *Error    { return &Error{Kind: KindAccessDenied, Message: msg} }
func conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }
func forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func invalidState(msg string) *Error    { return &Error{Kind: KindInvalidState, Message: msg} }
func unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }

func operationFailed(msg string, err error) *Error {
	return &Error{Kind: KindOperationFailed, Message: msg, Err: err}
}
