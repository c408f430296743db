package errcode

import (
	"errors"
	"fmt"
)

// Kind 是业务错误的分类，由 HTTP 层统一映射为状态码。
type Kind int

const (
	Internal Kind = iota
	InvalidRequest
	Unauthenticated
	NotFound
	Conflict
)

func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid_request"
	case Unauthenticated:
		return "unauthenticated"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error 携带面向用户的消息，Cause 仅用于日志。
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Invalid(message string) *Error      { return New(InvalidRequest, message) }
func Missing(message string) *Error      { return New(NotFound, message) }
func Duplicate(message string) *Error    { return New(Conflict, message) }
func Unauthorized(message string) *Error { return New(Unauthenticated, message) }

// Internalf 包装未预期的失败，对外只暴露通用消息。
func Internalf(cause error, format string, args ...any) *Error {
	return Wrap(Internal, "Server Error", fmt.Errorf(format+": %w", append(args, cause)...))
}

// KindOf 返回错误的分类，非 *Error 一律视为 Internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is 判断 err 是否属于指定分类。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
