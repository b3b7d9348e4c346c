// Package errors provides the error type used across the service. It wraps an
// underlying error with a stack trace, a classification code used for
// transport mapping, and an optional public message so that internal detail is
// never surfaced to callers.
//
// It can be used interchangeably with code expecting a standard error, and
// re-exports Is/As so callers don't need to import both this package and the
// standard library.
//
// For example:
//
//	var ErrInvalidCredentials = errors.NewC("invalid credentials", errors.Unauthenticated)
//
//	func login() error {
//	    return errors.Mark(ErrInvalidCredentials, 0)
//	}
package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"reflect"
	"runtime"
)

// MaxStackDepth is the maximum number of stackframes on any error.
var MaxStackDepth = 50

// Error is an error with an attached stacktrace, classification code, and
// optional public message. It can be used wherever the builtin error interface
// is expected.
type Error struct {
	Err    error
	stack  []uintptr
	frames []StackFrame
	prefix string

	// Classification used to derive transport responses.
	code Code

	// Explicit HTTP status, overriding the code's default mapping.
	httpStatus int

	// Message safe to return to clients. When empty, Error() is used.
	publicMessage string
}

// New makes an Error from the given value. If that value is already an error
// then it will be used directly, if not, it will be passed to
// fmt.Errorf("%v"). The stacktrace will point to the line of code that called
// New.
func New(e interface{}) *Error {
	return NewC(e, Unknown)
}

// NewC makes an Error with a classification code.
func NewC(e interface{}, code Code) *Error {
	var err error
	switch e := e.(type) {
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2, stack[:])
	return &Error{
		Err:   err,
		stack: stack[:length],
		code:  code,
	}
}

// Codef is a convenience for NewC with a formatted message.
func Codef(code Code, format string, a ...interface{}) *Error {
	e := NewC(fmt.Errorf(format, a...), code)
	e.stack = e.stack[1:]
	return e
}

// Errorf creates a new error with the given message. It can be used as a
// drop-in replacement for fmt.Errorf() and supports the %w verb.
func Errorf(format string, a ...interface{}) *Error {
	return Wrap(fmt.Errorf(format, a...), 1)
}

// Wrap makes an Error from the given value. If that value is already an
// *Error it is returned unmodified. The skip parameter indicates how far up
// the stack to start the stacktrace. 0 is from the current call, 1 from its
// caller, etc.
func Wrap(e interface{}, skip int) *Error {
	if e == nil {
		return nil
	}

	var err error
	switch e := e.(type) {
	case *Error:
		return e
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2+skip, stack[:])
	return &Error{
		Err:   err,
		stack: stack[:length],
		code:  Unknown,
	}
}

// WrapPrefix is like Wrap but prepends a prefix to the error message.
func WrapPrefix(e interface{}, prefix string, skip int) *Error {
	if e == nil {
		return nil
	}

	err := Wrap(e, 1+skip)
	if err.prefix != "" {
		prefix = fmt.Sprintf("%s: %s", prefix, err.prefix)
	}

	return &Error{
		Err:           err.Err,
		stack:         err.stack,
		code:          err.code,
		httpStatus:    err.httpStatus,
		publicMessage: err.publicMessage,
		prefix:        prefix,
	}
}

// Mark takes an error and sets the stack trace from the point it was called,
// overriding any previous stack trace that may have been set, while keeping
// the error's code and public message. This is the usual way to return a
// package-level sentinel error so that the trace points at the return site.
func Mark(e interface{}, skip int) *Error {
	if e == nil {
		return nil
	}
	if err, ok := e.(*Error); ok {
		stack := make([]uintptr, MaxStackDepth)
		length := runtime.Callers(2+skip, stack[:])
		// Wrapping the error itself, not its cause, keeps sentinel values
		// reachable through standard Unwrap traversal.
		return &Error{
			Err:           err,
			stack:         stack[:length],
			code:          err.code,
			httpStatus:    err.httpStatus,
			publicMessage: err.publicMessage,
		}
	}
	return Wrap(e, 1+skip)
}

// MaybeWrap wraps an error if it is non-nil, otherwise returns nil. Unlike
// Wrap it is safe to use directly in a return statement.
func MaybeWrap(err error, skip int) error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1+skip)
}

// WithCode takes an error and adds a classification code to it. If the error
// is not already an *Error, it will be wrapped in one.
func WithCode(err error, code Code) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1).WithCode(code)
}

// WithHTTPStatusCode takes an error and adds an explicit HTTP status to it.
// If the error is not already an *Error, it will be wrapped in one.
func WithHTTPStatusCode(err error, status int) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1).WithHTTPStatusCode(status)
}

// WithPublicMessage takes an error and adds a public message to it. If the
// error is not already an *Error, it will be wrapped in one.
func WithPublicMessage(err error, publicMessage string) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1).WithPublicMessage(publicMessage)
}

// Is detects whether the error is equal to a given error. Errors are
// considered equal by this function if they are matched by errors.Is or if
// their contained errors are matched through it.
func Is(e error, original error) bool {
	if stderrors.Is(e, original) {
		return true
	}
	if original, ok := original.(*Error); ok {
		return Is(e, original.Err)
	}
	return false
}

// As finds the first error in err's tree that matches target. Re-exported
// from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Error returns the underlying error's message.
func (err *Error) Error() string {
	msg := err.Err.Error()
	if err.prefix != "" {
		msg = fmt.Sprintf("%s: %s", err.prefix, msg)
	}
	return msg
}

// Unwrap the error (implements api for As/Is functions).
func (err *Error) Unwrap() error {
	return err.Err
}

// Append adds additional context to the error message, returning the receiver
// for chaining.
func (err *Error) Append(msg string) *Error {
	err.Err = fmt.Errorf("%w: %s", err.Err, msg)
	return err
}

// Code returns the classification code associated with the error.
func (err *Error) Code() Code {
	return err.code
}

// WithCode sets the classification code associated with the error.
func (err *Error) WithCode(code Code) *Error {
	err.code = code
	return err
}

// HTTPStatusCode returns the HTTP status that should be returned to the
// client. If an explicit status was set it is used, otherwise the code's
// default mapping.
func (err *Error) HTTPStatusCode() int {
	if err.httpStatus != 0 {
		return err.httpStatus
	}
	return err.code.HTTPStatus()
}

// WithHTTPStatusCode sets an explicit HTTP status, overriding the status
// mapped from the classification code.
func (err *Error) WithHTTPStatusCode(status int) *Error {
	err.httpStatus = status
	return err
}

// PublicMessage returns the error string that should be returned to clients.
func (err *Error) PublicMessage() string {
	if err.publicMessage != "" {
		return err.publicMessage
	}
	return err.Error()
}

// WithPublicMessage sets the error string that should be returned to clients.
func (err *Error) WithPublicMessage(publicMessage string) *Error {
	err.publicMessage = publicMessage
	return err
}

// Stack returns the callstack formatted the same way that go does in
// runtime/debug.Stack().
func (err *Error) Stack() []byte {
	buf := bytes.Buffer{}
	for _, frame := range err.StackFrames() {
		buf.WriteString(frame.String())
	}
	return buf.Bytes()
}

// ErrorStack returns a string that contains both the error message and the
// callstack.
func (err *Error) ErrorStack() string {
	return err.TypeName() + " " + err.Error() + "\n" + string(err.Stack())
}

// StackFrames returns an array of frames containing information about the
// stack.
func (err *Error) StackFrames() []StackFrame {
	if err.frames == nil {
		err.frames = make([]StackFrame, len(err.stack))
		for i, pc := range err.stack {
			err.frames[i] = NewStackFrame(pc)
		}
	}
	return err.frames
}

// TypeName returns the type of this error. e.g. *errors.stringError.
func (err *Error) TypeName() string {
	return reflect.TypeOf(err.Err).String()
}

// CodeOf returns the classification code for an error. If the error is nil,
// it returns OK. If the error exposes a `Code()` method, it is used.
// Otherwise Unknown is returned.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var coded codedError
	if stderrors.As(err, &coded) {
		return coded.Code()
	}
	return Unknown
}

// HTTPStatusCode returns an HTTP status code for an error. If the error is
// nil, it returns 200. If the error exposes a `HTTPStatusCode()` method, it
// is used. Otherwise 500 is returned.
func HTTPStatusCode(err error) int {
	if err == nil {
		return 200
	}
	var herr httpError
	if stderrors.As(err, &herr) {
		return herr.HTTPStatusCode()
	}
	return 500
}

// PublicMessage returns the message safe to surface to a client for an error.
// Errors without an explicit public message that classify as Internal or
// Unknown collapse to a generic message so internal detail never leaks.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		if e.publicMessage != "" {
			return e.publicMessage
		}
		if e.code != Internal && e.code != Unknown {
			return e.Error()
		}
	}
	return "Internal server error"
}

type codedError interface {
	Code() Code
}

type httpError interface {
	HTTPStatusCode() int
}
