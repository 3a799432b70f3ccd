// Package errors maps failures of apicall calls to gRPC status codes, so
// tests can assert the kind of a failure without matching HTTP statuses.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/starius/apicall"
	"google.golang.org/grpc/codes"
)

// CodeError is an error with a code. Test servers return it from handlers
// and write HttpCode() as the response status.
type CodeError struct {
	code codes.Code
	err  error
}

func (e *CodeError) Error() string {
	return e.err.Error()
}

func (e *CodeError) Unwrap() error {
	return e.err
}

func (e *CodeError) Code() codes.Code {
	return e.code
}

func (e *CodeError) HttpCode() int {
	return runtime.HTTPStatusFromCode(e.code)
}

// New returns an error with code and a formatted message.
func New(code codes.Code, format string, a ...any) *CodeError {
	return &CodeError{
		code: code,
		err:  fmt.Errorf(format, a...),
	}
}

// InvalidArgument indicates client specified an invalid argument.
func InvalidArgument(format string, a ...any) *CodeError {
	return New(codes.InvalidArgument, format, a...)
}

// NotFound means some requested entity was not found.
func NotFound(format string, a ...any) *CodeError {
	return New(codes.NotFound, format, a...)
}

// AlreadyExists means an attempt to create an entity failed because one
// already exists.
func AlreadyExists(format string, a ...any) *CodeError {
	return New(codes.AlreadyExists, format, a...)
}

func PermissionDenied(format string, a ...any) *CodeError {
	return New(codes.PermissionDenied, format, a...)
}

func Unauthenticated(format string, a ...any) *CodeError {
	return New(codes.Unauthenticated, format, a...)
}

// Internal errors. Means some invariants expected by underlying
// system has been broken.
func Internal(format string, a ...any) *CodeError {
	return New(codes.Internal, format, a...)
}

type httpCoder interface {
	HttpCode() int
}

// Code returns the code of an error returned by apicall.Client.Call.
//
// Response statuses are mapped back with FromHTTPStatus. Broken routes
// are InvalidArgument, undecodable responses are Internal and failed
// requests are Unavailable unless the context was done.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	var codeErr *CodeError
	if stderrors.As(err, &codeErr) {
		return codeErr.code
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return codes.Canceled
	case stderrors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}

	var (
		routeErr     *apicall.MalformedRouteError
		transportErr *apicall.TransportError
		decodeErr    *apicall.TranslationError
		coder        httpCoder
	)
	switch {
	case stderrors.As(err, &routeErr):
		return codes.InvalidArgument
	case stderrors.As(err, &transportErr):
		return codes.Unavailable
	case stderrors.As(err, &decodeErr):
		return codes.Internal
	case stderrors.As(err, &coder):
		return FromHTTPStatus(coder.HttpCode())
	}

	return codes.Unknown
}

// FromHTTPStatus is the inverse of runtime.HTTPStatusFromCode. When
// several codes share a status, the one with the lowest value wins.
func FromHTTPStatus(status int) codes.Code {
	for code := codes.OK; code <= codes.Unauthenticated; code++ {
		if runtime.HTTPStatusFromCode(code) == status {
			return code
		}
	}
	switch {
	case 200 <= status && status < 300:
		return codes.OK
	case status == http.StatusMethodNotAllowed:
		return codes.Unimplemented
	case 400 <= status && status < 500:
		return codes.FailedPrecondition
	}
	return codes.Unknown
}
