package apicall

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/starius/apicall/internal/shared"
)

// MalformedRouteError is returned when a route placeholder has no value.
// No request is sent in this case.
type MalformedRouteError struct {
	Template string
	Path     string
	Missing  []string
}

func (e *MalformedRouteError) Error() string {
	return fmt.Sprintf("route %q has unresolved placeholders {%s} (resolved path %q)",
		e.Template, strings.Join(e.Missing, "}, {"), e.Path)
}

// TransportError means the request could not be sent or the response
// could not be read.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response that the declared shape does not map.
type StatusError struct {
	Code   int
	Status string
	Header http.Header
	Body   []byte
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	if len(e.Body) == 0 {
		return "unexpected response status " + status
	}
	if msg, ok := shared.ParseErrorMessage(e.Body); ok {
		return fmt.Sprintf("unexpected response status %s: %s", status, msg.Text())
	}
	return fmt.Sprintf("unexpected response status %s: %s", status, truncate(e.Body, 256))
}

// Message returns the error text of the response. JSON envelopes of the
// form {"error": ...} or {"message": ...} are unwrapped; other bodies are
// returned with surrounding whitespace trimmed.
func (e *StatusError) Message() string {
	if msg, ok := shared.ParseErrorMessage(e.Body); ok {
		return msg.Text()
	}
	return strings.TrimSpace(string(e.Body))
}

// ErrorCode returns the "code" field of a JSON error envelope, or "".
func (e *StatusError) ErrorCode() string {
	if msg, ok := shared.ParseErrorMessage(e.Body); ok {
		return msg.Code
	}
	return ""
}

func (e *StatusError) HttpCode() int {
	return e.Code
}

// UnmappedVariantError is returned when no variant of a union matches
// the response status. For non-2xx responses it wraps a *StatusError.
type UnmappedVariantError struct {
	Union  string
	Status int
	Body   []byte

	err error
}

func (e *UnmappedVariantError) Error() string {
	return fmt.Sprintf("union %s has no variant for status %d", e.Union, e.Status)
}

func (e *UnmappedVariantError) Unwrap() error {
	return e.err
}

func (e *UnmappedVariantError) HttpCode() int {
	return e.Status
}

// TranslationError means the response body could not be decoded into the
// declared type.
type TranslationError struct {
	Type        string
	ContentType string
	Body        []byte
	Err         error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("failed to decode %q response as %s: %v", e.ContentType, e.Type, e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
