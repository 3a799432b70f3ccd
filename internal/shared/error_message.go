// Package shared holds wire formats used by several apicall packages.
package shared

import (
	"bytes"
	"encoding/json"
)

// ErrorMessage is the JSON error envelope returned by many API servers:
// {"error": "...", "code": "...", "detail": {...}}. Some servers use
// "message" instead of "error".
type ErrorMessage struct {
	Error   string          `json:"error"`
	Message string          `json:"message,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// Text returns the human readable part of the envelope.
func (m *ErrorMessage) Text() string {
	if m.Error != "" {
		return m.Error
	}
	return m.Message
}

// ParseErrorMessage decodes body as an error envelope. It reports false
// if body is not a JSON object or carries no message.
func ParseErrorMessage(body []byte) (*ErrorMessage, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, false
	}
	var m ErrorMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, false
	}
	if m.Text() == "" {
		return nil, false
	}
	return &m, true
}
