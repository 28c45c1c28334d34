// Package protocol defines the wire types for the pixelbridge command socket.
// Commands and responses are JSON-encoded, one document per line.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Command types understood by the server.
const (
	TypeCallAPI  = "call_api"
	TypeShutdown = "shutdown"
)

// Error types reported in the error_type field of error responses.
const (
	ErrTypeDecode     = "decode_error"
	ErrTypeUnknown    = "unknown_command"
	ErrTypeResolution = "resolution_error"
	ErrTypeInvocation = "invocation_error"
)

// Response statuses. Exactly one of the two shapes is produced per command.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Command is one decoded client request.
type Command struct {
	// Type discriminates the command: "call_api" or "shutdown".
	Type string `json:"type"`
	// Params holds the type-specific payload, left raw until the type is known.
	Params json.RawMessage `json:"params,omitempty"`
}

// CallParams are the parameters of a call_api command.
type CallParams struct {
	// APIPath is the dotted path of the operation, e.g. "Image.new".
	APIPath string `json:"api_path"`
	// Args are positional arguments, applied in order.
	Args []any `json:"args"`
	// Kwargs are named arguments, bound by declared parameter name.
	Kwargs map[string]any `json:"kwargs"`
}

// Response is the server's reply to one command.
type Response struct {
	Status string `json:"status"`
	// Result is the projected return value (success only).
	Result json.RawMessage `json:"result,omitempty"`
	// Message is a human-readable error description (error only).
	Message string `json:"message,omitempty"`
	// ErrorType is a machine-readable error identifier (error only).
	ErrorType string `json:"error_type,omitempty"`
}

// Success builds a success response carrying result.
func Success(result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Response{Status: StatusSuccess, Result: raw}, nil
}

// Error builds an error response with the given error type and message.
func Error(errType, format string, args ...any) *Response {
	return &Response{
		Status:    StatusError,
		Message:   fmt.Sprintf(format, args...),
		ErrorType: errType,
	}
}

// snippetLen bounds how much of a malformed frame is echoed back in errors.
const snippetLen = 120

// DecodeCommand parses one frame into a Command. The error message includes a
// snippet of the raw frame so clients can locate the malformed input.
func DecodeCommand(frame []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return nil, fmt.Errorf("invalid command frame %q: %w", snippet(frame), err)
	}
	if cmd.Type == "" {
		return nil, fmt.Errorf("invalid command frame %q: missing type", snippet(frame))
	}
	return &cmd, nil
}

// ParseCallParams decodes the params of a call_api command. Absent args and
// kwargs default to empty rather than nil.
func ParseCallParams(raw json.RawMessage) (*CallParams, error) {
	var p CallParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid call_api params %q: %w", snippet(raw), err)
		}
	}
	if p.Args == nil {
		p.Args = []any{}
	}
	if p.Kwargs == nil {
		p.Kwargs = map[string]any{}
	}
	return &p, nil
}

func snippet(b []byte) string {
	if len(b) > snippetLen {
		return string(b[:snippetLen]) + "..."
	}
	return string(b)
}
