// Package ipc is the compositor's control socket: one newline-terminated JSON
// request per connection, answered by one JSON response.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/khigy/internal/khigy"
)

// CommandType names a control request.
type CommandType string

const (
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandListToplevels CommandType = "LIST_TOPLEVELS"
	CommandQuit          CommandType = "QUIT"
)

// Response status values.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData is the data returned by GET_STATUS.
type StatusData = khigy.Status

// ListToplevelsPayload optionally narrows LIST_TOPLEVELS.
type ListToplevelsPayload struct {
	AppID string `json:"app_id,omitempty"`
}

// ToplevelsData is the data returned by LIST_TOPLEVELS.
type ToplevelsData struct {
	Toplevels []khigy.ToplevelInfo `json:"toplevels"`
}

// NewRequest builds a request, encoding payload when it is non-nil.
func NewRequest(cmd CommandType, payload any) (*Request, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	return req, nil
}

// DecodePayload unmarshals the payload into v. A missing payload leaves v
// untouched.
func (r *Request) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", r.Command, err)
	}
	return nil
}

func NewOKResponse(data any) (*Response, error) {
	resp := &Response{Status: StatusOK}
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		resp.Data = bytes
	}
	return resp, nil
}

func NewErrorResponse(errMsg string) *Response {
	return &Response{Status: StatusError, Error: errMsg}
}

func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("failed to parse request: missing command")
	}
	return &req, nil
}

func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
