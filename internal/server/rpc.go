// Package server implements the JSON-RPC 2.0 stream-socket front end:
// socket lifecycle, per-connection framing and rate limiting, batch
// dispatch, progress notifications, and verb routing into the tool
// dispatcher.
package server

import (
	"encoding/json"
)

// Request is a single JSON-RPC 2.0 request or notification. A notification
// omits ID.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether this request carries no id and therefore
// expects no reply.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// metaParams captures the one field of params the server itself reads
// before handing params off to the dispatcher: the progress token.
type metaParams struct {
	Meta struct {
		ProgressToken string `json:"progressToken"`
	} `json:"_meta"`
}

// progressToken extracts params._meta.progressToken, returning "" if absent
// or params isn't a JSON object.
func progressToken(params json.RawMessage) string {
	if len(params) == 0 {
		return ""
	}
	var m metaParams
	if err := json.Unmarshal(params, &m); err != nil {
		return ""
	}
	return m.Meta.ProgressToken
}

// RPCError is the {code, message} error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is a single JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Notification is a server-initiated, id-less JSON-RPC message such as
// $/progress.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

func newResult(id json.RawMessage, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func newError(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// ProgressParams is the params payload of a $/progress notification.
type ProgressParams struct {
	ProgressToken string `json:"progressToken"`
	Progress      int    `json:"progress"`
	Total         int    `json:"total"`
	Message       string `json:"message,omitempty"`
}

func progressNotification(p ProgressParams) Notification {
	return Notification{JSONRPC: "2.0", Method: "$/progress", Params: p}
}
