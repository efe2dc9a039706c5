// Package rpc implements the JSON-RPC 2.0 envelope and the subset of
// Language Server Protocol message types this server handles, following
// https://www.jsonrpc.org/specification and
// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/.
//
// [Message] represents all three JSON-RPC message shapes (request,
// response, notification) in a single struct; which shape a given
// Message is gets discriminated by field presence:
//   - Request: has ID and Method
//   - Response: has ID and either Result or Error
//   - Notification: has Method but no ID
package rpc

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a JSON-RPC error code.
type ErrorCode int32

// JSON-RPC 2.0 standard error codes.
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

// LSP-specific error codes.
const (
	ServerNotInitialized ErrorCode = -32002
	RequestCancelled     ErrorCode = -32800
)

// LSP method names handled or produced by this server.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "initialized"
	MethodShutdown    = "shutdown"
	MethodExit        = "exit"

	MethodDidOpen   = "textDocument/didOpen"
	MethodDidChange = "textDocument/didChange"
	MethodDidClose  = "textDocument/didClose"

	MethodHover      = "textDocument/hover"
	MethodCompletion = "textDocument/completion"

	MethodPublishDiagnostics = "textDocument/publishDiagnostics"
	MethodLogMessage         = "window/logMessage"
)

// Message has all the fields of request, response and notification.
// Unmarshaling of the discriminatory fields is deferred until the
// caller knows which shape it has.
type Message struct {
	Version Version          `json:"jsonrpc"`
	ID      *ID              `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  *json.RawMessage `json:"params,omitempty"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
}

// IsRequest reports whether m is a request (has both ID and Method).
func (m *Message) IsRequest() bool {
	return m.ID != nil && m.Method != ""
}

// IsNotification reports whether m is a notification (has Method, no ID).
func (m *Message) IsNotification() bool {
	return m.ID == nil && m.Method != ""
}

// IsResponse reports whether m is a response (has ID, no Method).
func (m *Message) IsResponse() bool {
	return m.ID != nil && m.Method == ""
}

// Error represents a structured error in a response.
type Error struct {
	Code    ErrorCode        `json:"code"`
	Message string           `json:"message"`
	Data    *json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Version is a zero-sized struct that encodes as the jsonrpc version tag
// and fails to decode anything other than "2.0".
type Version struct{}

func (Version) MarshalJSON() ([]byte, error) {
	return json.Marshal("2.0")
}

func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s != "2.0" {
		return fmt.Errorf("invalid JSON-RPC version %q", s)
	}

	return nil
}

// ID is a request identifier that can be either a string or a number.
type ID struct {
	name   string
	number int64
	isName bool
}

// NewStringID builds an ID from a string.
func NewStringID(name string) *ID {
	return &ID{name: name, isName: true}
}

// NewNumberID builds an ID from an integer.
func NewNumberID(number int64) *ID {
	return &ID{number: number}
}

func (id *ID) MarshalJSON() ([]byte, error) {
	if id.isName {
		return json.Marshal(id.name)
	}

	return json.Marshal(id.number)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID{}

	if err := json.Unmarshal(data, &id.number); err == nil {
		return nil
	}

	if err := json.Unmarshal(data, &id.name); err != nil {
		return err
	}

	id.isName = true

	return nil
}

// String renders the ID for logging.
func (id *ID) String() string {
	if id.isName {
		return id.name
	}

	return fmt.Sprintf("%d", id.number)
}
