package agent

import "context"

// ToolSpec describes how a tool presents itself to the controller.
type ToolSpec struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema,omitempty"`
}

// ToolRequest captures an invocation request for a tool.
type ToolRequest struct {
	SessionID string
	Arguments map[string]any
}

// ToolResponse is the structured payload returned by a tool handler.
type ToolResponse struct {
	Content  any
	Metadata map[string]string
}

// Tool exposes structured metadata and an invocation handler.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error)
}

// ToolCall is a single correlated invocation issued by the controller.
// CallID is unique per call; results are matched by it, never by arrival order.
type ToolCall struct {
	CallID    string
	ToolName  string
	SessionID string
	Arguments map[string]any
}

// ToolStatus classifies the outcome of a tool call.
type ToolStatus string

const (
	StatusOK       ToolStatus = "ok"
	StatusFailed   ToolStatus = "failed"
	StatusTimedOut ToolStatus = "timed_out"
)

// ToolErrorKind enumerates the normalized failure categories a call can produce.
type ToolErrorKind string

const (
	ErrKindToolNotFound     ToolErrorKind = "tool_not_found"
	ErrKindInvalidArguments ToolErrorKind = "invalid_arguments"
	ErrKindHandlerError     ToolErrorKind = "handler_error"
	ErrKindTimedOut         ToolErrorKind = "timed_out"
)

// ToolError carries the normalized failure detail inside a ToolResult.
type ToolError struct {
	Kind   ToolErrorKind `json:"kind"`
	Detail string        `json:"detail,omitempty"`
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

// ToolResult is the settled outcome of exactly one ToolCall.
type ToolResult struct {
	CallID  string
	Status  ToolStatus
	Payload any
	Err     *ToolError
}

// OK reports whether the call settled successfully.
func (r ToolResult) OK() bool { return r.Status == StatusOK }
