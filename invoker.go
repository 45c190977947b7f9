package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultToolTimeout bounds a single tool call when no timeout is configured.
const DefaultToolTimeout = 10 * time.Second

// NewCallID returns a fresh correlation id for a ToolCall.
func NewCallID() string { return uuid.NewString() }

// Invoker executes tool calls against a registry, enforcing a per-call
// timeout and normalizing every failure into a ToolResult. It never retries;
// re-invocation with a new call id is a controller decision.
type Invoker struct {
	registry *Registry
	timeout  time.Duration
}

// NewInvoker builds an invoker around the registry. A non-positive timeout
// falls back to DefaultToolTimeout.
func NewInvoker(registry *Registry, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &Invoker{registry: registry, timeout: timeout}
}

// Invoke runs one tool call to a settled result. Errors never cross this
// boundary: a missing tool, bad arguments, handler failure, panic, or timeout
// all come back as a ToolResult with the matching status and error kind.
func (inv *Invoker) Invoke(ctx context.Context, call ToolCall) ToolResult {
	tool, spec, ok := inv.registry.Lookup(call.ToolName)
	if !ok {
		return ToolResult{
			CallID: call.CallID,
			Status: StatusFailed,
			Err:    &ToolError{Kind: ErrKindToolNotFound, Detail: call.ToolName},
		}
	}

	if err := validateArguments(spec.InputSchema, call.Arguments); err != nil {
		return ToolResult{
			CallID: call.CallID,
			Status: StatusFailed,
			Err:    &ToolError{Kind: ErrKindInvalidArguments, Detail: err.Error()},
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	type outcome struct {
		resp ToolResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", rec)}
			}
		}()
		resp, err := tool.Invoke(callCtx, ToolRequest{SessionID: call.SessionID, Arguments: call.Arguments})
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return ToolResult{
				CallID: call.CallID,
				Status: StatusFailed,
				Err:    &ToolError{Kind: ErrKindHandlerError, Detail: out.err.Error()},
			}
		}
		return ToolResult{CallID: call.CallID, Status: StatusOK, Payload: out.resp.Content}
	case <-callCtx.Done():
		// Best-effort abandonment: the handler goroutine may still finish in
		// the background but its result is discarded.
		if ctx.Err() != nil {
			return ToolResult{
				CallID: call.CallID,
				Status: StatusFailed,
				Err:    &ToolError{Kind: ErrKindHandlerError, Detail: ctx.Err().Error()},
			}
		}
		return ToolResult{
			CallID: call.CallID,
			Status: StatusTimedOut,
			Err:    &ToolError{Kind: ErrKindTimedOut, Detail: fmt.Sprintf("tool %s exceeded %s", call.ToolName, inv.timeout)},
		}
	}
}

// validateArguments checks the arguments against the subset of JSON schema
// the tools declare: required keys, primitive property types, and enums.
func validateArguments(schema map[string]any, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	props, _ := schema["properties"].(map[string]any)

	for _, req := range toStringSlice(schema["required"]) {
		if _, ok := args[req]; !ok {
			return fmt.Errorf("missing required argument %q", req)
		}
	}

	for name, raw := range args {
		propRaw, ok := props[name]
		if !ok {
			continue // tolerate extra arguments, tools ignore them
		}
		prop, _ := propRaw.(map[string]any)
		wantType, _ := prop["type"].(string)
		if wantType != "" && !matchesType(wantType, raw) {
			return fmt.Errorf("argument %q: expected %s, got %T", name, wantType, raw)
		}
		if enum := toStringSlice(prop["enum"]); len(enum) > 0 {
			val := strings.TrimSpace(fmt.Sprint(raw))
			found := false
			for _, allowed := range enum {
				if val == allowed {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("argument %q: value %q not in enum", name, val)
			}
		}
	}
	return nil
}

func matchesType(want string, val any) bool {
	switch want {
	case "string":
		_, ok := val.(string)
		return ok
	case "number":
		switch val.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case "integer":
		switch v := val.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "array":
		switch val.(type) {
		case []any, []string:
			return true
		}
		return false
	case "object":
		_, ok := val.(map[string]any)
		return ok
	}
	return true
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}
