package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type scriptedTool struct {
	spec   ToolSpec
	invoke func(ctx context.Context, req ToolRequest) (ToolResponse, error)
}

func (t *scriptedTool) Spec() ToolSpec { return t.spec }

func (t *scriptedTool) Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error) {
	return t.invoke(ctx, req)
}

func newTestInvoker(t *testing.T, timeout time.Duration, tools ...Tool) *Invoker {
	t.Helper()
	registry, err := NewRegistry(tools...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewInvoker(registry, timeout)
}

func TestInvokeUnknownTool(t *testing.T) {
	inv := newTestInvoker(t, time.Second)

	result := inv.Invoke(context.Background(), ToolCall{CallID: "c1", ToolName: "nope"})
	if result.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", result.Status)
	}
	if result.Err == nil || result.Err.Kind != ErrKindToolNotFound {
		t.Fatalf("expected tool_not_found, got %+v", result.Err)
	}
	if result.CallID != "c1" {
		t.Fatalf("call id not preserved: %s", result.CallID)
	}
}

func TestInvokeValidatesArguments(t *testing.T) {
	tool := &scriptedTool{
		spec: ToolSpec{
			Name: "get_alerts",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []string{"state"},
				"properties": map[string]any{
					"state": map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer"},
					"level": map[string]any{"type": "string", "enum": []string{"severe", "extreme"}},
				},
			},
		},
		invoke: func(context.Context, ToolRequest) (ToolResponse, error) {
			return ToolResponse{Content: "ran"}, nil
		},
	}
	inv := newTestInvoker(t, time.Second, tool)

	cases := []struct {
		name   string
		args   map[string]any
		detail string
	}{
		{"missing required", map[string]any{}, "missing required argument"},
		{"wrong type", map[string]any{"state": 12}, "expected string"},
		{"bad enum", map[string]any{"state": "NE", "level": "mild"}, "not in enum"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := inv.Invoke(context.Background(), ToolCall{CallID: "c", ToolName: "get_alerts", Arguments: tc.args})
			if result.Status != StatusFailed || result.Err == nil || result.Err.Kind != ErrKindInvalidArguments {
				t.Fatalf("expected invalid_arguments, got %+v", result)
			}
			if !strings.Contains(result.Err.Detail, tc.detail) {
				t.Fatalf("detail %q missing %q", result.Err.Detail, tc.detail)
			}
		})
	}

	// The handler must not have been reached for any rejected call; a valid
	// call still goes through.
	result := inv.Invoke(context.Background(), ToolCall{CallID: "ok", ToolName: "get_alerts", Arguments: map[string]any{"state": "NE", "limit": 3}})
	if !result.OK() || result.Payload != "ran" {
		t.Fatalf("expected success, got %+v", result)
	}
}

func TestInvokeNormalizesHandlerError(t *testing.T) {
	tool := &scriptedTool{
		spec: ToolSpec{Name: "get_forecast"},
		invoke: func(context.Context, ToolRequest) (ToolResponse, error) {
			return ToolResponse{}, errors.New("upstream went away")
		},
	}
	inv := newTestInvoker(t, time.Second, tool)

	result := inv.Invoke(context.Background(), ToolCall{CallID: "c", ToolName: "get_forecast"})
	if result.Status != StatusFailed || result.Err == nil || result.Err.Kind != ErrKindHandlerError {
		t.Fatalf("expected handler_error, got %+v", result)
	}
	if !strings.Contains(result.Err.Detail, "upstream went away") {
		t.Fatalf("detail lost: %q", result.Err.Detail)
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	tool := &scriptedTool{
		spec: ToolSpec{Name: "get_forecast"},
		invoke: func(context.Context, ToolRequest) (ToolResponse, error) {
			panic("boom")
		},
	}
	inv := newTestInvoker(t, time.Second, tool)

	result := inv.Invoke(context.Background(), ToolCall{CallID: "c", ToolName: "get_forecast"})
	if result.Status != StatusFailed || result.Err == nil || result.Err.Kind != ErrKindHandlerError {
		t.Fatalf("expected handler_error from panic, got %+v", result)
	}
	if !strings.Contains(result.Err.Detail, "boom") {
		t.Fatalf("panic value lost: %q", result.Err.Detail)
	}
}

func TestInvokeTimesOut(t *testing.T) {
	tool := &scriptedTool{
		spec: ToolSpec{Name: "get_forecast"},
		invoke: func(ctx context.Context, _ ToolRequest) (ToolResponse, error) {
			<-ctx.Done()
			return ToolResponse{}, ctx.Err()
		},
	}
	inv := newTestInvoker(t, 20*time.Millisecond, tool)

	start := time.Now()
	result := inv.Invoke(context.Background(), ToolCall{CallID: "c", ToolName: "get_forecast"})
	if result.Status != StatusTimedOut || result.Err == nil || result.Err.Kind != ErrKindTimedOut {
		t.Fatalf("expected timed_out, got %+v", result)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
}

func TestInvokeParentCancellationIsFailureNotTimeout(t *testing.T) {
	tool := &scriptedTool{
		spec: ToolSpec{Name: "get_forecast"},
		invoke: func(ctx context.Context, _ ToolRequest) (ToolResponse, error) {
			<-ctx.Done()
			return ToolResponse{}, ctx.Err()
		},
	}
	inv := newTestInvoker(t, time.Minute, tool)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result := inv.Invoke(ctx, ToolCall{CallID: "c", ToolName: "get_forecast"})
	if result.Status != StatusFailed || result.Err == nil || result.Err.Kind != ErrKindHandlerError {
		t.Fatalf("expected cancellation to surface as failure, got %+v", result)
	}
}
