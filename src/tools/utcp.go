package tools

import (
	"context"
	"fmt"

	utcp "github.com/universal-tool-calling-protocol/go-utcp"
	utcptools "github.com/universal-tool-calling-protocol/go-utcp/src/tools"

	agent "github.com/stratoflow/weather-agent"
)

// RemoteTool adapts a tool discovered through a UTCP client into the
// registry's Tool contract, so externally served weather providers can
// replace or extend the builtin backends without code changes.
type RemoteTool struct {
	Client utcp.UtcpClientInterface
	Tool   utcptools.Tool
}

func (t *RemoteTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        t.Tool.Name,
		Description: t.Tool.Description,
		InputSchema: schemaToMap(t.Tool.Inputs),
	}
}

func (t *RemoteTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	out, err := t.Client.CallTool(ctx, t.Tool.Name, req.Arguments)
	if err != nil {
		return agent.ToolResponse{}, fmt.Errorf("utcp call %s: %w", t.Tool.Name, err)
	}
	return agent.ToolResponse{
		Content:  out,
		Metadata: map[string]string{"source": "utcp"},
	}, nil
}

// DiscoverRemoteTools registers every tool the UTCP client can see. Names
// already taken by builtin tools are skipped rather than overridden.
func DiscoverRemoteTools(registry *agent.Registry, client utcp.UtcpClientInterface) (int, error) {
	discovered, err := client.SearchTools("", 50)
	if err != nil {
		return 0, fmt.Errorf("utcp search: %w", err)
	}
	registered := 0
	for _, tool := range discovered {
		if _, _, exists := registry.Lookup(tool.Name); exists {
			continue
		}
		if err := registry.Register(&RemoteTool{Client: client, Tool: tool}); err != nil {
			return registered, err
		}
		registered++
	}
	return registered, nil
}

func schemaToMap(schema utcptools.ToolInputOutputSchema) map[string]any {
	out := map[string]any{}
	if schema.Type != "" {
		out["type"] = schema.Type
	}
	if len(schema.Properties) > 0 {
		out["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}

var _ agent.Tool = (*RemoteTool)(nil)
