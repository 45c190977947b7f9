package agent

import (
	"context"
	"errors"
	"testing"
)

type namedTool struct {
	name string
}

func (t *namedTool) Spec() ToolSpec {
	return ToolSpec{Name: t.name, Description: "test tool"}
}

func (t *namedTool) Invoke(context.Context, ToolRequest) (ToolResponse, error) {
	return ToolResponse{Content: "ok"}, nil
}

func TestRegistryLookup(t *testing.T) {
	registry, err := NewRegistry(&namedTool{name: "geocode_location"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tool, spec, ok := registry.Lookup("Geocode_Location")
	if !ok {
		t.Fatal("expected lookup to succeed case-insensitively")
	}
	if tool == nil || spec.Name != "geocode_location" {
		t.Fatalf("unexpected lookup result: %+v", spec)
	}

	if _, _, ok := registry.Lookup("missing"); ok {
		t.Fatal("expected lookup miss for unknown tool")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry, err := NewRegistry(&namedTool{name: "get_forecast"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	err = registry.Register(&namedTool{name: "GET_FORECAST"})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}

	if _, err := NewRegistry(&namedTool{name: "a"}, &namedTool{name: "a"}); !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected strict construction to fail, got %v", err)
	}
}

func TestRegistrySpecsKeepRegistrationOrder(t *testing.T) {
	registry, err := NewRegistry(
		&namedTool{name: "geocode_location"},
		&namedTool{name: "get_forecast"},
		&namedTool{name: "get_alerts"},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	specs := registry.Specs()
	want := []string{"geocode_location", "get_forecast", "get_alerts"}
	if len(specs) != len(want) {
		t.Fatalf("expected %d specs, got %d", len(want), len(specs))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Fatalf("spec %d: expected %s, got %s", i, name, specs[i].Name)
		}
	}
}
