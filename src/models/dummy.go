package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyLLM is a lightweight model implementation useful for local testing
// without API calls. It replies with a fixed response, or echoes the last
// non-empty prompt line when none is configured.
type DummyLLM struct {
	Response string
}

func NewDummyLLM(response string) *DummyLLM {
	return &DummyLLM{Response: response}
}

func (d *DummyLLM) Generate(_ context.Context, prompt string) (any, error) {
	if strings.TrimSpace(d.Response) != "" {
		return d.Response, nil
	}
	lines := strings.Split(prompt, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if candidate := strings.TrimSpace(lines[i]); candidate != "" {
			return fmt.Sprintf("echo: %s", candidate), nil
		}
	}
	return "echo: <empty prompt>", nil
}

var _ Agent = (*DummyLLM)(nil)
