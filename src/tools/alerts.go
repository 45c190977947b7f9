package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	agent "github.com/stratoflow/weather-agent"
)

const (
	defaultAlertsBaseURL = "https://api.weather.gov"
	alertsUserAgent      = "weather-agent (github.com/stratoflow/weather-agent)"
)

// Alert is one active weather alert.
type Alert struct {
	Event    string `json:"event"`
	Headline string `json:"headline"`
	Severity string `json:"severity"`
	Area     string `json:"area"`
}

// AlertsResult is the payload returned for an alerts fetch, most severe
// alerts first.
type AlertsResult struct {
	Alerts []Alert `json:"alerts"`
	Count  int     `json:"count"`
}

// AlertsTool fetches active alerts for a US state from the NWS API.
type AlertsTool struct {
	Client  *http.Client
	BaseURL string
}

func NewAlertsTool(client *http.Client, baseURL string) *AlertsTool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultAlertsBaseURL
	}
	return &AlertsTool{Client: client, BaseURL: baseURL}
}

func (t *AlertsTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        agent.AlertsToolName,
		Description: "Gets active weather alerts for a US state (two-letter code).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"state": map[string]any{
					"type":        "string",
					"description": "Two-letter US state code, e.g. 'CA' or 'NY'.",
				},
			},
			"required": []string{"state"},
		},
	}
}

func (t *AlertsTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	state := strings.ToUpper(strings.TrimSpace(fmt.Sprint(req.Arguments["state"])))
	if len(state) != 2 {
		return agent.ToolResponse{}, fmt.Errorf("state must be a two-letter US code, got %q", state)
	}

	endpoint := fmt.Sprintf("%s/alerts/active?area=%s", strings.TrimRight(t.BaseURL, "/"), state)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return agent.ToolResponse{}, err
	}
	// NWS rejects requests without a User-Agent.
	httpReq.Header.Set("User-Agent", alertsUserAgent)
	httpReq.Header.Set("Accept", "application/geo+json")

	httpResp, err := t.Client.Do(httpReq)
	if err != nil {
		return agent.ToolResponse{}, fmt.Errorf("alerts request: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return agent.ToolResponse{}, fmt.Errorf("alerts API returned %d", httpResp.StatusCode)
	}

	var decoded struct {
		Features []struct {
			Properties struct {
				Event    string `json:"event"`
				Headline string `json:"headline"`
				Severity string `json:"severity"`
				AreaDesc string `json:"areaDesc"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return agent.ToolResponse{}, fmt.Errorf("alerts decode: %w", err)
	}

	result := AlertsResult{Count: len(decoded.Features)}
	for _, feature := range decoded.Features {
		result.Alerts = append(result.Alerts, Alert{
			Event:    feature.Properties.Event,
			Headline: feature.Properties.Headline,
			Severity: feature.Properties.Severity,
			Area:     feature.Properties.AreaDesc,
		})
	}
	sort.SliceStable(result.Alerts, func(i, j int) bool {
		return severityRank(result.Alerts[i].Severity) < severityRank(result.Alerts[j].Severity)
	})
	return agent.ToolResponse{Content: result}, nil
}

func severityRank(severity string) int {
	switch strings.ToLower(severity) {
	case "extreme":
		return 0
	case "severe":
		return 1
	case "moderate":
		return 2
	case "minor":
		return 3
	}
	return 4
}

var _ agent.Tool = (*AlertsTool)(nil)
