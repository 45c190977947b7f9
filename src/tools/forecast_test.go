package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	agent "github.com/stratoflow/weather-agent"
)

const forecastBody = `{
	"current_weather": {"temperature": 21.4, "windspeed": 14.7, "weathercode": 2},
	"daily": {
		"time": ["2026-08-31", "2026-09-01"],
		"temperature_2m_max": [24.1, 22.0],
		"temperature_2m_min": [12.3, 11.8],
		"weathercode": [0, 61]
	}
}`

func TestForecastInvoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/forecast" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("latitude") != "40.8000" || q.Get("longitude") != "-96.7000" {
			t.Errorf("coordinates not forwarded: %s", r.URL.RawQuery)
		}
		if q.Get("current_weather") != "true" {
			t.Errorf("current_weather not requested")
		}
		w.Write([]byte(forecastBody))
	}))
	defer server.Close()

	tool := NewForecastTool(server.Client(), server.URL)
	resp, err := tool.Invoke(context.Background(), agent.ToolRequest{Arguments: map[string]any{
		"latitude":  40.8,
		"longitude": -96.7,
	}})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	result, ok := resp.Content.(ForecastResult)
	if !ok {
		t.Fatalf("unexpected payload type %T", resp.Content)
	}
	if result.Temperature != 21.4 {
		t.Fatalf("temperature: %v", result.Temperature)
	}
	if result.TemperatureF != 70.5 {
		t.Fatalf("fahrenheit conversion: %v", result.TemperatureF)
	}
	if result.Conditions != "cloudy" {
		t.Fatalf("conditions: %q", result.Conditions)
	}
	if result.WindSpeed != 15 || result.WindSpeedText != "light breeze" {
		t.Fatalf("wind: %d %q", result.WindSpeed, result.WindSpeedText)
	}
	if len(result.Periods) != 2 {
		t.Fatalf("periods: %+v", result.Periods)
	}
	if result.Periods[0].Conditions != "clear" || result.Periods[1].Conditions != "rain" {
		t.Fatalf("period conditions: %+v", result.Periods)
	}
	if result.Periods[0].High != 24.1 || result.Periods[0].Low != 12.3 {
		t.Fatalf("period temperatures: %+v", result.Periods[0])
	}
}

func TestForecastRejectsBadCoordinates(t *testing.T) {
	tool := NewForecastTool(nil, "http://unused.invalid")
	if _, err := tool.Invoke(context.Background(), agent.ToolRequest{Arguments: map[string]any{
		"latitude":  "north a bit",
		"longitude": -96.7,
	}}); err == nil {
		t.Fatal("expected error for non-numeric latitude")
	}
}

func TestForecastUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tool := NewForecastTool(server.Client(), server.URL)
	if _, err := tool.Invoke(context.Background(), agent.ToolRequest{Arguments: map[string]any{
		"latitude":  40.8,
		"longitude": -96.7,
	}}); err == nil {
		t.Fatal("expected error for upstream 502")
	}
}

func TestConditionsFromCode(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{0, "clear"},
		{2, "cloudy"},
		{45, "cloudy"},
		{61, "rain"},
		{81, "rain"},
		{73, "snow"},
		{86, "snow"},
		{95, "storm"},
		{99, "storm"},
		{40, "cloudy"},
	}
	for _, tc := range cases {
		if got := conditionsFromCode(tc.code); got != tc.want {
			t.Errorf("conditionsFromCode(%d) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestWindText(t *testing.T) {
	cases := []struct {
		kmh  int
		want string
	}{
		{0, "calm"},
		{4, "calm"},
		{5, "light breeze"},
		{19, "light breeze"},
		{20, "breezy"},
		{39, "breezy"},
		{40, "windy"},
	}
	for _, tc := range cases {
		if got := windText(tc.kmh); got != tc.want {
			t.Errorf("windText(%d) = %q, want %q", tc.kmh, got, tc.want)
		}
	}
}
