package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	agent "github.com/stratoflow/weather-agent"
)

const defaultForecastBaseURL = "https://api.open-meteo.com"

// ForecastPeriod is one day of the daily outlook.
type ForecastPeriod struct {
	Date       string  `json:"date"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Conditions string  `json:"conditions"`
}

// ForecastResult mirrors the payload shape the assistant renders: current
// temperature in both units, coarse conditions, wind, and daily periods.
type ForecastResult struct {
	Temperature   float64          `json:"temperature"`
	TemperatureF  float64          `json:"temperature_f"`
	Conditions    string           `json:"conditions"`
	WindSpeed     int              `json:"windSpeed"`
	WindSpeedText string           `json:"windSpeedText"`
	Periods       []ForecastPeriod `json:"periods"`
}

// ForecastTool fetches current conditions and a daily outlook from the
// Open-Meteo forecast API.
type ForecastTool struct {
	Client  *http.Client
	BaseURL string
}

func NewForecastTool(client *http.Client, baseURL string) *ForecastTool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultForecastBaseURL
	}
	return &ForecastTool{Client: client, BaseURL: baseURL}
}

func (t *ForecastTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        agent.ForecastToolName,
		Description: "Gets the current weather and daily outlook for coordinates.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latitude":  map[string]any{"type": "number"},
				"longitude": map[string]any{"type": "number"},
			},
			"required": []string{"latitude", "longitude"},
		},
	}
}

func (t *ForecastTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	lat, ok := toFloat(req.Arguments["latitude"])
	if !ok {
		return agent.ToolResponse{}, fmt.Errorf("latitude is not a number")
	}
	lon, ok := toFloat(req.Arguments["longitude"])
	if !ok {
		return agent.ToolResponse{}, fmt.Errorf("longitude is not a number")
	}

	endpoint := fmt.Sprintf(
		"%s/v1/forecast?latitude=%.4f&longitude=%.4f&current_weather=true&daily=temperature_2m_max,temperature_2m_min,weathercode&timezone=UTC",
		strings.TrimRight(t.BaseURL, "/"), lat, lon)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return agent.ToolResponse{}, err
	}
	httpResp, err := t.Client.Do(httpReq)
	if err != nil {
		return agent.ToolResponse{}, fmt.Errorf("forecast request: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return agent.ToolResponse{}, fmt.Errorf("forecast API returned %d", httpResp.StatusCode)
	}

	var decoded struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
			WindSpeed   float64 `json:"windspeed"`
			WeatherCode int     `json:"weathercode"`
		} `json:"current_weather"`
		Daily struct {
			Time        []string  `json:"time"`
			TempMax     []float64 `json:"temperature_2m_max"`
			TempMin     []float64 `json:"temperature_2m_min"`
			WeatherCode []int     `json:"weathercode"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return agent.ToolResponse{}, fmt.Errorf("forecast decode: %w", err)
	}

	wind := int(math.Round(decoded.CurrentWeather.WindSpeed))
	result := ForecastResult{
		Temperature:   decoded.CurrentWeather.Temperature,
		TemperatureF:  celsiusToFahrenheit(decoded.CurrentWeather.Temperature),
		Conditions:    conditionsFromCode(decoded.CurrentWeather.WeatherCode),
		WindSpeed:     wind,
		WindSpeedText: windText(wind),
	}
	for i, day := range decoded.Daily.Time {
		if i >= len(decoded.Daily.TempMax) || i >= len(decoded.Daily.TempMin) {
			break
		}
		period := ForecastPeriod{
			Date: day,
			High: decoded.Daily.TempMax[i],
			Low:  decoded.Daily.TempMin[i],
		}
		if i < len(decoded.Daily.WeatherCode) {
			period.Conditions = conditionsFromCode(decoded.Daily.WeatherCode[i])
		}
		result.Periods = append(result.Periods, period)
	}
	return agent.ToolResponse{Content: result}, nil
}

func celsiusToFahrenheit(c float64) float64 {
	return math.Round((c*9/5+32)*10) / 10
}

// conditionsFromCode collapses WMO weather codes into the coarse buckets
// the assistant renders.
func conditionsFromCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code >= 1 && code <= 3, code == 45, code == 48:
		return "cloudy"
	case code >= 51 && code <= 67, code >= 80 && code <= 82:
		return "rain"
	case code >= 71 && code <= 77, code == 85, code == 86:
		return "snow"
	case code >= 95:
		return "storm"
	}
	return "cloudy"
}

func windText(kmh int) string {
	switch {
	case kmh < 5:
		return "calm"
	case kmh < 20:
		return "light breeze"
	case kmh < 40:
		return "breezy"
	default:
		return "windy"
	}
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

var _ agent.Tool = (*ForecastTool)(nil)
