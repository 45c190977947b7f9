package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	agent "github.com/stratoflow/weather-agent"
	"github.com/stratoflow/weather-agent/src/cache"
)

const defaultGeocodeBaseURL = "https://geocoding-api.open-meteo.com"

// GeoCandidate is one ranked geocoding match.
type GeoCandidate struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Admin1      string  `json:"admin1"`
	CountryCode string  `json:"country_code"`
}

// CandidatePolicy picks one match when geocoding is ambiguous. The slice is
// never empty when the policy is called.
type CandidatePolicy func([]GeoCandidate) GeoCandidate

// FirstCandidate takes the first-ranked match, mirroring what the upstream
// API considers best.
func FirstCandidate(candidates []GeoCandidate) GeoCandidate { return candidates[0] }

// GeocodeResult is the payload shape handed back to the controller.
type GeocodeResult struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
	StateCode   string  `json:"state_code,omitempty"`
}

// GeocodeTool resolves free-text place names via the Open-Meteo geocoding
// API. Lookups for repeat place names are served from the cache.
type GeocodeTool struct {
	Client  *http.Client
	BaseURL string
	Cache   *cache.LRUCache
	Policy  CandidatePolicy
}

func NewGeocodeTool(client *http.Client, baseURL string, lru *cache.LRUCache) *GeocodeTool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultGeocodeBaseURL
	}
	return &GeocodeTool{Client: client, BaseURL: baseURL, Cache: lru, Policy: FirstCandidate}
}

func (t *GeocodeTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        agent.GeocodeToolName,
		Description: "Converts a place name into coordinates and a display name.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "Free-text place name, e.g. 'Lincoln, NE'.",
				},
			},
			"required": []string{"location"},
		},
		OutputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latitude":     map[string]any{"type": "number"},
				"longitude":    map[string]any{"type": "number"},
				"display_name": map[string]any{"type": "string"},
				"state_code":   map[string]any{"type": "string"},
			},
		},
	}
}

func (t *GeocodeTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	location := strings.TrimSpace(fmt.Sprint(req.Arguments["location"]))
	if location == "" {
		return agent.ToolResponse{}, fmt.Errorf("location is empty")
	}

	key := cache.Key(location)
	if t.Cache != nil {
		if cached, ok := t.Cache.Get(key); ok {
			return agent.ToolResponse{Content: cached, Metadata: map[string]string{"cache": "hit"}}, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v1/search?name=%s&count=5&language=en&format=json",
		strings.TrimRight(t.BaseURL, "/"), url.QueryEscape(location))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return agent.ToolResponse{}, err
	}
	httpResp, err := t.Client.Do(httpReq)
	if err != nil {
		return agent.ToolResponse{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return agent.ToolResponse{}, fmt.Errorf("geocoding API returned %d", httpResp.StatusCode)
	}

	var decoded struct {
		Results []GeoCandidate `json:"results"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return agent.ToolResponse{}, fmt.Errorf("geocoding decode: %w", err)
	}
	if len(decoded.Results) == 0 {
		return agent.ToolResponse{}, fmt.Errorf("no geocoding results for %q", location)
	}

	policy := t.Policy
	if policy == nil {
		policy = FirstCandidate
	}
	chosen := policy(decoded.Results)

	result := GeocodeResult{
		Latitude:    chosen.Latitude,
		Longitude:   chosen.Longitude,
		DisplayName: displayName(chosen),
		StateCode:   stateCode(chosen),
	}
	if t.Cache != nil {
		t.Cache.Set(key, result)
	}
	return agent.ToolResponse{Content: result}, nil
}

func displayName(c GeoCandidate) string {
	parts := []string{c.Name}
	if c.Admin1 != "" && c.Admin1 != c.Name {
		parts = append(parts, c.Admin1)
	}
	if c.CountryCode != "" {
		parts = append(parts, strings.ToUpper(c.CountryCode))
	}
	return strings.Join(parts, ", ")
}

// stateCode maps a US admin1 region to its two-letter code; alerts are
// US-only so other countries yield an empty code.
func stateCode(c GeoCandidate) string {
	if !strings.EqualFold(c.CountryCode, "US") {
		return ""
	}
	if code, ok := usStateCodes[c.Admin1]; ok {
		return code
	}
	if len(c.Admin1) == 2 {
		return strings.ToUpper(c.Admin1)
	}
	return ""
}

var usStateCodes = map[string]string{
	"Alabama": "AL", "Alaska": "AK", "Arizona": "AZ", "Arkansas": "AR",
	"California": "CA", "Colorado": "CO", "Connecticut": "CT", "Delaware": "DE",
	"District of Columbia": "DC", "Florida": "FL", "Georgia": "GA", "Hawaii": "HI",
	"Idaho": "ID", "Illinois": "IL", "Indiana": "IN", "Iowa": "IA",
	"Kansas": "KS", "Kentucky": "KY", "Louisiana": "LA", "Maine": "ME",
	"Maryland": "MD", "Massachusetts": "MA", "Michigan": "MI", "Minnesota": "MN",
	"Mississippi": "MS", "Missouri": "MO", "Montana": "MT", "Nebraska": "NE",
	"Nevada": "NV", "New Hampshire": "NH", "New Jersey": "NJ", "New Mexico": "NM",
	"New York": "NY", "North Carolina": "NC", "North Dakota": "ND", "Ohio": "OH",
	"Oklahoma": "OK", "Oregon": "OR", "Pennsylvania": "PA", "Puerto Rico": "PR",
	"Rhode Island": "RI", "South Carolina": "SC", "South Dakota": "SD",
	"Tennessee": "TN", "Texas": "TX", "Utah": "UT", "Vermont": "VT",
	"Virginia": "VA", "Washington": "WA", "West Virginia": "WV",
	"Wisconsin": "WI", "Wyoming": "WY",
}

var _ agent.Tool = (*GeocodeTool)(nil)
