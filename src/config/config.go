package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime knob. Each value has a default; a missing
// environment variable never fails startup.
type Config struct {
	Port string

	ToolTimeout         time.Duration
	ConfirmationTimeout time.Duration

	GeocodeBaseURL   string
	ForecastBaseURL  string
	AlertsBaseURL    string
	GeocodeCacheSize int
	GeocodeCacheTTL  time.Duration

	// LLMProvider selects the optional utterance interpreter: empty (off),
	// "ollama", "openai", "anthropic", or "gemini".
	LLMProvider string
	LLMModel    string

	// PostgresDSN / MongoURI pick the transcript backend; both empty means
	// in-memory.
	PostgresDSN     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// UTCPProviders points at a UTCP providers file; empty disables remote
	// tool discovery.
	UTCPProviders string

	CORSOrigins []string
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Port:                getenv("PORT", "8080"),
		ToolTimeout:         getdur("TOOL_TIMEOUT", 10*time.Second),
		ConfirmationTimeout: getdur("CONFIRMATION_TIMEOUT", 2*time.Minute),
		GeocodeBaseURL:      getenv("GEOCODE_BASE_URL", ""),
		ForecastBaseURL:     getenv("FORECAST_BASE_URL", ""),
		AlertsBaseURL:       getenv("ALERTS_BASE_URL", ""),
		GeocodeCacheSize:    getint("GEOCODE_CACHE_SIZE", 256),
		GeocodeCacheTTL:     getdur("GEOCODE_CACHE_TTL", 30*time.Minute),
		LLMProvider:         strings.ToLower(getenv("LLM_PROVIDER", "")),
		LLMModel:            getenv("LLM_MODEL", ""),
		PostgresDSN:         getenv("POSTGRES_DSN", ""),
		MongoURI:            getenv("MONGO_URI", ""),
		MongoDatabase:       getenv("MONGO_DATABASE", "weather_agent"),
		MongoCollection:     getenv("MONGO_COLLECTION", "conversation_turns"),
		UTCPProviders:       getenv("UTCP_PROVIDERS", ""),
		CORSOrigins:         getlist("CORS_ORIGINS", []string{"*"}),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getlist(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
