package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	utcp "github.com/universal-tool-calling-protocol/go-utcp"

	agent "github.com/stratoflow/weather-agent"
	"github.com/stratoflow/weather-agent/src/cache"
	"github.com/stratoflow/weather-agent/src/config"
	"github.com/stratoflow/weather-agent/src/models"
	"github.com/stratoflow/weather-agent/src/server"
	"github.com/stratoflow/weather-agent/src/tools"
	"github.com/stratoflow/weather-agent/src/transcript"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	geocodeCache := cache.NewLRUCache(cfg.GeocodeCacheSize, cfg.GeocodeCacheTTL)
	registry, err := agent.NewRegistry(
		tools.NewGeocodeTool(nil, cfg.GeocodeBaseURL, geocodeCache),
		tools.NewForecastTool(nil, cfg.ForecastBaseURL),
		tools.NewAlertsTool(nil, cfg.AlertsBaseURL),
	)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}

	if cfg.UTCPProviders != "" {
		client, err := utcp.NewUTCPClient(ctx, &utcp.UtcpClientConfig{ProvidersFilePath: cfg.UTCPProviders}, nil, nil)
		if err != nil {
			log.Fatalf("utcp client: %v", err)
		}
		n, err := tools.DiscoverRemoteTools(registry, client)
		if err != nil {
			log.Fatalf("utcp discovery: %v", err)
		}
		log.Printf("registered %d remote tools from %s", n, cfg.UTCPProviders)
	}

	store := buildTranscriptStore(ctx, cfg)
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("transcript close: %v", err)
		}
	}()

	ctrl, err := agent.New(agent.Options{
		Registry:            registry,
		Interpreter:         buildInterpreter(ctx, cfg),
		Transcripts:         store,
		ToolTimeout:         cfg.ToolTimeout,
		ConfirmationTimeout: cfg.ConfirmationTimeout,
	})
	if err != nil {
		log.Fatalf("controller: %v", err)
	}

	router := server.New(ctrl, store, cfg)
	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Long write timeout: chat responses stream while a turn waits on
		// the user's confirmation.
		WriteTimeout: cfg.ConfirmationTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func buildTranscriptStore(ctx context.Context, cfg config.Config) transcript.Store {
	switch {
	case cfg.PostgresDSN != "":
		store, err := transcript.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres transcript store: %v", err)
		}
		log.Printf("transcripts: postgres")
		return store
	case cfg.MongoURI != "":
		store, err := transcript.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			log.Fatalf("mongo transcript store: %v", err)
		}
		log.Printf("transcripts: mongodb")
		return store
	}
	return transcript.NewMemoryStore()
}

func buildInterpreter(ctx context.Context, cfg config.Config) models.Agent {
	switch cfg.LLMProvider {
	case "":
		return nil
	case "ollama":
		model := cfg.LLMModel
		if model == "" {
			model = "llama3.2"
		}
		llm, err := models.NewOllamaLLM(model, "")
		if err != nil {
			log.Fatalf("ollama: %v", err)
		}
		return llm
	case "openai":
		model := cfg.LLMModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		return models.NewOpenAILLM(model, "")
	case "anthropic":
		model := cfg.LLMModel
		if model == "" {
			model = "claude-3-5-haiku-latest"
		}
		return models.NewAnthropicLLM(model, "")
	case "gemini":
		model := cfg.LLMModel
		if model == "" {
			model = "gemini-2.0-flash"
		}
		llm, err := models.NewGeminiLLM(ctx, model, "")
		if err != nil {
			log.Fatalf("gemini: %v", err)
		}
		return llm
	}
	log.Fatalf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	return nil
}
