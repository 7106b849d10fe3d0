// Command recog boots the recursive cognition pipeline: loads configuration,
// opens the store, builds the LLM router and response cache, starts the
// queue worker pool, and serves the HTTP adapter.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brentyJ/recog/pkg/api"
	"github.com/brentyJ/recog/pkg/cache"
	"github.com/brentyJ/recog/pkg/config"
	"github.com/brentyJ/recog/pkg/critique"
	"github.com/brentyJ/recog/pkg/entity"
	"github.com/brentyJ/recog/pkg/extract"
	"github.com/brentyJ/recog/pkg/llm"
	"github.com/brentyJ/recog/pkg/llm/providers"
	"github.com/brentyJ/recog/pkg/pipeline"
	"github.com/brentyJ/recog/pkg/query"
	"github.com/brentyJ/recog/pkg/queue"
	"github.com/brentyJ/recog/pkg/store"
	"github.com/brentyJ/recog/pkg/synth"
	"github.com/brentyJ/recog/pkg/synthesis"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	httpAddr := flag.String("http-addr", getEnv("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCfg := store.LoadConfigFromEnv()
	db, err := store.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer db.Close()
	slog.Info("store ready")

	router := buildRouter(*cfg)

	var cacheBackend cache.Backend
	if cfg.CacheBackend == "filesystem" {
		cacheBackend = cache.NewFSBackend(cfg.CacheDir)
	} else {
		cacheBackend = db
	}
	var ttl *time.Duration
	if cfg.CacheTTL > 0 {
		ttl = &cfg.CacheTTL
	}
	respCache := cache.New(cacheBackend, db, ttl)

	entityRegistry := entity.New(db)
	entityGraph := entity.NewGraph(db)

	extractor := extract.New(db, router, respCache.Generate, primaryProvider(*cfg), cfg.ExtractionModel, *cfg, entityRegistry, entityGraph)
	critic := critique.New(db, router, respCache.Generate, primaryProvider(*cfg), cfg.ExtractionModel, *cfg, entityRegistry, entityGraph)
	synthEngine := synth.New(db, router, respCache.Generate, primaryProvider(*cfg), cfg.ExtractionModel, *cfg)
	synthesisEngine := synthesis.New(db, router, respCache.Generate, primaryProvider(*cfg), cfg.ExtractionModel, *cfg)

	dispatcher := pipeline.New(db, extractor, critic, synthEngine, synthesisEngine)

	pool := queue.NewPool(db, dispatcher, queue.Config{
		WorkerCount:        cfg.WorkerCount,
		LeaseMS:            cfg.QueueLeaseMS,
		MaxAttempts:        cfg.QueueMaxAttempts,
		BackoffBase:        cfg.QueueBackoffBase,
		PollInterval:       2 * time.Second,
		PollIntervalJitter: 500 * time.Millisecond,
	})
	pool.Start(ctx)

	queries := query.New(db)
	server := api.New(db, queries, pool, getEnv("GIN_MODE", "debug"))

	go func() {
		if err := server.Run(*httpAddr); err != nil {
			slog.Error("http server exited", "error", err)
		}
	}()
	slog.Info("recog listening", "addr", *httpAddr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	cancel()
	pool.Stop()
}

func primaryProvider(cfg config.Config) string {
	if len(cfg.ProviderPreference) == 0 {
		return "anthropic"
	}
	return cfg.ProviderPreference[0]
}

func buildRouter(cfg config.Config) *llm.Router {
	var chain []llm.Provider

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		chain = append(chain, providers.NewAnthropic(key, cfg.ExtractionModel))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		chain = append(chain, providers.NewOpenAI(key, "gpt-4o"))
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		gp, err := providers.NewGemini(context.Background(), key, "gemini-1.5-pro")
		if err != nil {
			slog.Error("failed to build gemini provider, skipping", "error", err)
		} else {
			chain = append(chain, gp)
		}
	}

	rcfg := llm.DefaultRouterConfig()
	rcfg.ProviderPreference = cfg.ProviderPreference
	rcfg.MaxRetries = cfg.RouterMaxRetries
	rcfg.CallTimeout = cfg.RouterTimeout()

	rl := llm.NewRateLimiter(5, 10)

	r, err := llm.NewRouter(rcfg, chain, rl)
	if err != nil {
		log.Fatalf("building LLM router: %v", err)
	}
	return r
}

