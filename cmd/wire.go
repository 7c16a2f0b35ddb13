package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/learnpath/config"
	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
	"github.com/mohammad-safakhou/learnpath/internal/logger"
	"github.com/mohammad-safakhou/learnpath/internal/queue/streams"
	"github.com/mohammad-safakhou/learnpath/provider"
	"github.com/mohammad-safakhou/learnpath/tools/web_fetch"
	"github.com/mohammad-safakhou/learnpath/tools/web_search"
)

func loadConfig(path string) (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log, err := logger.New(logger.Config{Level: cfg.General.LogLevel, Development: cfg.General.Debug})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// buildOrchestrator wires the providers selected in cfg into the three stages.
func buildOrchestrator(cfg *config.Config, log logger.Logger, recorder core.RunRecorder, reg prometheus.Registerer) (*core.Orchestrator, error) {
	p := cfg.Pipeline

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.SearchAPIKey(), web_search.Options{
		BaseURL:     searchBaseURL(cfg),
		SearchDepth: cfg.Search.SearchDepth,
		Timeout:     cfg.Search.Timeout,
		Attempts:    p.MaxAttempts,
		Backoff:     p.RetryBackoff,
	})
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}

	fetchOpts := web_fetch.Options{
		APIKey:       cfg.Providers.Tavily.APIKey,
		BaseURL:      cfg.Providers.Tavily.BaseURL,
		ExtractDepth: cfg.Fetch.ExtractDepth,
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		Concurrency:  p.ExtractConcurrency,
		Attempts:     p.MaxAttempts,
		Backoff:      p.RetryBackoff,
	}
	if policy := cfg.Fetch.DomainPolicy; len(policy.Allow) > 0 || len(policy.Disallow) > 0 {
		fetchOpts.Permit = policy.Permits
	}
	extractor, err := web_fetch.NewContentExtractor(web_fetch.FetcherType(cfg.Fetch.Fetcher), fetchOpts)
	if err != nil {
		return nil, fmt.Errorf("content extractor: %w", err)
	}

	parser, err := provider.NewRecordParser(provider.OpenAI, provider.Options{
		APIKey:   cfg.Providers.OpenAI.APIKey,
		BaseURL:  cfg.Providers.OpenAI.BaseURL,
		Model:    cfg.Providers.OpenAI.Model,
		Timeout:  cfg.Providers.OpenAI.Timeout,
		Attempts: p.MaxAttempts,
		Backoff:  p.RetryBackoff,
	})
	if err != nil {
		return nil, fmt.Errorf("record parser: %w", err)
	}

	opts := []core.Option{core.WithLogger(log)}
	if recorder != nil {
		opts = append(opts, core.WithRecorder(recorder))
	}
	if reg != nil {
		metrics, err := core.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, core.WithMetrics(metrics))
	}

	return core.NewOrchestrator(
		&core.Scout{Search: searcher, ResultsPerQuery: cfg.Search.ResultsPerQuery, MaxLeads: cfg.Search.MaxLeads, Logger: log},
		&core.Extraction{
			Extractor:       extractor,
			Parser:          parser,
			MaxURLs:         p.MaxURLs,
			TokenLimit:      p.TokenLimit,
			MaxOutputTokens: p.MaxOutputTokens,
			Concurrency:     p.ExtractConcurrency,
			Logger:          log,
		},
		&core.Organizer{MaxPerBucket: p.MaxPerBucket, LowTotalThreshold: p.LowTotalThreshold, Logger: log},
		opts...,
	)
}

func searchBaseURL(cfg *config.Config) string {
	switch cfg.Search.Provider {
	case "tavily":
		return cfg.Providers.Tavily.BaseURL
	case "serper":
		return cfg.Providers.Serper.BaseURL
	case "brave":
		return cfg.Providers.Brave.BaseURL
	}
	return ""
}

// connectRedis returns the audit stream recorder, or nil when redis is off.
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, core.RunRecorder, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Address(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Address(), err)
	}
	registry, err := streams.NewSchemaRegistry()
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	pub := streams.NewRunPublisher(streams.NewPublisher(rdb, registry), cfg.Stream, cfg.StreamMaxLen)
	return rdb, pub, nil
}
