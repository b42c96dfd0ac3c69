package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"finance-gpt-assistant/internal/api"
	"finance-gpt-assistant/internal/cache"
	"finance-gpt-assistant/internal/chatagent"
	"finance-gpt-assistant/internal/config"
	"finance-gpt-assistant/internal/market"
	"finance-gpt-assistant/internal/query"
	"finance-gpt-assistant/internal/refresh"

	"github.com/cloudwego/hertz/pkg/app/server"
)

func main() {
	cfg, err := config.Load("configs/app.yaml")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))

	store := cache.Default()

	provider := market.NewYahooProvider(
		cfg.Market.UserAgent,
		time.Duration(cfg.Market.TimeoutMs)*time.Millisecond,
	)
	fetcher := market.NewFetcher(provider, market.FetcherConfig{
		Timeout:    time.Duration(cfg.Market.TimeoutMs) * time.Millisecond,
		RatePerSec: cfg.Market.RatePerSec,
		RateBurst:  cfg.Market.RateBurst,
	})

	// Lookup priority mirrors the serving order: index listings first,
	// curated stats last.
	qs := query.NewService(store, []string{
		cache.SectionNasdaq,
		cache.SectionBSE,
		cache.SectionStats,
	})

	agent := chatagent.New(chatagent.Config{
		Enabled:    cfg.ChatAgent.Enabled,
		Model:      cfg.ChatAgent.Model,
		APIKey:     cfg.ChatAgent.APIKey,
		BaseURL:    cfg.ChatAgent.BaseURL,
		ByAzure:    cfg.ChatAgent.ByAzure,
		APIVersion: cfg.ChatAgent.APIVersion,
		TimeoutMs:  cfg.ChatAgent.TimeoutMs,
		MaxHistory: cfg.ChatAgent.MaxHistory,
	}, marketContext(qs, cfg.Universe.Stats))

	statsInterval := time.Duration(cfg.Market.StatsIntervalSec) * time.Second
	indexInterval := time.Duration(cfg.Market.IndexIntervalSec) * time.Second
	sched := refresh.NewScheduler(
		refresh.Task{
			Name:     cache.SectionStats,
			Section:  store.Section(cache.SectionStats),
			Universe: cfg.Universe.Stats,
			Interval: statsInterval,
			Fetch:    fetcher.FetchStats,
		},
		refresh.Task{
			Name:     cache.SectionNasdaq,
			Section:  store.Section(cache.SectionNasdaq),
			Universe: cfg.Universe.NasdaqTop50,
			Interval: indexInterval,
			Fetch:    fetcher.FetchQuotes,
		},
		refresh.Task{
			Name:     cache.SectionBSE,
			Section:  store.Section(cache.SectionBSE),
			Universe: cfg.Universe.BSETop50,
			Interval: indexInterval,
			Fetch:    fetcher.FetchQuotes,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	api.RegisterRoutes(h, qs, agent, cfg.Universe.Stats)

	log.Printf("server starting on %s (log.level=%s)", addr, cfg.Log.Level)
	if err := h.Run(); err != nil {
		log.Printf("server run error: %v", err)
	}

	// Let in-flight refresh cycles finish; a cycle is never cut mid-merge.
	cancel()
	sched.Wait()
}

// marketContext renders the stats section for the chat agent's prompt.
func marketContext(qs *query.Service, statsTickers []string) chatagent.MarketContext {
	return func() string {
		recs, err := qs.ListFiltered(cache.SectionStats, statsTickers)
		if err != nil || len(recs) == 0 {
			return "no cached market data yet"
		}
		data, err := json.Marshal(recs)
		if err != nil {
			return "no cached market data yet"
		}
		return string(data)
	}
}
