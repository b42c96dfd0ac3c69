package market

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"finance-gpt-assistant/internal/cache"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// FetcherConfig bounds the fetcher's use of the upstream provider.
type FetcherConfig struct {
	Timeout    time.Duration // per-ticker budget, provider calls included
	RatePerSec float64       // courtesy limit on upstream calls
	RateBurst  int
}

// Fetcher turns a ticker universe into a map of records, one upstream
// round-trip per ticker. Tickers that error, time out, or come back empty
// are omitted from the result and logged, never raised: the worst case for
// a whole call is an empty map. A circuit breaker trips after consecutive
// failures so a dead upstream short-circuits the rest of a cycle instead
// of timing out ticker by ticker.
type Fetcher struct {
	provider Provider
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
}

func NewFetcher(p Provider, cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	settings := gobreaker.Settings{
		Name:    "market-upstream",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Fetcher{
		provider: p,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		breaker:  gobreaker.NewCircuitBreaker(settings),
		timeout:  cfg.Timeout,
	}
}

// FetchQuotes builds quote records for the given tickers, keyed by
// uppercased symbol.
func (f *Fetcher) FetchQuotes(ctx context.Context, tickers []string) map[string]cache.Record {
	return collect(f.fetchEach(ctx, tickers, f.quoteFor))
}

// FetchStats builds daily-stat records for the given tickers, keyed by
// uppercased symbol. Tickers with fewer than two trading sessions of
// history are omitted.
func (f *Fetcher) FetchStats(ctx context.Context, tickers []string) map[string]cache.Record {
	return collect(f.fetchEach(ctx, tickers, f.statFor))
}

// tickerResult tags each ticker's outcome so partial failure stays
// observable inside the package even though callers only see successes.
type tickerResult struct {
	symbol string
	record cache.Record
	err    error
}

func (f *Fetcher) fetchEach(ctx context.Context, tickers []string, build func(ctx context.Context, symbol string) (cache.Record, error)) []tickerResult {
	out := make([]tickerResult, 0, len(tickers))
	for _, t := range tickers {
		sym := strings.ToUpper(strings.TrimSpace(t))
		if sym == "" {
			continue
		}
		rec, err := f.fetchOne(ctx, sym, build)
		out = append(out, tickerResult{symbol: sym, record: rec, err: err})
	}
	return out
}

func (f *Fetcher) fetchOne(ctx context.Context, symbol string, build func(ctx context.Context, symbol string) (cache.Record, error)) (cache.Record, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := f.breaker.Execute(func() (interface{}, error) {
		tctx, cancel := context.WithTimeout(ctx, f.timeout)
		defer cancel()
		return build(tctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(cache.Record), nil
}

func collect(results []tickerResult) map[string]cache.Record {
	out := make(map[string]cache.Record, len(results))
	for _, r := range results {
		if r.err != nil {
			log.Printf("fetch %s skipped: %v", r.symbol, r.err)
			continue
		}
		out[r.symbol] = r.record
	}
	return out
}

func (f *Fetcher) quoteFor(ctx context.Context, symbol string) (cache.Record, error) {
	prof, err := f.provider.Profile(ctx, symbol)
	if err != nil {
		return nil, err
	}
	bars, err := f.provider.History(ctx, symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("empty price series for %s", symbol)
	}
	last := bars[len(bars)-1]

	change := round2(last.Close - last.Open)
	changePct := 0.0
	if last.Open != 0 {
		changePct = round2(change / last.Open * 100)
	}

	name := prof.ShortName
	if name == "" {
		name = "N/A"
	}

	q := Quote{
		Symbol:     symbol,
		Name:       name,
		Price:      round2(last.Close),
		Change:     change,
		ChangePct:  changePct,
		VolumeM:    scaled(prof.Volume, 1e6),
		AvgVolumeM: scaled(prof.AvgVolume3M, 1e6),
		MarketCapB: scaled(prof.MarketCap, 1e9),
		PERatio:    scaled(prof.TrailingPE, 1),
	}
	if prof.Change52Week != nil && *prof.Change52Week != 0 {
		q.Change52Wk = MetricOf(round2(*prof.Change52Week * 100))
	} else {
		q.Change52Wk = NoMetric()
	}
	return q, nil
}

func (f *Fetcher) statFor(ctx context.Context, symbol string) (cache.Record, error) {
	prof, err := f.provider.Profile(ctx, symbol)
	if err != nil {
		return nil, err
	}
	bars, err := f.provider.History(ctx, symbol, 5)
	if err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return nil, fmt.Errorf("not enough history for %s: %d sessions", symbol, len(bars))
	}
	current := bars[len(bars)-1].Close
	previous := bars[len(bars)-2].Close

	pct := 0.0
	if previous != 0 {
		pct = (current - previous) / previous * 100
	}
	pctStr, class := formatChange(pct)

	name := prof.LongName
	if name == "" {
		name = "N/A"
	}
	currency := prof.Currency
	if currency == "" {
		currency = "N/A"
	}

	return Stat{
		Symbol:       symbol,
		CompanyName:  name,
		CurrentPrice: current,
		Currency:     currency,
		PctChange:    pctStr,
		Change:       class,
	}, nil
}

// scaled divides a source field and rounds to 2 decimals. A missing or
// zero source maps to "N/A", not 0.
func scaled(v *float64, div float64) Metric {
	if v == nil || *v == 0 {
		return NoMetric()
	}
	return MetricOf(round2(*v / div))
}

func formatChange(pct float64) (string, string) {
	switch {
	case pct > 0:
		return fmt.Sprintf("+%.2f%%", pct), ChangePositive
	case pct < 0:
		return fmt.Sprintf("%.2f%%", pct), ChangeNegative
	default:
		return fmt.Sprintf("%.2f%%", pct), ChangeSame
	}
}
