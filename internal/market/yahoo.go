package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// YahooProvider fetches profile fields from the v7 quote API and daily
// bars from the v8 chart API.
type YahooProvider struct {
	quoteURL  string
	chartURL  string
	userAgent string
	client    *http.Client
}

func NewYahooProvider(userAgent string, timeout time.Duration) *YahooProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooProvider{
		quoteURL:  "https://query1.finance.yahoo.com/v7/finance/quote",
		chartURL:  "https://query1.finance.yahoo.com/v8/finance/chart",
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type yahooQuoteResp struct {
	QuoteResponse struct {
		Result []yahooQuote `json:"result"`
		Error  any          `json:"error"`
	} `json:"quoteResponse"`
}

type yahooQuote struct {
	Symbol                    string   `json:"symbol"`
	ShortName                 string   `json:"shortName"`
	LongName                  string   `json:"longName"`
	Currency                  string   `json:"currency"`
	MarketCap                 *float64 `json:"marketCap"`
	RegularMarketVolume       *float64 `json:"regularMarketVolume"`
	AverageDailyVolume3Month  *float64 `json:"averageDailyVolume3Month"`
	TrailingPE                *float64 `json:"trailingPE"`
	FiftyTwoWeekChangePercent *float64 `json:"fiftyTwoWeekChangePercent"`
}

func (p *YahooProvider) Profile(ctx context.Context, symbol string) (Profile, error) {
	u, err := url.Parse(p.quoteURL)
	if err != nil {
		return Profile{}, fmt.Errorf("invalid quote url: %w", err)
	}
	q := u.Query()
	q.Set("symbols", symbol)
	q.Set("fields", "shortName,longName,currency,marketCap,regularMarketVolume,averageDailyVolume3Month,trailingPE,fiftyTwoWeekChangePercent")
	u.RawQuery = q.Encode()

	var payload yahooQuoteResp
	if err := p.getJSON(ctx, u.String(), &payload); err != nil {
		return Profile{}, fmt.Errorf("request yahoo quote: %w", err)
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return Profile{}, fmt.Errorf("no quote data for %s", symbol)
	}
	r := payload.QuoteResponse.Result[0]

	prof := Profile{
		Symbol:      symbol,
		ShortName:   r.ShortName,
		LongName:    r.LongName,
		Currency:    r.Currency,
		MarketCap:   r.MarketCap,
		Volume:      r.RegularMarketVolume,
		AvgVolume3M: r.AverageDailyVolume3Month,
		TrailingPE:  r.TrailingPE,
	}
	if r.FiftyTwoWeekChangePercent != nil {
		frac := *r.FiftyTwoWeekChangePercent / 100
		prof.Change52Week = &frac
	}
	return prof, nil
}

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) History(ctx context.Context, symbol string, days int) ([]Bar, error) {
	u := fmt.Sprintf("%s/%s?range=%s&interval=1d", p.chartURL, url.PathEscape(symbol), rangeForDays(days))

	var payload yahooChartResp
	if err := p.getJSON(ctx, u, &payload); err != nil {
		return nil, fmt.Errorf("request yahoo chart: %w", err)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}
	series := payload.Chart.Result[0].Indicators.Quote[0]

	bars := make([]Bar, 0, len(series.Close))
	for i := range series.Close {
		// Yahoo pads sessions it has no data for with nulls.
		if series.Close[i] == nil || i >= len(series.Open) || series.Open[i] == nil {
			continue
		}
		bars = append(bars, Bar{Open: *series.Open[i], Close: *series.Close[i]})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("empty history for %s", symbol)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func rangeForDays(days int) string {
	switch {
	case days <= 1:
		return "1d"
	case days <= 5:
		return "5d"
	default:
		return "1mo"
	}
}

func (p *YahooProvider) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(150 * time.Millisecond)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			if shouldRetry(err) {
				lastErr = err
				continue
			}
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			if shouldRetry(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return lastErr
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "reset by peer") {
		return true
	}
	return false
}
