package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testYahoo(t *testing.T, handler http.HandlerFunc) *YahooProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewYahooProvider("test-agent/1.0", time.Second)
	p.quoteURL = srv.URL + "/v7/finance/quote"
	p.chartURL = srv.URL + "/v8/finance/chart"
	p.client = srv.Client()
	return p
}

func TestProfileDecodesFields(t *testing.T) {
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"quoteResponse":{"result":[{
			"symbol":"AAPL","shortName":"Apple Inc.","longName":"Apple Inc.","currency":"USD",
			"marketCap":2500000000000,"regularMarketVolume":12345678,
			"averageDailyVolume3Month":60000000,"trailingPE":33.33,
			"fiftyTwoWeekChangePercent":12.34
		}],"error":null}}`))
	})

	prof, err := p.Profile(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", prof.ShortName)
	assert.Equal(t, "USD", prof.Currency)
	require.NotNil(t, prof.MarketCap)
	assert.Equal(t, 2.5e12, *prof.MarketCap)
	require.NotNil(t, prof.Change52Week)
	assert.InDelta(t, 0.1234, *prof.Change52Week, 1e-9)
}

func TestProfileMissingFieldsStayNil(t *testing.T) {
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"XYZ","currency":"USD"}],"error":null}}`))
	})

	prof, err := p.Profile(context.Background(), "XYZ")
	require.NoError(t, err)

	assert.Nil(t, prof.MarketCap)
	assert.Nil(t, prof.TrailingPE)
	assert.Nil(t, prof.Change52Week)
}

func TestProfileEmptyResult(t *testing.T) {
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	})

	_, err := p.Profile(context.Background(), "NOPE")
	assert.Error(t, err)
}

func TestHistorySkipsNullSessions(t *testing.T) {
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1,2,3],
			"indicators":{"quote":[{
				"open":[100,null,102],
				"close":[101,null,103]
			}]}
		}],"error":null}}`))
	})

	bars, err := p.History(context.Background(), "AAPL", 5)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, Bar{Open: 100, Close: 101}, bars[0])
	assert.Equal(t, Bar{Open: 102, Close: 103}, bars[1])
}

func TestHistoryTruncatesToRequestedDays(t *testing.T) {
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1,2,3],
			"indicators":{"quote":[{
				"open":[100,101,102],
				"close":[100,101,103]
			}]}
		}],"error":null}}`))
	})

	bars, err := p.History(context.Background(), "AAPL", 2)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, Bar{Open: 102, Close: 103}, bars[1])
}

func TestHistoryAllNull(t *testing.T) {
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1],
			"indicators":{"quote":[{"open":[null],"close":[null]}]}
		}],"error":null}}`))
	})

	_, err := p.History(context.Background(), "AAPL", 1)
	assert.Error(t, err)
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			// Drop the connection mid-request so the client sees a
			// retryable transport error.
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					conn.Close()
				}
			}
			return
		}
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"AAPL","currency":"USD"}],"error":null}}`))
	})

	prof, err := p.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "USD", prof.Currency)
}

func TestGivesUpAfterExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
			}
		}
	})

	_, err := p.Profile(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBadStatusIsAnError(t *testing.T) {
	p := testYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Profile(context.Background(), "AAPL")
	assert.Error(t, err)
}
