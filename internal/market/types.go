package market

import (
	"context"
	"encoding/json"
	"math"
)

// Metric is a numeric field that may be absent upstream. Absent values
// marshal as the string "N/A" so "no data" is never conflated with zero.
type Metric struct {
	Value float64
	Valid bool
}

func MetricOf(v float64) Metric { return Metric{Value: v, Valid: true} }
func NoMetric() Metric          { return Metric{} }

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return json.Marshal("N/A")
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		// "N/A" or anything non-numeric reads back as absent.
		*m = Metric{}
		return nil
	}
	*m = MetricOf(v)
	return nil
}

// Quote is the record shape served for the index listings. JSON keys
// reproduce the table column names the frontend renders.
type Quote struct {
	Symbol     string  `json:"Symbol"`
	Name       string  `json:"Name"`
	Price      float64 `json:"Price"`
	Change     float64 `json:"Change"`
	ChangePct  float64 `json:"Change %"`
	VolumeM    Metric  `json:"Volume (M)"`
	AvgVolumeM Metric  `json:"Avg Vol (3M) (M)"`
	MarketCapB Metric  `json:"Market Cap (B)"`
	PERatio    Metric  `json:"P/E Ratio (TTM)"`
	Change52Wk Metric  `json:"52 WK Change %"`
}

func (q Quote) Ticker() string { return q.Symbol }

// Change sign classes for the stat record.
const (
	ChangePositive = "positive"
	ChangeNegative = "negative"
	ChangeSame     = "same"
)

// Stat is the daily-stat record shape served for the curated ticker list.
type Stat struct {
	Symbol       string  `json:"ticker"`
	CompanyName  string  `json:"company_name"`
	CurrentPrice float64 `json:"current_price"`
	Currency     string  `json:"currency"`
	PctChange    string  `json:"percentage_change"`
	Change       string  `json:"change"`
}

func (s Stat) Ticker() string { return s.Symbol }

// Profile carries the per-symbol metadata fields the quote shape needs.
// Pointer fields are nil when the upstream has no value for them.
type Profile struct {
	Symbol       string
	ShortName    string
	LongName     string
	Currency     string
	MarketCap    *float64
	Volume       *float64
	AvgVolume3M  *float64
	TrailingPE   *float64
	Change52Week *float64 // fraction of 1, e.g. 0.12 for +12%
}

// Bar is one daily trading session.
type Bar struct {
	Open  float64
	Close float64
}

// Provider is the upstream market-data source. Both calls are per-symbol
// and bounded by the caller's context.
type Provider interface {
	Profile(ctx context.Context, symbol string) (Profile, error)
	History(ctx context.Context, symbol string, days int) ([]Bar, error)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
