package query

import (
	"testing"

	"finance-gpt-assistant/internal/cache"
	"finance-gpt-assistant/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var priority = []string{cache.SectionNasdaq, cache.SectionBSE, cache.SectionStats}

func seededService() (*Service, *cache.Cache) {
	c := cache.Default()
	c.Section(cache.SectionNasdaq).Merge(map[string]cache.Record{
		"AAPL": market.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: 150},
		"MSFT": market.Quote{Symbol: "MSFT", Name: "Microsoft", Price: 300},
	})
	c.Section(cache.SectionBSE).Merge(map[string]cache.Record{
		"TCS.BO": market.Quote{Symbol: "TCS.BO", Name: "TCS", Price: 3500},
	})
	c.Section(cache.SectionStats).Merge(map[string]cache.Record{
		"AAPL": market.Stat{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: 150.12},
		"GOOG": market.Stat{Symbol: "GOOG", CompanyName: "Alphabet Inc.", CurrentPrice: 2800},
	})
	return NewService(c, priority), c
}

func TestGetOneNormalizesCase(t *testing.T) {
	s, _ := seededService()

	lower, err := s.GetOne("aapl")
	require.NoError(t, err)
	upper, err := s.GetOne("AAPL")
	require.NoError(t, err)

	assert.Equal(t, upper, lower)
}

func TestGetOnePrefersEarlierSection(t *testing.T) {
	s, _ := seededService()

	// AAPL lives in both nasdaq-top50 and stats; the index section wins.
	rec, err := s.GetOne("AAPL")
	require.NoError(t, err)
	_, isQuote := rec.(market.Quote)
	assert.True(t, isQuote)
}

func TestGetOneNotFound(t *testing.T) {
	s, _ := seededService()

	rec, err := s.GetOne("ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, rec)
}

func TestGetOneColdCacheNotFound(t *testing.T) {
	s := NewService(cache.Default(), priority)

	_, err := s.GetOne("AAPL")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetManyKeepsCrossSectionDuplicates(t *testing.T) {
	s, _ := seededService()

	recs, err := s.GetMany([]string{"aapl", "tcs.bo"})
	require.NoError(t, err)

	// AAPL appears once per section holding it: nasdaq-top50 and stats.
	require.Len(t, recs, 3)
	_, first := recs[0].(market.Quote)
	assert.True(t, first)
	assert.Equal(t, "TCS.BO", recs[1].Ticker())
	_, last := recs[2].(market.Stat)
	assert.True(t, last)
}

func TestGetManyNoneResolved(t *testing.T) {
	s, _ := seededService()

	recs, err := s.GetMany([]string{"ZZZZ", "YYYY"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, recs)
}

func TestListSection(t *testing.T) {
	s, _ := seededService()

	recs, err := s.ListSection(cache.SectionNasdaq)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestListSectionUnknown(t *testing.T) {
	s, _ := seededService()

	_, err := s.ListSection("no-such-section")
	assert.Error(t, err)
}

func TestListFilteredPreservesOrderAndOmitsMissing(t *testing.T) {
	s, _ := seededService()

	recs, err := s.ListFiltered(cache.SectionStats, []string{"GOOG", "MSFT", "AAPL"})
	require.NoError(t, err)

	// MSFT is not in the stats section; the rest come back in key order.
	require.Len(t, recs, 2)
	assert.Equal(t, "GOOG", recs[0].Ticker())
	assert.Equal(t, "AAPL", recs[1].Ticker())
}

func TestListFilteredEmptySection(t *testing.T) {
	s := NewService(cache.Default(), priority)

	recs, err := s.ListFiltered(cache.SectionStats, []string{"AAPL"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
