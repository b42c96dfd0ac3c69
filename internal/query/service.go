package query

import (
	"errors"
	"fmt"
	"strings"

	"finance-gpt-assistant/internal/cache"
)

// ErrNotFound signals that a ticker resolved in no section. A cold cache
// answers every lookup this way until the first refresh cycle lands.
var ErrNotFound = errors.New("ticker not found")

// Service answers read-only queries over the cache. Lookups scan sections
// in a fixed priority order and each operation snapshots a section at most
// once; no section lock is ever held across another section's.
type Service struct {
	cache    *cache.Cache
	priority []string
}

func NewService(c *cache.Cache, priority []string) *Service {
	return &Service{cache: c, priority: priority}
}

// GetOne returns the record for one ticker, searching sections in
// priority order. The symbol is matched case-insensitively.
func (s *Service) GetOne(ticker string) (cache.Record, error) {
	sym := normalize(ticker)
	for _, name := range s.priority {
		sec := s.cache.Section(name)
		if sec == nil {
			continue
		}
		if rec, ok := sec.Snapshot()[sym]; ok {
			return rec, nil
		}
	}
	return nil, ErrNotFound
}

// GetMany returns the records for the given tickers, grouped by section in
// priority order. A ticker present in more than one section appears once
// per section, matching the original lookup behavior. ErrNotFound means
// no ticker resolved anywhere.
func (s *Service) GetMany(tickers []string) ([]cache.Record, error) {
	syms := make([]string, 0, len(tickers))
	for _, t := range tickers {
		syms = append(syms, normalize(t))
	}

	var out []cache.Record
	for _, name := range s.priority {
		sec := s.cache.Section(name)
		if sec == nil {
			continue
		}
		snap := sec.Snapshot()
		for _, sym := range syms {
			if rec, ok := snap[sym]; ok {
				out = append(out, rec)
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// ListSection returns every record of one section in no particular order.
func (s *Service) ListSection(name string) ([]cache.Record, error) {
	sec := s.cache.Section(name)
	if sec == nil {
		return nil, fmt.Errorf("unknown section %q", name)
	}
	snap := sec.Snapshot()
	out := make([]cache.Record, 0, len(snap))
	for _, rec := range snap {
		out = append(out, rec)
	}
	return out, nil
}

// ListFiltered returns the section's records for an externally ordered key
// list, preserving that order and omitting keys the section does not hold.
func (s *Service) ListFiltered(name string, orderedKeys []string) ([]cache.Record, error) {
	sec := s.cache.Section(name)
	if sec == nil {
		return nil, fmt.Errorf("unknown section %q", name)
	}
	snap := sec.Snapshot()
	out := make([]cache.Record, 0, len(orderedKeys))
	for _, key := range orderedKeys {
		if rec, ok := snap[normalize(key)]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
