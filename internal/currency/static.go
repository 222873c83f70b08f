package currency

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// StaticRates is an in-memory RateProvider. A missing pair falls back to the
// inverse of the reverse pair when one is known.
type StaticRates struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewStaticRates creates an empty rate table.
func NewStaticRates() *StaticRates {
	return &StaticRates{rates: make(map[string]decimal.Decimal)}
}

// Set records the rate for converting one unit of from into to.
func (s *StaticRates) Set(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[pairKey(from, to)] = rate
}

// Rate implements RateProvider.
func (s *StaticRates) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rate, ok := s.rates[pairKey(from, to)]; ok {
		return rate, nil
	}
	if inverse, ok := s.rates[pairKey(to, from)]; ok && !inverse.IsZero() {
		return decimal.NewFromInt(1).DivRound(inverse, 8), nil
	}
	return decimal.Zero, fmt.Errorf("no rate for %s->%s", from, to)
}

// Pairs returns a copy of every configured rate keyed as "FROM:TO".
func (s *StaticRates) Pairs() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out
}

// ParseRates parses "USD:KRW=1350.5,EUR:KRW=1470" into a StaticRates table.
func ParseRates(list string) (*StaticRates, error) {
	rates := NewStaticRates()
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pair, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid rate entry %q", entry)
		}
		from, to, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid currency pair %q", pair)
		}
		from, err := Normalize(from)
		if err != nil {
			return nil, err
		}
		to, err = Normalize(to)
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", pair, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", pair)
		}
		rates.Set(from, to, rate)
	}
	return rates, nil
}

// SplitPair splits a "FROM:TO" key returned by Pairs.
func SplitPair(key string) (from, to string) {
	from, to, _ = strings.Cut(key, ":")
	return from, to
}

func pairKey(from, to string) string {
	return strings.ToUpper(from) + ":" + strings.ToUpper(to)
}
