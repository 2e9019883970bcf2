package symbols

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedSymbol is returned when a venue has no mapping for a symbol.
// Callers treat it as a venue-level "unavailable", never a request failure.
var ErrUnsupportedSymbol = errors.New("unsupported symbol")

// NormalizedSymbol is the canonical BASE-QUOTE identity of a traded pair
// together with the set of venues that list it.
type NormalizedSymbol struct {
	Symbol       string   `json:"symbol"`
	Base         string   `json:"base"`
	Quote        string   `json:"quote"`
	Availability []string `json:"availability"`
}

// AvailableOn reports whether the pair is listed on the given venue.
func (s NormalizedSymbol) AvailableOn(venueID string) bool {
	for _, v := range s.Availability {
		if v == venueID {
			return true
		}
	}
	return false
}

// Mapper resolves venue-specific symbol spellings to canonical BASE-QUOTE
// identifiers and back. It is built once from a static table and is read-only
// afterwards, so any number of goroutines may use it without synchronization.
type Mapper struct {
	byCanonical map[string]map[string]string // canonical -> venueID -> venue spelling
	byVenue     map[string]map[string]string // venueID -> cleaned venue spelling -> canonical
}

// DefaultTable returns the built-in mapping of canonical pairs to per-venue
// spellings. The catalog collaborator refreshes this out-of-band in
// production; the defaults cover the majors every supported venue lists.
func DefaultTable() map[string]map[string]string {
	return map[string]map[string]string{
		"BTC-USDT": {
			"binance": "BTCUSDT",
			"bybit":   "BTCUSDT",
			"kucoin":  "BTC-USDT",
			"okx":     "BTC-USDT",
		},
		"ETH-USDT": {
			"binance": "ETHUSDT",
			"bybit":   "ETHUSDT",
			"kucoin":  "ETH-USDT",
			"okx":     "ETH-USDT",
		},
		"SOL-USDT": {
			"binance": "SOLUSDT",
			"bybit":   "SOLUSDT",
			"kucoin":  "SOL-USDT",
			"okx":     "SOL-USDT",
		},
		"XRP-USDT": {
			"binance": "XRPUSDT",
			"bybit":   "XRPUSDT",
			"kucoin":  "XRP-USDT",
			"okx":     "XRP-USDT",
		},
		"PEPE-USDT": {
			"binance": "1000PEPEUSDT",
			"bybit":   "1000PEPEUSDT",
			"kucoin":  "PEPE-USDT",
			"okx":     "PEPE-USDT",
		},
		"BTC-USD": {
			"kucoin": "BTC-USD",
			"okx":    "BTC-USD",
		},
	}
}

// NewMapper builds a Mapper from a canonical->venue->spelling table. The
// table is copied; later mutation of the argument does not affect the Mapper.
func NewMapper(table map[string]map[string]string) *Mapper {
	m := &Mapper{
		byCanonical: make(map[string]map[string]string, len(table)),
		byVenue:     make(map[string]map[string]string),
	}
	for canonical, venues := range table {
		spellings := make(map[string]string, len(venues))
		for venueID, spelling := range venues {
			spellings[venueID] = spelling
			if m.byVenue[venueID] == nil {
				m.byVenue[venueID] = make(map[string]string)
			}
			m.byVenue[venueID][cleanVenueSymbol(venueID, spelling)] = canonical
		}
		m.byCanonical[canonical] = spellings
	}
	return m
}

// cleanVenueSymbol applies per-venue alias conventions so that the spellings
// a venue emits resolve to the same key as the spellings in the table.
//
//	XBT-USDTM (kucoin)  -> BTCUSDT
//	BTC-USDT-SWAP (okx) -> BTCUSDT
//	1000PEPEUSDT        -> PEPEUSDT
func cleanVenueSymbol(venueID, sym string) string {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	switch strings.ToLower(venueID) {
	case "kucoin":
		sym = strings.ReplaceAll(sym, "-", "")
		sym = strings.TrimSuffix(sym, "M")
		if strings.HasPrefix(sym, "XBT") {
			sym = "BTC" + sym[3:]
		}
	case "okx":
		sym = strings.TrimSuffix(sym, "-SWAP")
		sym = strings.ReplaceAll(sym, "-", "")
	default:
		sym = strings.ReplaceAll(sym, "-", "")
		sym = strings.ReplaceAll(sym, "/", "")
	}
	sym = strings.TrimPrefix(sym, "1000")
	return sym
}

// Normalize maps a venue-specific spelling to its canonical pair.
func (m *Mapper) Normalize(venueSymbol, venueID string) (NormalizedSymbol, error) {
	venueTable, ok := m.byVenue[venueID]
	if !ok {
		return NormalizedSymbol{}, fmt.Errorf("venue %q: %w", venueID, ErrUnsupportedSymbol)
	}
	canonical, ok := venueTable[cleanVenueSymbol(venueID, venueSymbol)]
	if !ok {
		return NormalizedSymbol{}, fmt.Errorf("venue %q symbol %q: %w", venueID, venueSymbol, ErrUnsupportedSymbol)
	}
	return m.build(canonical), nil
}

// Denormalize maps a canonical pair back to the venue's native spelling.
func (m *Mapper) Denormalize(sym NormalizedSymbol, venueID string) (string, error) {
	venues, ok := m.byCanonical[sym.Symbol]
	if !ok {
		return "", fmt.Errorf("symbol %q: %w", sym.Symbol, ErrUnsupportedSymbol)
	}
	spelling, ok := venues[venueID]
	if !ok {
		return "", fmt.Errorf("venue %q symbol %q: %w", venueID, sym.Symbol, ErrUnsupportedSymbol)
	}
	return spelling, nil
}

// Lookup resolves a canonical BASE-QUOTE string as supplied by a caller.
func (m *Mapper) Lookup(canonical string) (NormalizedSymbol, error) {
	canonical = strings.ToUpper(strings.TrimSpace(canonical))
	if _, ok := m.byCanonical[canonical]; !ok {
		return NormalizedSymbol{}, fmt.Errorf("symbol %q: %w", canonical, ErrUnsupportedSymbol)
	}
	return m.build(canonical), nil
}

// Venues returns the venue ids present in the table, sorted.
func (m *Mapper) Venues() []string {
	out := make([]string, 0, len(m.byVenue))
	for v := range m.byVenue {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (m *Mapper) build(canonical string) NormalizedSymbol {
	base, quote := splitPair(canonical)
	venues := make([]string, 0, len(m.byCanonical[canonical]))
	for v := range m.byCanonical[canonical] {
		venues = append(venues, v)
	}
	sort.Strings(venues)
	return NormalizedSymbol{Symbol: canonical, Base: base, Quote: quote, Availability: venues}
}

func splitPair(canonical string) (base, quote string) {
	if idx := strings.Index(canonical, "-"); idx > 0 {
		return canonical[:idx], canonical[idx+1:]
	}
	return canonical, ""
}
