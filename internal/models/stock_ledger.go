package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// StockLedger holds either a single unit count (products without sizes) or a
// count per size label. Counts are always non-negative integers; whatever shape
// arrives on the wire is normalized when the ledger is decoded.
type StockLedger struct {
	sized  bool
	scalar int
	bySize map[string]int
}

// ScalarStock builds a ledger for a product that is not sold in sizes.
func ScalarStock(n int) StockLedger {
	return StockLedger{scalar: max(0, n)}
}

// SizedStock builds a ledger keyed by size label. Negative counts become 0.
func SizedStock(counts map[string]int) StockLedger {
	bySize := make(map[string]int, len(counts))
	for size, n := range counts {
		bySize[size] = max(0, n)
	}
	return StockLedger{sized: true, bySize: bySize}
}

// IsSized reports whether the ledger is keyed by size.
func (l StockLedger) IsSized() bool {
	return l.sized
}

// Scalar returns the unit count of a scalar ledger, 0 for a sized one.
func (l StockLedger) Scalar() int {
	if l.IsSized() {
		return 0
	}
	return l.scalar
}

// ForSize returns the count recorded for size, 0 when absent or when the
// ledger is scalar.
func (l StockLedger) ForSize(size string) int {
	if !l.IsSized() {
		return 0
	}
	return l.bySize[size]
}

// Counts returns a copy of the per-size counts.
func (l StockLedger) Counts() map[string]int {
	out := make(map[string]int, len(l.bySize))
	for size, n := range l.bySize {
		out[size] = n
	}
	return out
}

func (l StockLedger) MarshalJSON() ([]byte, error) {
	if l.IsSized() {
		return json.Marshal(l.Counts())
	}
	return json.Marshal(l.scalar)
}

// UnmarshalJSON accepts a number, a numeric string, an object of size to count,
// or an array of [size, count] pairs. Anything unreadable counts as 0 rather
// than failing the whole product.
func (l *StockLedger) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*l = ScalarStock(0)
		return nil
	}

	switch data[0] {
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			*l = SizedStock(nil)
			return nil
		}
		counts := make(map[string]int, len(raw))
		for size, v := range raw {
			counts[size] = coerceCount(v)
		}
		*l = SizedStock(counts)
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			*l = SizedStock(nil)
			return nil
		}
		counts := make(map[string]int, len(entries))
		for _, e := range entries {
			var pair []json.RawMessage
			if err := json.Unmarshal(e, &pair); err != nil || len(pair) != 2 {
				continue
			}
			var size string
			if err := json.Unmarshal(pair[0], &size); err != nil {
				continue
			}
			counts[size] = coerceCount(pair[1])
		}
		*l = SizedStock(counts)
	default:
		*l = ScalarStock(coerceCount(data))
	}
	return nil
}

// coerceCount reads a JSON number or numeric string as floor(value), with
// anything negative, non-finite or unparsable mapped to 0.
func coerceCount(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(f))
}
