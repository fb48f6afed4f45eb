// Package models provides data structures for exchange market-data records
// and quality-validation results. A record is a loosely-typed field map as
// delivered by the vendor API; accessors on Record handle the timestamp
// priority order and fixed-point price encoding so that callers never touch
// the raw representation.
package models

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Timestamp field names in priority order. ts_event is the exchange-assigned
// event time, ts_recv the vendor receipt time; bare "timestamp" is accepted
// as a last-resort fallback for non-vendor inputs.
var timestampFields = []string{"ts_event", "ts_recv", "timestamp"}

// fixedPointCutoff is the magnitude above which an integer-valued price is
// assumed to be fixed-point encoded (price scaled by 1e9).
var fixedPointCutoff = decimal.NewFromInt(1_000_000)

// Record represents one market-data record (bar, trade, or quote) as a
// mapping from field name to raw value. Records are immutable inputs: no
// method on Record mutates the map.
type Record map[string]any

// Timestamp returns the record's timestamp in integer nanoseconds since the
// Unix epoch, trying ts_event, then ts_recv, then timestamp. The second
// return value is false when no usable timestamp field is present.
func (r Record) Timestamp() (int64, bool) {
	for _, field := range timestampFields {
		v, ok := r[field]
		if !ok || v == nil {
			continue
		}
		ts, err := toInt64(v)
		if err != nil || ts == 0 {
			continue
		}
		return ts, true
	}
	return 0, false
}

// Price returns the record's representative price: the close price for
// OHLCV-style records, otherwise the trade price field. Fixed-point encoded
// values are rescaled. The second return value is false when the record
// carries neither field.
func (r Record) Price() (decimal.Decimal, bool) {
	for _, field := range []string{"close", "price"} {
		v, ok := r[field]
		if !ok || v == nil {
			continue
		}
		d, err := toDecimal(v)
		if err != nil {
			continue
		}
		return NormalizePrice(d), true
	}
	return decimal.Zero, false
}

// Volume returns the record's volume field as an integer, or 0 when absent
// or non-numeric.
func (r Record) Volume() int64 {
	v, ok := r["volume"]
	if !ok || v == nil {
		return 0
	}
	n, err := toInt64(v)
	if err != nil {
		return 0
	}
	return n
}

// IsTrade reports whether the record looks like a trade (carries a size
// field).
func (r Record) IsTrade() bool {
	_, ok := r["size"]
	return ok
}

// Has reports whether the record carries a non-null value for the field.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// NormalizePrice converts a fixed-point encoded price (an integer value
// greater than 1,000,000, scaled by 1e9) back to its decimal value. Prices
// that do not match the heuristic are returned unchanged.
func NormalizePrice(d decimal.Decimal) decimal.Decimal {
	if d.IsInteger() && d.GreaterThan(fixedPointCutoff) {
		return d.Shift(-9)
	}
	return d
}

// RequiredFields returns the field set a record must carry for the given
// schema identifier. Schema matching is by substring, mirroring the vendor's
// schema naming (ohlcv-1s, ohlcv-1h, trades, mbp-1, mbp-10, ...). Unknown
// schemas only require the timestamp pair.
func RequiredFields(schema string) []string {
	base := []string{"ts_event", "ts_recv"}
	switch {
	case strings.Contains(schema, "ohlcv"):
		return append(base, "open", "high", "low", "close", "volume")
	case schema == "trades":
		return append(base, "price", "size")
	case strings.Contains(schema, "mbp"):
		return append(base, "bid_px_00", "ask_px_00", "bid_sz_00", "ask_sz_00")
	default:
		return base
	}
}

// LoadRecords decodes a JSON document that is either a bare array of records
// or an object with a top-level "data" key holding that array. Numbers are
// decoded with full precision so nanosecond timestamps survive the trip.
func LoadRecords(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	switch v := doc.(type) {
	case []any:
		return toRecords(v)
	case map[string]any:
		data, ok := v["data"]
		if !ok {
			return nil, fmt.Errorf("object document is missing the \"data\" key")
		}
		list, ok := data.([]any)
		if !ok {
			return nil, fmt.Errorf("\"data\" key does not hold an array")
		}
		return toRecords(list)
	default:
		return nil, fmt.Errorf("document is neither a record array nor a data envelope")
	}
}

// ReadRecordsFile loads records from a JSON file on disk.
func ReadRecordsFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	records, err := LoadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return records, nil
}

func toRecords(list []any) ([]Record, error) {
	records := make([]Record, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is not a record object", i)
		}
		records = append(records, Record(m))
	}
	return records, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	default:
		return decimal.Zero, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
