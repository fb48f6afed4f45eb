package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTimestamp(t *testing.T) {
	t.Run("prefers ts_event over ts_recv and timestamp", func(t *testing.T) {
		record := Record{
			"ts_event":  int64(100),
			"ts_recv":   int64(200),
			"timestamp": int64(300),
		}
		ts, ok := record.Timestamp()
		require.True(t, ok)
		assert.Equal(t, int64(100), ts)
	})

	t.Run("falls back to ts_recv then timestamp", func(t *testing.T) {
		ts, ok := Record{"ts_recv": int64(200), "timestamp": int64(300)}.Timestamp()
		require.True(t, ok)
		assert.Equal(t, int64(200), ts)

		ts, ok = Record{"timestamp": int64(300)}.Timestamp()
		require.True(t, ok)
		assert.Equal(t, int64(300), ts)
	})

	t.Run("missing timestamp", func(t *testing.T) {
		_, ok := Record{"open": int64(1)}.Timestamp()
		assert.False(t, ok)
	})

	t.Run("null and zero are unusable", func(t *testing.T) {
		_, ok := Record{"ts_event": nil, "ts_recv": int64(0)}.Timestamp()
		assert.False(t, ok)
	})

	t.Run("json numbers preserve nanosecond precision", func(t *testing.T) {
		record := Record{"ts_event": json.Number("1704067200000000001")}
		ts, ok := record.Timestamp()
		require.True(t, ok)
		assert.Equal(t, int64(1704067200000000001), ts)
	})
}

func TestRecordPrice(t *testing.T) {
	t.Run("prefers close over price", func(t *testing.T) {
		record := Record{"close": 101.5, "price": 99.0}
		p, ok := record.Price()
		require.True(t, ok)
		assert.True(t, p.Equal(decimal.NewFromFloat(101.5)))
	})

	t.Run("uses price for trade records", func(t *testing.T) {
		p, ok := Record{"price": 42.25}.Price()
		require.True(t, ok)
		assert.True(t, p.Equal(decimal.NewFromFloat(42.25)))
	})

	t.Run("rescales fixed-point close", func(t *testing.T) {
		p, ok := Record{"close": int64(4500_250_000_000)}.Price()
		require.True(t, ok)
		assert.True(t, p.Equal(decimal.NewFromFloat(4500.25)), "got %s", p)
	})

	t.Run("no price fields", func(t *testing.T) {
		_, ok := Record{"volume": int64(10)}.Price()
		assert.False(t, ok)
	})
}

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"large integer is rescaled", "4500000000000", "4500"},
		{"boundary value stays", "1000000", "1000000"},
		{"small integer stays", "999999", "999999"},
		{"large fractional stays", "1500000.5", "1500000.5"},
		{"ordinary float stays", "101.25", "101.25"},
		{"negative stays", "-5", "-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := decimal.NewFromString(tc.in)
			require.NoError(t, err)
			want, err := decimal.NewFromString(tc.want)
			require.NoError(t, err)
			assert.True(t, NormalizePrice(in).Equal(want), "got %s", NormalizePrice(in))
		})
	}
}

func TestRequiredFields(t *testing.T) {
	t.Run("ohlcv schemas", func(t *testing.T) {
		fields := RequiredFields("ohlcv-1h")
		assert.Equal(t, []string{"ts_event", "ts_recv", "open", "high", "low", "close", "volume"}, fields)
	})

	t.Run("trades schema", func(t *testing.T) {
		assert.Equal(t, []string{"ts_event", "ts_recv", "price", "size"}, RequiredFields("trades"))
	})

	t.Run("mbp schemas", func(t *testing.T) {
		fields := RequiredFields("mbp-1")
		assert.Equal(t, []string{"ts_event", "ts_recv", "bid_px_00", "ask_px_00", "bid_sz_00", "ask_sz_00"}, fields)
	})

	t.Run("unknown schema needs only timestamps", func(t *testing.T) {
		assert.Equal(t, []string{"ts_event", "ts_recv"}, RequiredFields("status"))
	})
}

func TestLoadRecords(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		records, err := LoadRecords(strings.NewReader(`[{"ts_event": 100}, {"ts_event": 200}]`))
		require.NoError(t, err)
		require.Len(t, records, 2)
		ts, ok := records[0].Timestamp()
		require.True(t, ok)
		assert.Equal(t, int64(100), ts)
	})

	t.Run("data envelope", func(t *testing.T) {
		records, err := LoadRecords(strings.NewReader(`{"data": [{"ts_event": 100}]}`))
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("envelope and bare array are equivalent", func(t *testing.T) {
		bare, err := LoadRecords(strings.NewReader(`[{"close": 101.5}]`))
		require.NoError(t, err)
		wrapped, err := LoadRecords(strings.NewReader(`{"data": [{"close": 101.5}]}`))
		require.NoError(t, err)
		assert.Equal(t, bare, wrapped)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := LoadRecords(strings.NewReader(`{not json`))
		assert.Error(t, err)
	})

	t.Run("object without data key", func(t *testing.T) {
		_, err := LoadRecords(strings.NewReader(`{"records": []}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data")
	})

	t.Run("data key not an array", func(t *testing.T) {
		_, err := LoadRecords(strings.NewReader(`{"data": 5}`))
		assert.Error(t, err)
	})

	t.Run("non-object element", func(t *testing.T) {
		_, err := LoadRecords(strings.NewReader(`[1, 2]`))
		assert.Error(t, err)
	})
}

func TestIssueMarshalFlattensDetails(t *testing.T) {
	issue := Issue{
		Type:     IssueMissingField,
		Severity: SeverityError,
		Message:  "Field 'volume' missing in 100 records (sampled)",
		Details:  map[string]any{"field": "volume", "missing_count": 100},
	}

	data, err := json.Marshal(issue)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "missing_field", out["type"])
	assert.Equal(t, "error", out["severity"])
	assert.Equal(t, "volume", out["field"])
	assert.Equal(t, float64(100), out["missing_count"])
}
