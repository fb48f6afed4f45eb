package fetch

import (
	"context"
	"fmt"
	"math"
	"time"

	"mdcheck/internal/models"
)

// MockVendor is an offline VendorClient producing deterministic synthetic
// OHLCV bars. It backs the CLI when no real vendor integration is wired and
// gives tests a well-behaved collaborator.
type MockVendor struct {
	// FailuresBeforeSuccess makes the first N Fetch calls fail, for
	// exercising the retry path.
	FailuresBeforeSuccess int

	fetchCalls int
}

// EstimateCost returns a size-proportional synthetic estimate.
func (m *MockVendor) EstimateCost(ctx context.Context, req Request) (*CostEstimate, error) {
	bars, err := m.barCount(req)
	if err != nil {
		return nil, err
	}
	return &CostEstimate{
		CostUSD: float64(bars*len(req.Symbols)) * 0.0001,
		SizeMB:  float64(bars*len(req.Symbols)) * 0.0002,
	}, nil
}

// DatasetRange reports a wide-open synthetic range.
func (m *MockVendor) DatasetRange(ctx context.Context, dataset string) (*DateRange, error) {
	return &DateRange{
		Start: "2000-01-01",
		End:   time.Now().UTC().Format("2006-01-02"),
	}, nil
}

// Fetch synthesizes hourly bars over the requested range: a slow sine walk
// around a base price, one bar per hour per symbol, fixed-point encoded
// prices like the real vendor feed.
func (m *MockVendor) Fetch(ctx context.Context, req Request) ([]models.Record, error) {
	m.fetchCalls++
	if m.fetchCalls <= m.FailuresBeforeSuccess {
		return nil, fmt.Errorf("mock vendor: simulated transient failure %d", m.fetchCalls)
	}

	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", req.Start, err)
	}
	bars, err := m.barCount(req)
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, bars*len(req.Symbols))
	for _, symbol := range req.Symbols {
		base := 4500.0 + float64(len(symbol))*10
		for i := 0; i < bars; i++ {
			if req.Limit > 0 && len(records) >= req.Limit {
				return records, nil
			}
			ts := start.Add(time.Duration(i) * time.Hour)
			drift := math.Sin(float64(i)/24*2*math.Pi) * 15
			open := base + drift
			close := base + drift + 2.5
			records = append(records, models.Record{
				"symbol":   symbol,
				"ts_event": ts.UnixNano(),
				"ts_recv":  ts.Add(50 * time.Millisecond).UnixNano(),
				"open":     int64(open * 1e9),
				"high":     int64((close + 5) * 1e9),
				"low":      int64((open - 5) * 1e9),
				"close":    int64(close * 1e9),
				"volume":   int64(1000 + i%250),
			})
		}
	}
	return records, nil
}

func (m *MockVendor) barCount(req Request) (int, error) {
	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		return 0, fmt.Errorf("invalid start date %q: %w", req.Start, err)
	}
	end := start.Add(24 * time.Hour)
	if req.End != "" {
		end, err = time.Parse("2006-01-02", req.End)
		if err != nil {
			return 0, fmt.Errorf("invalid end date %q: %w", req.End, err)
		}
	}
	if !end.After(start) {
		return 0, fmt.Errorf("end date %q is not after start date %q", req.End, req.Start)
	}
	return int(end.Sub(start) / time.Hour), nil
}
