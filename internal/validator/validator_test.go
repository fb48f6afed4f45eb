package validator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdcheck/internal/models"
)

var baseTime = time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)

// hourlyBar builds a complete hourly OHLCV record offset hours after the
// reference time.
func hourlyBar(hourOffset int, close float64) models.Record {
	ts := baseTime.Add(time.Duration(hourOffset) * time.Hour).UnixNano()
	return models.Record{
		"ts_event": ts,
		"ts_recv":  ts + 1000,
		"open":     close - 0.5,
		"high":     close + 1,
		"low":      close - 1,
		"close":    close,
		"volume":   int64(1000),
	}
}

func hourlyBars(n int) []models.Record {
	records := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, hourlyBar(i, 100+float64(i)))
	}
	return records
}

func TestValidateEmptyInput(t *testing.T) {
	v := New(DefaultConfig(), nil)
	report := v.Validate(nil)

	assert.False(t, report.Valid)
	assert.Equal(t, 0, report.TotalRecords)
	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.Issues)
	assert.Nil(t, report.Checks.TimestampGaps)
	assert.Nil(t, report.Checks.Duplicates)
	assert.Nil(t, report.Checks.PriceRange)
	assert.Nil(t, report.Checks.RecordCount)
	assert.Nil(t, report.Checks.Completeness)
}

func TestValidateCleanData(t *testing.T) {
	v := New(DefaultConfig(), nil)
	report := v.Validate(hourlyBars(24))

	assert.True(t, report.Valid)
	assert.Equal(t, 24, report.TotalRecords)
	assert.Empty(t, report.Issues)

	require.NotNil(t, report.Checks.TimestampGaps)
	assert.True(t, report.Checks.TimestampGaps.Valid)
	assert.Equal(t, 0, report.Checks.TimestampGaps.GapsFound)

	require.NotNil(t, report.Checks.Duplicates)
	assert.True(t, report.Checks.Duplicates.Valid)

	require.NotNil(t, report.Checks.PriceRange)
	assert.True(t, report.Checks.PriceRange.Valid)
	assert.Equal(t, 100.0, report.Checks.PriceRange.MinPrice)
	assert.Equal(t, 123.0, report.Checks.PriceRange.MaxPrice)

	require.NotNil(t, report.Checks.RecordCount)
	assert.True(t, report.Checks.RecordCount.Valid)
	assert.Nil(t, report.Checks.RecordCount.ExpectedCount)

	require.NotNil(t, report.Checks.Completeness)
	assert.True(t, report.Checks.Completeness.Valid)
}

func TestCheckTimestampGaps(t *testing.T) {
	t.Run("gap of exactly the maximum is acceptable", func(t *testing.T) {
		v := New(Config{Schema: "ohlcv-1h", MaxGapMinutes: 60}, nil)
		report := v.Validate(hourlyBars(5))
		assert.Equal(t, 0, report.Checks.TimestampGaps.GapsFound)
		assert.True(t, report.Checks.TimestampGaps.Valid)
	})

	t.Run("gap beyond the maximum is a warning", func(t *testing.T) {
		v := New(Config{Schema: "ohlcv-1h", MaxGapMinutes: 60}, nil)
		records := []models.Record{
			hourlyBar(0, 100),
			hourlyBar(1, 101),
			hourlyBar(4, 102), // 3 hours after the previous bar
		}
		report := v.Validate(records)

		check := report.Checks.TimestampGaps
		require.Equal(t, 1, check.GapsFound)
		assert.Equal(t, 1, check.TotalGaps)
		assert.False(t, check.Valid)
		assert.False(t, report.Valid)
		require.Len(t, check.Gaps, 1)
		assert.InDelta(t, 180.0, check.Gaps[0].GapMinutes, 0.001)
		assert.Equal(t, 1, check.Gaps[0].Index)

		require.Len(t, report.Issues, 1)
		assert.Equal(t, models.IssueTimestampGap, report.Issues[0].Type)
		assert.Equal(t, models.SeverityWarning, report.Issues[0].Severity)
	})

	t.Run("unsorted input is sorted before pairing", func(t *testing.T) {
		v := New(Config{Schema: "ohlcv-1h", MaxGapMinutes: 60}, nil)
		records := []models.Record{hourlyBar(2, 102), hourlyBar(0, 100), hourlyBar(1, 101)}
		report := v.Validate(records)
		assert.Equal(t, 0, report.Checks.TimestampGaps.GapsFound)
	})

	t.Run("single record is insufficient for gap detection", func(t *testing.T) {
		v := New(DefaultConfig(), nil)
		report := v.Validate([]models.Record{hourlyBar(0, 100)})
		check := report.Checks.TimestampGaps
		assert.True(t, check.Valid)
		assert.Equal(t, "Insufficient data for gap detection", check.Note)
	})

	t.Run("sub-report embeds at most ten gaps", func(t *testing.T) {
		v := New(Config{Schema: "ohlcv-1h", MaxGapMinutes: 60}, nil)
		records := make([]models.Record, 0, 15)
		for i := 0; i < 15; i++ {
			records = append(records, hourlyBar(i*3, 100))
		}
		report := v.Validate(records)
		check := report.Checks.TimestampGaps
		assert.Equal(t, 14, check.TotalGaps)
		assert.Len(t, check.Gaps, issueCap)
	})
}

func TestCheckDuplicates(t *testing.T) {
	v := New(DefaultConfig(), nil)

	t.Run("repeated timestamp is one duplicate group", func(t *testing.T) {
		records := []models.Record{hourlyBar(0, 100), hourlyBar(0, 100), hourlyBar(1, 101)}
		report := v.Validate(records)

		check := report.Checks.Duplicates
		assert.False(t, check.Valid)
		assert.Equal(t, 1, check.DuplicatesFound)
		assert.Equal(t, 1, check.DuplicateTimestamps)
		assert.False(t, report.Valid)

		var found bool
		for _, issue := range report.Issues {
			if issue.Type == models.IssueDuplicate {
				found = true
				assert.Equal(t, models.SeverityError, issue.Severity)
				assert.Equal(t, "Timestamp appears 2 times", issue.Message)
			}
		}
		assert.True(t, found)
	})

	t.Run("triplicate counts as one group", func(t *testing.T) {
		records := []models.Record{hourlyBar(0, 100), hourlyBar(0, 100), hourlyBar(0, 100)}
		report := v.Validate(records)
		assert.Equal(t, 1, report.Checks.Duplicates.DuplicatesFound)
	})

	t.Run("issue list caps at ten groups", func(t *testing.T) {
		var records []models.Record
		for i := 0; i < 15; i++ {
			records = append(records, hourlyBar(i, 100), hourlyBar(i, 100))
		}
		report := v.Validate(records)
		assert.Equal(t, 15, report.Checks.Duplicates.DuplicatesFound)

		duplicateIssues := 0
		for _, issue := range report.Issues {
			if issue.Type == models.IssueDuplicate {
				duplicateIssues++
			}
		}
		assert.Equal(t, issueCap, duplicateIssues)
	})
}

func TestCheckPriceRange(t *testing.T) {
	t.Run("negative price invalidates", func(t *testing.T) {
		v := New(DefaultConfig(), nil)
		records := []models.Record{
			hourlyBar(0, 100), hourlyBar(1, 100), hourlyBar(2, 100),
			hourlyBar(3, 100), hourlyBar(4, -5),
		}
		report := v.Validate(records)

		check := report.Checks.PriceRange
		assert.False(t, check.Valid)
		assert.Equal(t, 1, check.NegativePrices)
		assert.Equal(t, -5.0, check.MinPrice)
		assert.Equal(t, 100.0, check.MaxPrice)
		assert.InDelta(t, 79.0, check.MeanPrice, 0.001)

		negatives := 0
		for _, issue := range report.Issues {
			if issue.Type == models.IssueNegativePrice {
				negatives++
				assert.Equal(t, models.SeverityError, issue.Severity)
			}
		}
		assert.Equal(t, 1, negatives)
	})

	t.Run("zero price invalidates without an itemized issue", func(t *testing.T) {
		v := New(DefaultConfig(), nil)
		report := v.Validate([]models.Record{hourlyBar(0, 100), hourlyBar(1, 0)})

		check := report.Checks.PriceRange
		assert.False(t, check.Valid)
		assert.Equal(t, 1, check.ZeroPrices)
		assert.Equal(t, 0, check.NegativePrices)
		for _, issue := range report.Issues {
			assert.NotEqual(t, models.IssueNegativePrice, issue.Type)
		}
	})

	t.Run("single price has no spread", func(t *testing.T) {
		v := New(DefaultConfig(), nil)
		report := v.Validate([]models.Record{hourlyBar(0, 100)})

		check := report.Checks.PriceRange
		assert.True(t, check.Valid)
		assert.Equal(t, 100.0, check.MeanPrice)
		assert.Equal(t, 0.0, check.StdDev)
		assert.Equal(t, 0, check.Outliers)
	})

	t.Run("outliers warn but do not invalidate", func(t *testing.T) {
		v := New(Config{Schema: "ohlcv-1h", PriceOutlierStd: 2}, nil)
		records := make([]models.Record, 0, 10)
		for i := 0; i < 9; i++ {
			records = append(records, hourlyBar(i, 100))
		}
		records = append(records, hourlyBar(9, 1000))
		report := v.Validate(records)

		check := report.Checks.PriceRange
		assert.True(t, check.Valid)
		assert.Equal(t, 1, check.Outliers)

		outliers := 0
		for _, issue := range report.Issues {
			if issue.Type == models.IssuePriceOutlier {
				outliers++
				assert.Equal(t, models.SeverityWarning, issue.Severity)
			}
		}
		assert.Equal(t, 1, outliers)
	})

	t.Run("no price data passes with a note", func(t *testing.T) {
		v := New(Config{Schema: "status"}, nil)
		ts := baseTime.UnixNano()
		report := v.Validate([]models.Record{{"ts_event": ts, "ts_recv": ts}})

		check := report.Checks.PriceRange
		assert.True(t, check.Valid)
		assert.Equal(t, "No price data to validate", check.Note)
	})
}

// fixedEstimator is a test estimator with a known expected count.
type fixedEstimator struct {
	expected int
}

func (e fixedEstimator) Estimate(string, []models.Record) (int, bool) {
	return e.expected, true
}

func TestCheckRecordCount(t *testing.T) {
	t.Run("default estimator has no estimate", func(t *testing.T) {
		v := New(DefaultConfig(), nil)
		report := v.Validate(hourlyBars(3))

		check := report.Checks.RecordCount
		assert.True(t, check.Valid)
		assert.Equal(t, 3, check.ActualCount)
		assert.Nil(t, check.ExpectedCount)
		assert.Equal(t, "Expected count is estimated based on schema and date range", check.Note)
	})

	t.Run("large deviation from the estimate fails", func(t *testing.T) {
		v := New(DefaultConfig(), nil).WithEstimator(fixedEstimator{expected: 10})
		report := v.Validate(hourlyBars(5))

		check := report.Checks.RecordCount
		assert.False(t, check.Valid)
		require.NotNil(t, check.ExpectedCount)
		assert.Equal(t, 10, *check.ExpectedCount)
		assert.False(t, report.Valid)

		var found bool
		for _, issue := range report.Issues {
			if issue.Type == models.IssueUnexpectedCount {
				found = true
				assert.Equal(t, models.SeverityWarning, issue.Severity)
			}
		}
		assert.True(t, found)
	})

	t.Run("deviation within ten percent passes", func(t *testing.T) {
		v := New(DefaultConfig(), nil).WithEstimator(fixedEstimator{expected: 24})
		report := v.Validate(hourlyBars(23))
		assert.True(t, report.Checks.RecordCount.Valid)
	})
}

func TestCheckCompleteness(t *testing.T) {
	t.Run("missing field across the sample", func(t *testing.T) {
		v := New(DefaultConfig(), nil)
		records := make([]models.Record, 0, 120)
		for i := 0; i < 120; i++ {
			r := hourlyBar(i, 100)
			delete(r, "volume")
			records = append(records, r)
		}
		report := v.Validate(records)

		check := report.Checks.Completeness
		assert.False(t, check.Valid)
		assert.Equal(t, completenessSample, check.MissingFields["volume"])

		var issue *models.Issue
		for i := range report.Issues {
			if report.Issues[i].Type == models.IssueMissingField {
				issue = &report.Issues[i]
			}
		}
		require.NotNil(t, issue)
		assert.Equal(t, models.SeverityError, issue.Severity)
		assert.Equal(t, fmt.Sprintf("Field 'volume' missing in %d records (sampled)", completenessSample), issue.Message)
	})

	t.Run("null values count as missing", func(t *testing.T) {
		v := New(DefaultConfig(), nil)
		r := hourlyBar(0, 100)
		r["open"] = nil
		report := v.Validate([]models.Record{r, hourlyBar(1, 101)})

		check := report.Checks.Completeness
		assert.False(t, check.Valid)
		assert.Equal(t, 1, check.MissingFields["open"])
	})

	t.Run("trades schema requires price and size", func(t *testing.T) {
		v := New(Config{Schema: "trades"}, nil)
		ts := baseTime.UnixNano()
		report := v.Validate([]models.Record{
			{"ts_event": ts, "ts_recv": ts, "price": 10.5, "size": int64(2)},
		})
		assert.True(t, report.Checks.Completeness.Valid)
	})
}

func TestValidatorReuseIsolatesRuns(t *testing.T) {
	v := New(DefaultConfig(), nil)

	dirty := v.Validate([]models.Record{hourlyBar(0, 100), hourlyBar(0, 100)})
	assert.False(t, dirty.Valid)
	assert.NotEmpty(t, dirty.Issues)

	clean := v.Validate(hourlyBars(5))
	assert.True(t, clean.Valid)
	assert.Empty(t, clean.Issues)
	assert.NotEqual(t, dirty.RunID, clean.RunID)
}

func TestNewBackfillsDefaults(t *testing.T) {
	v := New(Config{Schema: "ohlcv-1h"}, nil)
	assert.Equal(t, DefaultMaxGapMinutes, v.cfg.MaxGapMinutes)
	assert.Equal(t, DefaultPriceOutlierStd, v.cfg.PriceOutlierStd)
}
