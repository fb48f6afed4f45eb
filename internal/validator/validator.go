// Package validator runs the data-quality battery over market-data records:
// timestamp gap detection, duplicate timestamps, price-range and outlier
// analysis, record-count verification, and field completeness. The five
// checks are independent; each contributes its own sub-report and appends to
// a shared, run-scoped issue list, and the overall report validity is the
// logical AND of all sub-report validities.
package validator

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"mdcheck/internal/models"
)

const (
	// DefaultMaxGapMinutes is the maximum acceptable distance between
	// consecutive timestamps before a gap is reported.
	DefaultMaxGapMinutes = 60
	// DefaultPriceOutlierStd is the outlier threshold in population standard
	// deviations from the mean.
	DefaultPriceOutlierStd = 10.0

	// issueCap bounds how many individual issues a single check itemizes.
	// Full counts are still reported in the sub-report summaries.
	issueCap = 10
	// completenessSample bounds how many records the completeness check
	// examines. Sampling keeps the check cheap on large inputs at the cost
	// of exhaustiveness.
	completenessSample = 100

	nanosPerSecond = 1_000_000_000
)

// Config controls one validator's check parameters.
type Config struct {
	// Schema selects the required-field set and count estimation; matched by
	// substring (e.g. "ohlcv-1h", "trades", "mbp-1").
	Schema string
	// MaxGapMinutes is the gap-detection threshold.
	MaxGapMinutes int
	// PriceOutlierStd is the outlier threshold in standard deviations.
	PriceOutlierStd float64
}

// DefaultConfig returns the standard check parameters for hourly OHLCV data.
func DefaultConfig() Config {
	return Config{
		Schema:          "ohlcv-1h",
		MaxGapMinutes:   DefaultMaxGapMinutes,
		PriceOutlierStd: DefaultPriceOutlierStd,
	}
}

// QualityValidator runs the quality battery. A validator may be reused:
// every Validate call owns fresh run state, so sequential runs never leak
// issues into each other. Concurrent validator instances are independent.
type QualityValidator struct {
	cfg           Config
	maxGapSeconds float64
	estimator     CountEstimator
	logger        *slog.Logger
}

// New creates a validator with the given configuration and the default
// schedule-based count estimator.
func New(cfg Config, logger *slog.Logger) *QualityValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxGapMinutes <= 0 {
		cfg.MaxGapMinutes = DefaultMaxGapMinutes
	}
	if cfg.PriceOutlierStd <= 0 {
		cfg.PriceOutlierStd = DefaultPriceOutlierStd
	}
	return &QualityValidator{
		cfg:           cfg,
		maxGapSeconds: float64(cfg.MaxGapMinutes) * 60,
		estimator:     ScheduleEstimator{},
		logger:        logger.With("component", "quality_validator"),
	}
}

// WithEstimator replaces the expected-record-count estimator.
func (v *QualityValidator) WithEstimator(e CountEstimator) *QualityValidator {
	if e != nil {
		v.estimator = e
	}
	return v
}

// run is the accumulator for one Validate call. Issues are append-only and
// returned in detection order.
type run struct {
	issues []models.Issue
}

func (r *run) add(issue models.Issue) {
	r.issues = append(r.issues, issue)
}

// Validate runs all five checks over the records and assembles the report.
// An empty input short-circuits to an invalid report with zero checks run.
// Checks never abort the run; problems degrade the valid flag and populate
// the issue list.
func (v *QualityValidator) Validate(records []models.Record) *models.Report {
	report := &models.Report{
		RunID:        uuid.New().String(),
		TotalRecords: len(records),
		Issues:       []models.Issue{},
	}

	if len(records) == 0 {
		v.logger.Warn("no records to validate")
		report.Valid = false
		return report
	}

	v.logger.Info("running quality checks", "records", len(records), "schema", v.cfg.Schema)

	r := &run{}
	report.Checks.TimestampGaps = v.checkTimestampGaps(records, r)
	report.Checks.Duplicates = v.checkDuplicates(records, r)
	report.Checks.PriceRange = v.checkPriceRange(records, r)
	report.Checks.RecordCount = v.checkRecordCount(records, r)
	report.Checks.Completeness = v.checkCompleteness(records, r)

	report.Valid = report.Checks.TimestampGaps.Valid &&
		report.Checks.Duplicates.Valid &&
		report.Checks.PriceRange.Valid &&
		report.Checks.RecordCount.Valid &&
		report.Checks.Completeness.Valid
	report.Issues = r.issues

	v.logger.Info("quality checks complete",
		"run_id", report.RunID,
		"valid", report.Valid,
		"issues", len(report.Issues))
	return report
}

// checkTimestampGaps sorts all record timestamps and reports every
// consecutive pair further apart than the configured maximum. The boundary
// is strictly greater-than: a gap of exactly MaxGapMinutes is acceptable.
func (v *QualityValidator) checkTimestampGaps(records []models.Record, r *run) *models.GapCheck {
	timestamps := extractTimestamps(records)
	if len(timestamps) < 2 {
		return &models.GapCheck{
			Valid: true,
			Gaps:  []models.GapDetail{},
			Note:  "Insufficient data for gap detection",
		}
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	var gaps []models.GapDetail
	for i := 0; i < len(timestamps)-1; i++ {
		gapSeconds := float64(timestamps[i+1]-timestamps[i]) / nanosPerSecond
		if gapSeconds <= v.maxGapSeconds {
			continue
		}
		gap := models.GapDetail{
			Index:      i,
			GapSeconds: gapSeconds,
			GapMinutes: gapSeconds / 60,
			Before:     formatNanos(timestamps[i]),
			After:      formatNanos(timestamps[i+1]),
		}
		gaps = append(gaps, gap)
		r.add(models.Issue{
			Type:     models.IssueTimestampGap,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("Gap of %.1f minutes detected", gap.GapMinutes),
			Details: map[string]any{
				"index":       gap.Index,
				"gap_seconds": gap.GapSeconds,
				"gap_minutes": gap.GapMinutes,
				"before":      gap.Before,
				"after":       gap.After,
			},
		})
	}

	v.logger.Debug("gap check complete", "gaps", len(gaps), "max_gap_minutes", v.cfg.MaxGapMinutes)

	// The sub-report embeds at most 10 gap details; the issue list and
	// TotalGaps carry the full picture.
	reported := gaps
	if len(reported) > issueCap {
		reported = reported[:issueCap]
	}
	if reported == nil {
		reported = []models.GapDetail{}
	}
	return &models.GapCheck{
		Valid:     len(gaps) == 0,
		GapsFound: len(gaps),
		Gaps:      reported,
		TotalGaps: len(gaps),
	}
}

// checkDuplicates counts occurrences per exact timestamp value and reports
// each value occurring more than once as a duplicate group. The issue list
// itemizes the first 10 groups in timestamp order; the summary carries the
// full group count.
func (v *QualityValidator) checkDuplicates(records []models.Record, r *run) *models.DuplicateCheck {
	counts := make(map[int64]int)
	for _, ts := range extractTimestamps(records) {
		counts[ts]++
	}

	var duplicates []int64
	for ts, count := range counts {
		if count > 1 {
			duplicates = append(duplicates, ts)
		}
	}
	sort.Slice(duplicates, func(i, j int) bool { return duplicates[i] < duplicates[j] })

	for i, ts := range duplicates {
		if i >= issueCap {
			break
		}
		r.add(models.Issue{
			Type:     models.IssueDuplicate,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("Timestamp appears %d times", counts[ts]),
			Details: map[string]any{
				"timestamp": formatNanos(ts),
				"count":     counts[ts],
			},
		})
	}

	v.logger.Debug("duplicate check complete", "duplicate_groups", len(duplicates))

	return &models.DuplicateCheck{
		Valid:               len(duplicates) == 0,
		DuplicatesFound:     len(duplicates),
		DuplicateTimestamps: len(duplicates),
	}
}

// checkPriceRange extracts prices (close for bars, price otherwise, with
// fixed-point rescale applied), computes summary statistics over every
// extracted price including invalid ones, and flags negative prices, zero
// prices, and outliers beyond the configured number of population standard
// deviations. Outliers alone do not invalidate the check.
func (v *QualityValidator) checkPriceRange(records []models.Record, r *run) *models.PriceCheck {
	prices := extractPrices(records)
	if len(prices) == 0 {
		return &models.PriceCheck{Valid: true, Note: "No price data to validate"}
	}

	var negatives, zeros int
	minPrice, maxPrice := prices[0], prices[0]
	sum := 0.0
	for _, p := range prices {
		if p < 0 {
			negatives++
			if negatives <= issueCap {
				r.add(models.Issue{
					Type:     models.IssueNegativePrice,
					Severity: models.SeverityError,
					Message:  fmt.Sprintf("Negative price detected: %g", p),
					Details:  map[string]any{"price": p},
				})
			}
		}
		if p == 0 {
			zeros++
		}
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
		sum += p
	}

	// With a single price there is no spread to measure: stddev is 0 and no
	// outliers are flagged.
	mean := prices[0]
	stdDev := 0.0
	outliers := 0
	if len(prices) > 1 {
		mean = sum / float64(len(prices))
		variance := 0.0
		for _, p := range prices {
			variance += (p - mean) * (p - mean)
		}
		variance /= float64(len(prices))
		stdDev = math.Sqrt(variance)

		for _, p := range prices {
			if math.Abs(p-mean) > v.cfg.PriceOutlierStd*stdDev {
				outliers++
				if outliers <= issueCap {
					r.add(models.Issue{
						Type:     models.IssuePriceOutlier,
						Severity: models.SeverityWarning,
						Message: fmt.Sprintf("Price %.2f is %.1f std devs from mean",
							p, math.Abs(p-mean)/stdDev),
						Details: map[string]any{
							"price":   p,
							"mean":    mean,
							"std_dev": stdDev,
						},
					})
				}
			}
		}
	}

	v.logger.Debug("price check complete",
		"prices", len(prices),
		"negative", negatives,
		"zero", zeros,
		"outliers", outliers)

	return &models.PriceCheck{
		Valid:          negatives == 0 && zeros == 0,
		MinPrice:       minPrice,
		MaxPrice:       maxPrice,
		MeanPrice:      mean,
		StdDev:         stdDev,
		NegativePrices: negatives,
		ZeroPrices:     zeros,
		Outliers:       outliers,
	}
}

// checkRecordCount compares the actual record count against the estimator's
// expected count for the schema. The default estimator has no estimate for
// any schema, so this check passes explicitly with an "expected count
// unavailable" note until a real estimator is supplied.
func (v *QualityValidator) checkRecordCount(records []models.Record, r *run) *models.CountCheck {
	check := &models.CountCheck{
		Valid:       true,
		ActualCount: len(records),
		Note:        "Expected count is estimated based on schema and date range",
	}

	expected, ok := v.estimator.Estimate(v.cfg.Schema, records)
	if !ok {
		return check
	}

	check.ExpectedCount = &expected
	deviation := len(records) - expected
	if deviation < 0 {
		deviation = -deviation
	}
	// More than 10% deviation from the estimate fails the check.
	if expected > 0 && float64(deviation) > float64(expected)*0.1 {
		check.Valid = false
		r.add(models.Issue{
			Type:     models.IssueUnexpectedCount,
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("Expected ~%d records, got %d", expected, len(records)),
			Details: map[string]any{
				"actual":   len(records),
				"expected": expected,
			},
		})
	}
	return check
}

// checkCompleteness verifies that the schema's required fields are present
// and non-null, sampling only the first 100 records. One error issue is
// appended per distinct missing field, with the sampled occurrence count.
func (v *QualityValidator) checkCompleteness(records []models.Record, r *run) *models.CompletenessCheck {
	required := models.RequiredFields(v.cfg.Schema)

	sample := records
	if len(sample) > completenessSample {
		sample = sample[:completenessSample]
	}

	missing := make(map[string]int)
	for _, record := range sample {
		for _, field := range required {
			if !record.Has(field) {
				missing[field]++
			}
		}
	}

	// Itemize in the schema's field order for stable output.
	for _, field := range required {
		count, ok := missing[field]
		if !ok {
			continue
		}
		r.add(models.Issue{
			Type:     models.IssueMissingField,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("Field '%s' missing in %d records (sampled)", field, count),
			Details: map[string]any{
				"field":         field,
				"missing_count": count,
			},
		})
	}

	v.logger.Debug("completeness check complete",
		"sampled", len(sample),
		"missing_fields", len(missing))

	return &models.CompletenessCheck{
		Valid:         len(missing) == 0,
		MissingFields: missing,
	}
}

func extractTimestamps(records []models.Record) []int64 {
	timestamps := make([]int64, 0, len(records))
	for _, record := range records {
		if ts, ok := record.Timestamp(); ok {
			timestamps = append(timestamps, ts)
		}
	}
	return timestamps
}

func extractPrices(records []models.Record) []float64 {
	prices := make([]float64, 0, len(records))
	for _, record := range records {
		if p, ok := record.Price(); ok {
			prices = append(prices, p.InexactFloat64())
		}
	}
	return prices
}

func formatNanos(ns int64) string {
	return time.Unix(0, ns).UTC().Format("2006-01-02 15:04:05")
}
