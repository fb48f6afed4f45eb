package models

import "encoding/json"

// IssueType classifies a detected data-quality problem.
type IssueType string

const (
	IssueTimestampGap    IssueType = "timestamp_gap"
	IssueDuplicate       IssueType = "duplicate_timestamp"
	IssuePriceOutlier    IssueType = "price_outlier"
	IssueNegativePrice   IssueType = "negative_price"
	IssueUnexpectedCount IssueType = "unexpected_record_count"
	IssueMissingField    IssueType = "missing_field"
)

// Severity indicates how serious a validation issue is. Errors invalidate
// their check; warnings do not.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one detected data-quality problem. Details carries the
// kind-specific fields (gap duration, offending price, field name) and is
// flattened into the top-level JSON object alongside the fixed fields, so
// the serialized form matches the report contract.
type Issue struct {
	Type     IssueType
	Severity Severity
	Message  string
	Details  map[string]any
}

// MarshalJSON flattens Details into the issue object.
func (i Issue) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Details)+3)
	for k, v := range i.Details {
		out[k] = v
	}
	out["type"] = i.Type
	out["severity"] = i.Severity
	out["message"] = i.Message
	return json.Marshal(out)
}

// GapDetail describes one timestamp gap between consecutive records.
type GapDetail struct {
	Index      int     `json:"index"`
	GapSeconds float64 `json:"gap_seconds"`
	GapMinutes float64 `json:"gap_minutes"`
	Before     string  `json:"before"`
	After      string  `json:"after"`
}

// GapCheck is the timestamp-gap sub-report.
type GapCheck struct {
	Valid     bool        `json:"valid"`
	GapsFound int         `json:"gaps_found"`
	Gaps      []GapDetail `json:"gaps"`
	TotalGaps int         `json:"total_gaps"`
	Note      string      `json:"note,omitempty"`
}

// DuplicateCheck is the duplicate-timestamp sub-report.
type DuplicateCheck struct {
	Valid               bool `json:"valid"`
	DuplicatesFound     int  `json:"duplicates_found"`
	DuplicateTimestamps int  `json:"duplicate_timestamps"`
}

// PriceCheck is the price-range sub-report. The statistics cover every
// extracted price including negative values.
type PriceCheck struct {
	Valid          bool    `json:"valid"`
	MinPrice       float64 `json:"min_price"`
	MaxPrice       float64 `json:"max_price"`
	MeanPrice      float64 `json:"mean_price"`
	StdDev         float64 `json:"std_dev"`
	NegativePrices int     `json:"negative_prices"`
	ZeroPrices     int     `json:"zero_prices"`
	Outliers       int     `json:"outliers"`
	Note           string  `json:"note,omitempty"`
}

// CountCheck is the record-count sub-report. ExpectedCount is nil when no
// estimate is available for the schema, in which case the check passes.
type CountCheck struct {
	Valid         bool   `json:"valid"`
	ActualCount   int    `json:"actual_count"`
	ExpectedCount *int   `json:"expected_count"`
	Note          string `json:"note"`
}

// CompletenessCheck is the field-completeness sub-report. MissingFields maps
// field name to the number of sampled records missing it.
type CompletenessCheck struct {
	Valid         bool           `json:"valid"`
	MissingFields map[string]int `json:"missing_fields"`
	Note          string         `json:"note,omitempty"`
}

// Checks collects the five sub-reports of one validation run.
type Checks struct {
	TimestampGaps *GapCheck          `json:"timestamp_gaps"`
	Duplicates    *DuplicateCheck    `json:"duplicates"`
	PriceRange    *PriceCheck        `json:"price_range"`
	RecordCount   *CountCheck        `json:"record_count"`
	Completeness  *CompletenessCheck `json:"data_completeness"`
}

// Report is the result of one validation run. Valid is the logical AND of
// every sub-report's validity; Issues lists every detected problem in
// detection order. A report is created fresh per run and never reused.
type Report struct {
	RunID        string  `json:"run_id"`
	TotalRecords int     `json:"total_records"`
	Valid        bool    `json:"valid"`
	Checks       Checks  `json:"checks"`
	Issues       []Issue `json:"issues"`
}

// FilterMetadata describes how a filtered dataset was produced.
type FilterMetadata struct {
	OriginalCount int      `json:"original_count"`
	FilteredCount int      `json:"filtered_count"`
	FilterType    string   `json:"filter_type"`
	Sessions      []string `json:"sessions"`
}

// FilteredDataset is the output envelope for session and transition filters.
type FilteredDataset struct {
	Data     []Record       `json:"data"`
	Metadata FilterMetadata `json:"metadata"`
}
