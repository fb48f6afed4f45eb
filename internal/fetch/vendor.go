// Package fetch defines the vendor data-service boundary and a retrying
// client over it. The vendor protocol itself is out of scope: the package
// ships interface definitions, the retry wrapper, and a mock vendor for
// tests and offline use.
package fetch

import (
	"context"
	"fmt"

	"mdcheck/internal/models"
)

// Request describes one vendor data request.
type Request struct {
	// ID correlates log lines and retries for one logical request.
	ID      string   `json:"id"`
	Dataset string   `json:"dataset"`
	Symbols []string `json:"symbols"`
	Schema  string   `json:"schema"`
	Start   string   `json:"start"`         // YYYY-MM-DD
	End     string   `json:"end,omitempty"` // YYYY-MM-DD, empty means now
	Limit   int      `json:"limit,omitempty"`
	StypeIn string   `json:"stype_in,omitempty"`
}

// Validate checks the request parameters before any network work.
func (r Request) Validate() error {
	if len(r.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if r.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if r.Start == "" {
		return fmt.Errorf("start date is required")
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	return nil
}

// CostEstimate is the vendor's pre-fetch cost projection.
type CostEstimate struct {
	CostUSD float64 `json:"estimated_cost_usd"`
	SizeMB  float64 `json:"estimated_size_mb"`
}

// DateRange is the available date span of a dataset.
type DateRange struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// VendorClient is the external data-vendor service. Implementations handle
// the wire protocol; callers compose them with Client for retry behavior.
type VendorClient interface {
	// EstimateCost projects the cost and size of a request before fetching.
	EstimateCost(ctx context.Context, req Request) (*CostEstimate, error)

	// DatasetRange returns the available date range for a dataset.
	DatasetRange(ctx context.Context, dataset string) (*DateRange, error)

	// Fetch retrieves the records matching the request. Records conform to
	// the models.Record shape; an empty result is not an error.
	Fetch(ctx context.Context, req Request) ([]models.Record, error)
}
