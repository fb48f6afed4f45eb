package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	apperrors "mdcheck/internal/errors"
	"mdcheck/internal/models"
)

const (
	// DefaultMaxAttempts is the total number of fetch attempts before the
	// last error is surfaced to the caller.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the fixed delay between attempts.
	DefaultRetryDelay = 2 * time.Second
)

// Client wraps a VendorClient with retry behavior: up to MaxAttempts tries
// with a fixed delay between them, re-surfacing the final error once
// attempts are exhausted. Failures classified as non-retryable stop the loop
// immediately. No partial-result recovery is attempted.
type Client struct {
	vendor      VendorClient
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// NewClient creates a retrying client with the default attempt budget.
func NewClient(vendor VendorClient, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		vendor:      vendor,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      logger.With("component", "fetch_client"),
	}
}

// WithRetryPolicy overrides the attempt budget and inter-attempt delay.
func (c *Client) WithRetryPolicy(maxAttempts int, retryDelay time.Duration) *Client {
	if maxAttempts > 0 {
		c.maxAttempts = maxAttempts
	}
	if retryDelay > 0 {
		c.retryDelay = retryDelay
	}
	return c
}

// EstimateCost projects cost and size for a request. Estimation is a single
// cheap metadata call and is not retried.
func (c *Client) EstimateCost(ctx context.Context, req Request) (*CostEstimate, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetch request: %w", err)
	}

	estimate, err := c.vendor.EstimateCost(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cost estimation failed: %w", err)
	}

	c.logger.Info("estimated fetch cost",
		"symbols", req.Symbols,
		"schema", req.Schema,
		"cost_usd", estimate.CostUSD,
		"size_mb", estimate.SizeMB)
	return estimate, nil
}

// DatasetRange returns the available date range for a dataset.
func (c *Client) DatasetRange(ctx context.Context, dataset string) (*DateRange, error) {
	if dataset == "" {
		return nil, fmt.Errorf("dataset is required")
	}

	r, err := c.vendor.DatasetRange(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("dataset range lookup failed: %w", err)
	}

	c.logger.Debug("dataset range", "dataset", dataset, "start", r.Start, "end", r.End)
	return r, nil
}

// FetchRecords retrieves records with the fixed retry policy. The request is
// assigned an ID when it has none, so retries of one logical request can be
// correlated in the logs.
func (c *Client) FetchRecords(ctx context.Context, req Request) ([]models.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetch request: %w", err)
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	var records []models.Record
	attempt := 0

	operation := func() error {
		attempt++
		c.logger.Info("fetching records",
			"request_id", req.ID,
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"symbols", req.Symbols,
			"schema", req.Schema)

		fetched, err := c.vendor.Fetch(ctx, req)
		if err != nil {
			classified := apperrors.Classify(err, "fetch")
			if !classified.Retryable {
				return backoff.Permanent(classified)
			}
			return classified
		}
		records = fetched
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxAttempts-1)),
		ctx,
	)

	err := backoff.RetryNotify(operation, policy, func(err error, delay time.Duration) {
		c.logger.Warn("fetch attempt failed, retrying",
			"request_id", req.ID,
			"attempt", attempt,
			"error", err,
			"retry_delay", delay)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch failed after %d attempts: %w", attempt, err)
	}

	c.logger.Info("fetch complete", "request_id", req.ID, "records", len(records), "attempts", attempt)
	return records, nil
}
