package session

import (
	"log/slog"
	"time"

	"mdcheck/internal/models"
)

// Classifier filters record streams by session membership. Filtering is
// best-effort: records without a usable timestamp are dropped silently.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a session classifier.
func NewClassifier(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger.With("component", "session_classifier")}
}

// FilterResult is a filtered record set together with the metadata describing
// how it was produced.
type FilterResult struct {
	Records  []models.Record
	Metadata models.FilterMetadata
}

// FilterBySessions keeps records whose derived timestamp falls in any of the
// requested sessions. Unknown session names fail before any record is
// examined.
func (c *Classifier) FilterBySessions(records []models.Record, sessionNames []string) (*FilterResult, error) {
	names, err := ParseAll(sessionNames)
	if err != nil {
		return nil, err
	}

	wanted := make(map[Name]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	filtered := make([]models.Record, 0, len(records))
	for _, record := range records {
		ns, ok := record.Timestamp()
		if !ok {
			continue
		}
		if wanted[SessionForNanos(ns)] {
			filtered = append(filtered, record)
		}
	}

	pct := 0.0
	if len(records) > 0 {
		pct = float64(len(filtered)) / float64(len(records)) * 100
	}
	c.logger.Info("filtered records by session",
		"sessions", sessionNames,
		"input", len(records),
		"kept", len(filtered),
		"kept_pct", pct)

	return &FilterResult{
		Records: filtered,
		Metadata: models.FilterMetadata{
			OriginalCount: len(records),
			FilteredCount: len(filtered),
			FilterType:    "sessions",
			Sessions:      sessionNames,
		},
	}, nil
}

// FilterTransitions keeps records whose ET wall-clock time of day lies at
// most minutesBefore before or minutesAfter after any session transition
// hour. The distance is a time-of-day distance on the same calendar day, not
// a true elapsed-time distance: a record just after midnight is not
// considered close to the 18:00 transition of the previous evening. This
// matches the upstream window arithmetic and must be preserved.
func (c *Classifier) FilterTransitions(records []models.Record, minutesBefore, minutesAfter int) *FilterResult {
	filtered := make([]models.Record, 0, len(records))
	for _, record := range records {
		ns, ok := record.Timestamp()
		if !ok {
			continue
		}
		if nearTransition(time.Unix(0, ns).UTC(), minutesBefore*60, minutesAfter*60) {
			filtered = append(filtered, record)
		}
	}

	c.logger.Info("filtered records near session transitions",
		"minutes_before", minutesBefore,
		"minutes_after", minutesAfter,
		"input", len(records),
		"kept", len(filtered))

	return &FilterResult{
		Records: filtered,
		Metadata: models.FilterMetadata{
			OriginalCount: len(records),
			FilteredCount: len(filtered),
			FilterType:    "transitions",
		},
	}
}

// nearTransition reports whether the ET time of day falls in the
// [transition - before, transition + after] window of any transition hour.
func nearTransition(t time.Time, beforeSeconds, afterSeconds int) bool {
	tod := etSecondOfDay(t)
	for _, hour := range TransitionHours {
		diff := tod - hour*3600
		if -beforeSeconds <= diff && diff <= afterSeconds {
			return true
		}
	}
	return false
}

// Stats summarizes one session's share of a record set.
type Stats struct {
	Count      int     `json:"count"`
	Volume     int64   `json:"volume"`
	Trades     int     `json:"trades"`
	Percentage float64 `json:"percentage"`
}

// Statistics computes per-session record counts, summed volume, trade counts
// and the percentage of matched records. Records without a usable timestamp
// are skipped.
func (c *Classifier) Statistics(records []models.Record) map[Name]Stats {
	stats := map[Name]Stats{Asian: {}, London: {}, NY: {}}

	total := 0
	for _, record := range records {
		ns, ok := record.Timestamp()
		if !ok {
			continue
		}
		name := SessionForNanos(ns)
		s := stats[name]
		s.Count++
		s.Volume += record.Volume()
		if record.IsTrade() {
			s.Trades++
		}
		stats[name] = s
		total++
	}

	for name, s := range stats {
		if total > 0 {
			s.Percentage = float64(s.Count) / float64(total) * 100
		}
		stats[name] = s
	}

	c.logger.Debug("computed session statistics", "records", len(records), "matched", total)
	return stats
}
