// Package session classifies UTC instants into the three fixed daily trading
// windows (Asian, London, NY) and filters record streams by session
// membership or by proximity to session-boundary transitions.
//
// The windows are defined on US-Eastern wall-clock hours using a fixed UTC-5
// offset. Daylight-saving transitions are deliberately not applied; the
// simplified frame matches the upstream session definitions and must be
// preserved.
package session

import (
	"fmt"
	"time"
)

// Name identifies one of the three trading sessions.
type Name string

const (
	Asian  Name = "Asian"
	London Name = "London"
	NY     Name = "NY"
)

// ErrUnknownSession is returned when a session name outside the fixed set is
// requested.
var ErrUnknownSession = fmt.Errorf("unknown session")

// Session boundaries in ET hours. Asian runs 18:00-02:00 (crossing
// midnight), London 02:00-08:00, NY 08:00-16:00 with the 16:00-18:00
// post-market quiet period attributed to NY so the three sessions partition
// the full day: every hour belongs to exactly one session, start inclusive,
// end exclusive.
const (
	asianStart  = 18
	asianEnd    = 2
	londonStart = 2
	londonEnd   = 8
	nyStart     = 8
	nyClose     = 16
)

// TransitionHours are the ET hours at which one session hands off to the
// next, including the 16:00 NY close and the 18:00 reopen around the
// post-market quiet period.
var TransitionHours = []int{londonStart, nyStart, nyClose, asianStart}

// etOffsetHours is the fixed UTC-to-ET conversion. Intentionally ignores
// daylight saving.
const etOffsetHours = 5

// Names lists the valid session names in day order.
func Names() []Name {
	return []Name{Asian, London, NY}
}

// Parse validates a session name. Unknown names fail with ErrUnknownSession
// before any filtering work begins.
func Parse(s string) (Name, error) {
	switch Name(s) {
	case Asian, London, NY:
		return Name(s), nil
	default:
		return "", fmt.Errorf("%w: %q (valid sessions: Asian, London, NY)", ErrUnknownSession, s)
	}
}

// ParseAll validates a list of session names, failing fast on the first
// unknown name.
func ParseAll(names []string) ([]Name, error) {
	parsed := make([]Name, 0, len(names))
	for _, s := range names {
		name, err := Parse(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, name)
	}
	return parsed, nil
}

// ETHour converts a UTC instant to its hour-of-day in the fixed ET frame.
// This is the single conversion path for all session arithmetic.
func ETHour(t time.Time) int {
	return (t.UTC().Hour() - etOffsetHours + 24) % 24
}

// etSecondOfDay returns the ET wall-clock time of day in seconds.
func etSecondOfDay(t time.Time) int {
	u := t.UTC()
	return ETHour(t)*3600 + u.Minute()*60 + u.Second()
}

// SessionFor classifies a UTC instant into exactly one session.
func SessionFor(t time.Time) Name {
	return sessionForHour(ETHour(t))
}

// SessionForNanos classifies a nanosecond epoch timestamp.
func SessionForNanos(ns int64) Name {
	return SessionFor(time.Unix(0, ns).UTC())
}

func sessionForHour(hour int) Name {
	switch {
	case hour >= asianStart || hour < asianEnd:
		return Asian
	case hour >= londonStart && hour < londonEnd:
		return London
	default:
		return NY
	}
}

// InSession reports whether a UTC instant falls inside the named session.
// Membership is defined by classification, so the three sessions are
// pairwise disjoint and jointly cover the day.
func InSession(t time.Time, name Name) bool {
	return SessionFor(t) == name
}
