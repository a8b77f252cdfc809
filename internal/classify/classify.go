// Package classify holds the pure predicates that decide whether an entity
// is a purge candidate: inactive status AND no recent activity.
package classify

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bgilleran-port/port-tsm-scripts/internal/port"
)

// inactiveStatuses is the fixed vocabulary of statuses considered inactive,
// matched case-insensitively.
var inactiveStatuses = []string{"inactive", "disabled"}

// Classifier decides purge eligibility. It performs no I/O beyond warning
// logs for unparseable timestamps.
type Classifier struct {
	// ThresholdDays is the inactivity window; an entity whose last activity
	// is strictly older than now−ThresholdDays lacks recent activity.
	ThresholdDays int

	// StaleWhenUnparseable controls the policy for missing or unparseable
	// activity timestamps. True (the default) treats such records as stale,
	// which makes them deletion candidates once their status also matches.
	StaleWhenUnparseable bool

	// Now is the clock, injectable for tests.
	Now func() time.Time

	logger zerolog.Logger
}

// New creates a Classifier with the stale-when-unparseable policy enabled.
func New(thresholdDays int, logger zerolog.Logger) *Classifier {
	return &Classifier{
		ThresholdDays:        thresholdDays,
		StaleWhenUnparseable: true,
		Now:                  time.Now,
		logger:               logger.With().Str("component", "classify").Logger(),
	}
}

// IsInactiveStatus reports whether the entity's status, case-insensitively,
// is one of the inactive spellings. properties.status wins over the legacy
// top-level field.
func (c *Classifier) IsInactiveStatus(e *port.Entity) bool {
	status := strings.ToLower(strings.TrimSpace(e.Status()))
	for _, s := range inactiveStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// LacksRecentActivity reports whether the entity's last activity (updatedAt,
// falling back to createdAt) is strictly older than now−ThresholdDays.
// Missing or unparseable timestamps resolve to StaleWhenUnparseable with a
// logged warning; they never abort the run.
func (c *Classifier) LacksRecentActivity(e *port.Entity) bool {
	raw := e.LastActivity()
	if raw == "" {
		c.logger.Warn().
			Str("identifier", e.Identifier).
			Bool("treated_as_stale", c.StaleWhenUnparseable).
			Msg("entity has no activity timestamp")
		return c.StaleWhenUnparseable
	}

	last, err := parseTimestamp(raw)
	if err != nil {
		c.logger.Warn().
			Str("identifier", e.Identifier).
			Str("timestamp", raw).
			Err(err).
			Bool("treated_as_stale", c.StaleWhenUnparseable).
			Msg("could not parse activity timestamp")
		return c.StaleWhenUnparseable
	}

	cutoff := c.Now().AddDate(0, 0, -c.ThresholdDays)
	return last.Before(cutoff)
}

// Eligible reports whether the entity is a purge candidate: both predicates
// must hold.
func (c *Classifier) Eligible(e *port.Entity) bool {
	return c.IsInactiveStatus(e) && c.LacksRecentActivity(e)
}

// parseTimestamp parses an ISO-8601 timestamp in either its date-time form
// (fractional seconds and zone suffix discarded, not converted) or as a bare
// calendar date.
func parseTimestamp(s string) (time.Time, error) {
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return time.Parse("2006-01-02", s)
	}

	clock := s[i+1:]
	if cut := strings.IndexAny(clock, ".+-Z"); cut >= 0 {
		clock = clock[:cut]
	}
	return time.Parse("2006-01-02T15:04:05", s[:i+1]+clock)
}
