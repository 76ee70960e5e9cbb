// Package decay computes forgetting risk and review scheduling from
// mastery and recency. Pure functions, no side effects; deterministic
// given identical inputs.
package decay

import (
	"math"
	"time"
)

// ForgettingRisk estimates the probability the user has forgotten the
// topic at the given date. Weaker mastery decays faster: the decay rate
// is 0.12 + (1-mastery)*0.25 per day, and retention follows
// mastery * e^(-rate*days). A topic never reviewed decays from now.
func ForgettingRisk(mastery float64, lastReviewedAt *time.Time, now, at time.Time) float64 {
	ref := now
	if lastReviewedAt != nil {
		ref = *lastReviewedAt
	}

	days := at.Sub(ref).Hours() / 24
	if days < 0 {
		days = 0
	}

	rate := 0.12 + (1-mastery)*0.25
	retention := mastery * math.Exp(-rate*days)
	return Clamp01(1 - retention)
}

// NextReviewAt returns the tiered review schedule: stronger mastery
// earns a longer interval.
func NextReviewAt(mastery float64, now time.Time) time.Time {
	var days int
	switch {
	case mastery >= 0.85:
		days = 14
	case mastery >= 0.70:
		days = 7
	case mastery >= 0.50:
		days = 3
	default:
		days = 1
	}
	return now.AddDate(0, 0, days)
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
