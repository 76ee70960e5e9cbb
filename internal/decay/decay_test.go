package decay

import (
	"testing"
	"time"
)

func TestForgettingRiskGrowsWithElapsedDays(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, mastery := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		prev := -1.0
		for days := 0; days <= 60; days += 5 {
			at := now.AddDate(0, 0, days)
			risk := ForgettingRisk(mastery, &now, now, at)
			if risk < 0 || risk > 1 {
				t.Fatalf("risk %f outside [0,1] for mastery=%f days=%d", risk, mastery, days)
			}
			if risk < prev {
				t.Errorf("risk decreased from %f to %f at mastery=%f days=%d", prev, risk, mastery, days)
			}
			prev = risk
		}
	}
}

func TestForgettingRiskFallsWithMastery(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := now.AddDate(0, 0, 10)

	prev := 2.0
	for _, mastery := range []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0} {
		risk := ForgettingRisk(mastery, &now, now, at)
		if risk > prev {
			t.Errorf("risk rose from %f to %f as mastery reached %f", prev, risk, mastery)
		}
		prev = risk
	}
}

func TestForgettingRiskNeverReviewed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Never reviewed decays from now: zero elapsed days at atDate=now.
	risk := ForgettingRisk(0.8, nil, now, now)
	want := 1 - 0.8
	if diff := risk - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("ForgettingRisk(0.8, nil, now, now) = %f, want %f", risk, want)
	}
}

func TestForgettingRiskClockSkew(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 3)

	// atDate before lastReviewedAt must not produce negative elapsed time.
	a := ForgettingRisk(0.6, &future, now, now)
	b := ForgettingRisk(0.6, &now, now, now)
	if a != b {
		t.Errorf("negative elapsed days not clamped: got %f, want %f", a, b)
	}
}

func TestNextReviewAtTiers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		mastery  float64
		wantDays int
	}{
		{0.95, 14},
		{0.85, 14},
		{0.84, 7},
		{0.70, 7},
		{0.69, 3},
		{0.50, 3},
		{0.49, 1},
		{0.0, 1},
	}

	for _, tt := range tests {
		got := NextReviewAt(tt.mastery, now)
		want := now.AddDate(0, 0, tt.wantDays)
		if !got.Equal(want) {
			t.Errorf("NextReviewAt(%f) = %v, want +%dd", tt.mastery, got, tt.wantDays)
		}
	}
}

func TestNextReviewAtMonotonic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	prev := now
	for m := 0.0; m <= 1.0; m += 0.05 {
		got := NextReviewAt(m, now)
		if got.Before(prev) {
			t.Errorf("NextReviewAt(%f) = %v, earlier than previous tier %v", m, got, prev)
		}
		prev = got
	}
}

func TestClamp01(t *testing.T) {
	if got := Clamp01(-0.3); got != 0 {
		t.Errorf("Clamp01(-0.3) = %f, want 0", got)
	}
	if got := Clamp01(1.7); got != 1 {
		t.Errorf("Clamp01(1.7) = %f, want 1", got)
	}
	if got := Clamp01(0.42); got != 0.42 {
		t.Errorf("Clamp01(0.42) = %f, want 0.42", got)
	}
}
