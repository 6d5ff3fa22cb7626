package scheduler

import (
	"testing"
	"time"
)

func TestParseDailySpec(t *testing.T) {
	t.Parallel()

	hour, minute, err := parseDailySpec("30 6 * * *")
	if err != nil {
		t.Fatalf("parseDailySpec error: %v", err)
	}
	if hour != 6 || minute != 30 {
		t.Fatalf("expected 06:30, got %02d:%02d", hour, minute)
	}

	for _, spec := range []string{"", "61 6 * * *", "0 24 * * *", "0 6 * *", "a b * * *"} {
		if _, _, err := parseDailySpec(spec); err == nil {
			t.Fatalf("expected error for spec %q", spec)
		}
	}
}

func TestUntilNext(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("0 6 * * *", time.UTC)

	before := time.Date(2026, time.August, 20, 5, 0, 0, 0, time.UTC)
	if got := sched.untilNext(before); got != time.Hour {
		t.Fatalf("expected 1h wait, got %v", got)
	}

	after := time.Date(2026, time.August, 20, 7, 0, 0, 0, time.UTC)
	if got := sched.untilNext(after); got != 23*time.Hour {
		t.Fatalf("expected 23h wait, got %v", got)
	}
}

func TestUntilNextFallsBackForBadSpec(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("whenever", time.UTC)
	if got := sched.untilNext(time.Now()); got != 24*time.Hour {
		t.Fatalf("expected 24h fallback, got %v", got)
	}
}
