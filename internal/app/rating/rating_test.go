package rating

import (
	"testing"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ═══════════════════════════════════════════════════════════════════════════
// Scaling and Rewards
// ═══════════════════════════════════════════════════════════════════════════

func TestApplyStarScaling_Table(t *testing.T) {
	cfg := DefaultConfig()

	// 100 scaled across all five levels.
	want := []int{105, 111, 115, 120, 125}
	for level := 1; level <= 5; level++ {
		got := cfg.ApplyStarScaling(100, level)
		if got != want[level-1] {
			t.Errorf("level %d: got %d, want %d", level, got, want[level-1])
		}
	}
}

func TestApplyStarScaling_MonotonicInLevel(t *testing.T) {
	cfg := DefaultConfig()
	for _, value := range []float64{0.5, 1, 7, 42.3, 100, 999} {
		prev := 0
		for level := 1; level <= 5; level++ {
			got := cfg.ApplyStarScaling(value, level)
			if got < prev {
				t.Errorf("value %v: level %d target %d below level %d target %d", value, level, got, level-1, prev)
			}
			prev = got
		}
	}
}

func TestApplyStarScaling_FloorsAtLevel(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ApplyStarScaling(0, 4); got != 4 {
		t.Errorf("zero metric at level 4: got %d, want 4", got)
	}
}

func TestApplyStarScaling_InvalidLevelClampsToMinimum(t *testing.T) {
	cfg := DefaultConfig()
	for _, level := range []int{-1, 0, 6, 99} {
		if got, want := cfg.ApplyStarScaling(100, level), cfg.ApplyStarScaling(100, 1); got != want {
			t.Errorf("level %d: got %d, want clamped %d", level, got, want)
		}
	}
}

func TestXPReward_Table(t *testing.T) {
	cfg := DefaultConfig()
	want := []int{500, 750, 1125, 1688, 2532}
	for level := 1; level <= 5; level++ {
		if got := cfg.XPReward(level); got != want[level-1] {
			t.Errorf("level %d: got %d, want %d", level, got, want[level-1])
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Rules
// ═══════════════════════════════════════════════════════════════════════════

func TestProgress_Outcomes(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name         string
		current      int
		failures     int
		pct          float64
		warmUp       bool
		wantRating   int
		wantFailures int
		wantReason   domain.RatingReason
	}{
		{"full success promotes", 2, 0, 100, false, 3, 0, domain.ReasonSuccess},
		{"success at cap stays", 5, 0, 100, false, 5, 0, domain.ReasonSuccess},
		{"success clears failures", 3, 1, 100, false, 4, 0, domain.ReasonSuccess},
		{"partial holds", 3, 0, 85, false, 3, 1, domain.ReasonFailure},
		{"partial low edge holds", 3, 0, 70, false, 3, 1, domain.ReasonFailure},
		{"first hard failure holds", 3, 0, 40, false, 3, 1, domain.ReasonFailure},
		{"second hard failure demotes", 3, 1, 40, false, 2, 0, domain.ReasonDoubleFailure},
		{"demotion at floor stays", 1, 1, 0, false, 1, 0, domain.ReasonDoubleFailure},
		{"warm-up never moves", 3, 1, 0, true, 3, 1, domain.ReasonWarmUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Progress(cfg, tt.current, tt.failures, tt.pct, tt.warmUp)
			if out.NewRating != tt.wantRating {
				t.Errorf("rating = %d, want %d", out.NewRating, tt.wantRating)
			}
			if out.NewFailures != tt.wantFailures {
				t.Errorf("failures = %d, want %d", out.NewFailures, tt.wantFailures)
			}
			if out.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", out.Reason, tt.wantReason)
			}
			if out.NewRating < domain.MinRating || out.NewRating > domain.MaxRating {
				t.Errorf("rating %d outside valid range", out.NewRating)
			}
		})
	}
}

func TestProgress_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	a := Progress(cfg, 3, 1, 55, false)
	b := Progress(cfg, 3, 1, 55, false)
	if a != b {
		t.Errorf("identical inputs diverged: %+v vs %+v", a, b)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Service
// ═══════════════════════════════════════════════════════════════════════════

func TestUpdate_PersistsRatingAndHistory(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, DefaultConfig())

	event, err := svc.Update("2026-08", domain.CategoryHabits, 100, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if event.PreviousRating != 1 || event.NewRating != 2 {
		t.Errorf("event %d -> %d, want 1 -> 2", event.PreviousRating, event.NewRating)
	}

	r, err := db.GetRating(domain.CategoryHabits)
	if err != nil {
		t.Fatalf("get rating: %v", err)
	}
	if r.Rating != 2 {
		t.Errorf("stored rating = %d, want 2", r.Rating)
	}

	events, err := db.ListRatingEvents("")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 history event, got %d", len(events))
	}
}

func TestUpdate_DoubleFailureAcrossCycles(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, DefaultConfig())

	// Climb to 3 first.
	if _, err := svc.Update("2026-05", domain.CategoryGoals, 100, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Update("2026-06", domain.CategoryGoals, 100, false); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Two consecutive hard failures demote once.
	if _, err := svc.Update("2026-07", domain.CategoryGoals, 30, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	event, err := svc.Update("2026-08", domain.CategoryGoals, 20, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if event.Reason != domain.ReasonDoubleFailure || event.NewRating != 2 {
		t.Errorf("got %s rating %d, want double_failure rating 2", event.Reason, event.NewRating)
	}

	r, _ := db.GetRating(domain.CategoryGoals)
	if r.ConsecutiveFailures != 0 {
		t.Errorf("failure counter = %d, want reset to 0", r.ConsecutiveFailures)
	}
}

func TestUpdate_UnsupportedCategoryFallback(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, DefaultConfig())

	event, err := svc.Update("2026-08", domain.CategoryMastery, 100, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if event.NewRating != domain.MinRating {
		t.Errorf("extension category rating = %d, want fixed %d", event.NewRating, domain.MinRating)
	}

	r, err := svc.Rating(domain.CategoryMastery)
	if err != nil {
		t.Fatalf("rating: %v", err)
	}
	if r.Rating != domain.MinRating {
		t.Errorf("extension category stays at %d, got %d", domain.MinRating, r.Rating)
	}
}

func TestReport_TrendAndExtremes(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, DefaultConfig())
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	// Habits climbs twice, goals fails hard twice (one demotion attempt at floor).
	months := []string{"2026-07", "2026-08"}
	for _, m := range months {
		if _, err := svc.Update(m, domain.CategoryHabits, 100, false); err != nil {
			t.Fatalf("update habits: %v", err)
		}
	}
	for _, m := range months {
		if _, err := svc.Update(m, domain.CategoryGoals, 10, false); err != nil {
			t.Fatalf("update goals: %v", err)
		}
	}

	report, err := svc.Report(now)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Strongest != domain.CategoryHabits {
		t.Errorf("strongest = %s, want habits", report.Strongest)
	}
	if report.Ratings[domain.CategoryHabits] != 3 {
		t.Errorf("habits rating = %d, want 3", report.Ratings[domain.CategoryHabits])
	}
	// Two successes vs one double failure inside the window.
	if report.Trend != domain.TrendImproving {
		t.Errorf("trend = %s, want improving", report.Trend)
	}
	if report.Overall <= 1 {
		t.Errorf("overall = %v, want above the floor", report.Overall)
	}
}

func TestMonthsBefore(t *testing.T) {
	if got := monthsBefore("2026-08", 12); got != "2025-08" {
		t.Errorf("got %s, want 2025-08", got)
	}
	if got := monthsBefore("garbage", 12); got != "garbage" {
		t.Errorf("malformed input should pass through, got %s", got)
	}
}
