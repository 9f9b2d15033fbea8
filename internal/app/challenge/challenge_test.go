package challenge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/habitloop/habitloop/internal/app/baseline"
	"github.com/habitloop/habitloop/internal/app/rating"
	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/cache"
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

func testGenerator(t *testing.T, db *sqlite.DB, now time.Time) *Generator {
	t.Helper()
	agg := baseline.NewAggregator(db, cache.New(0), 31)
	g := NewGenerator(db, agg, rating.DefaultConfig())
	g.now = func() time.Time { return now }
	return g
}

// seedActivity writes n active days ending the day before `end`.
func seedActivity(t *testing.T, db *sqlite.DB, end time.Time, n int, rec domain.DailyActivityRecord) {
	t.Helper()
	for i := 1; i <= n; i++ {
		r := rec
		r.Day = end.AddDate(0, 0, -i).Format(domain.DayFormat)
		if err := db.UpsertDailyActivity(r); err != nil {
			t.Fatalf("seed day %s: %v", r.Day, err)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Category Selection
// ═══════════════════════════════════════════════════════════════════════════

func TestSelectCategory_PrefersLowRated(t *testing.T) {
	ratings := map[domain.Category]int{
		domain.CategoryHabits:      5,
		domain.CategoryJournal:     1,
		domain.CategoryGoals:       5,
		domain.CategoryConsistency: 5,
	}
	got := SelectCategory(ratings, nil, "", false)
	if got != domain.CategoryJournal {
		t.Errorf("got %s, want journal (lowest rated)", got)
	}
}

func TestSelectCategory_NeverRepeatsPrior(t *testing.T) {
	ratings := map[domain.Category]int{
		domain.CategoryHabits:      1,
		domain.CategoryJournal:     5,
		domain.CategoryGoals:       5,
		domain.CategoryConsistency: 5,
	}
	got := SelectCategory(ratings, nil, domain.CategoryHabits, true)
	if got == domain.CategoryHabits {
		t.Error("prior category must not repeat when an alternative exists")
	}
}

func TestSelectCategory_DeterministicTieBreak(t *testing.T) {
	ratings := map[domain.Category]int{
		domain.CategoryHabits:      3,
		domain.CategoryJournal:     3,
		domain.CategoryGoals:       3,
		domain.CategoryConsistency: 3,
	}
	for i := 0; i < 5; i++ {
		if got := SelectCategory(ratings, nil, "", false); got != domain.CategoryHabits {
			t.Fatalf("tie should break to first category in stable order, got %s", got)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Template Selection
// ═══════════════════════════════════════════════════════════════════════════

func TestSelectTemplate_FiltersByLevelAndRecency(t *testing.T) {
	catalog := Catalog()

	// Level 1 excludes the high-level templates.
	tmpl, err := SelectTemplate(catalog, domain.CategoryHabits, nil, 1, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if tmpl.MinLevel > 1 {
		t.Errorf("selected %s with min level %d for a level-1 user", tmpl.ID, tmpl.MinLevel)
	}
	if tmpl.FirstMonth {
		t.Error("regular selection must never pick the first-month template")
	}

	// Excluding the winner forces the next priority.
	second, err := SelectTemplate(catalog, domain.CategoryHabits, nil, 1, []string{tmpl.ID})
	if err != nil {
		t.Fatalf("select with exclusion: %v", err)
	}
	if second.ID == tmpl.ID {
		t.Errorf("recently used template %s was repeated", tmpl.ID)
	}
}

func TestSelectTemplate_RecencyYieldsWhenPoolEmpties(t *testing.T) {
	catalog := Catalog()

	// Exclude every habits template: exclusion must yield, not error.
	var all []string
	for _, tmpl := range catalog {
		if tmpl.Category == domain.CategoryHabits {
			all = append(all, tmpl.ID)
		}
	}
	tmpl, err := SelectTemplate(catalog, domain.CategoryHabits, nil, 1, all)
	if err != nil {
		t.Fatalf("expected fallback to full pool, got %v", err)
	}
	if tmpl.Category != domain.CategoryHabits {
		t.Errorf("got category %s", tmpl.Category)
	}
}

func TestSelectTemplate_EmptyCatalogIsError(t *testing.T) {
	_, err := SelectTemplate(nil, domain.CategoryHabits, nil, 1, nil)
	if !errors.Is(err, domain.ErrEmptyCatalog) {
		t.Errorf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestCatalog_EveryCoreCategoryCovered(t *testing.T) {
	catalog := Catalog()
	for _, c := range domain.CoreCategories() {
		var levels []int
		for _, tmpl := range catalog {
			if tmpl.Category == c && !tmpl.FirstMonth {
				levels = append(levels, tmpl.MinLevel)
			}
		}
		if len(levels) < 3 {
			t.Errorf("category %s has only %d templates", c, len(levels))
		}
		minLevel := levels[0]
		for _, l := range levels {
			if l < minLevel {
				minLevel = l
			}
		}
		if minLevel > 1 {
			t.Errorf("category %s has no level-1 template", c)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Generation
// ═══════════════════════════════════════════════════════════════════════════

func TestGenerate_FirstMonthOverride(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	g := testGenerator(t, db, now)

	// Sparse history: first-month rules apply.
	seedActivity(t, db, now, 3, domain.DailyActivityRecord{HabitCompletions: 1})

	res, err := g.Generate(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ch := res.Challenge
	if ch.TemplateID != FirstMonthTemplateID {
		t.Errorf("template = %s, want %s", ch.TemplateID, FirstMonthTemplateID)
	}
	if ch.StarLevel != 1 {
		t.Errorf("star level = %d, want 1", ch.StarLevel)
	}
	if ch.XPReward != 400 {
		t.Errorf("xp = %d, want reduced first-month 400", ch.XPReward)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	g := testGenerator(t, db, now)

	first, err := g.Generate(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := g.Generate(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	if second.Challenge.ID != first.Challenge.ID {
		t.Errorf("second call created a new challenge: %s vs %s", second.Challenge.ID, first.Challenge.ID)
	}
	if second.Elapsed != 0 {
		t.Errorf("repeat call elapsed = %v, want 0", second.Elapsed)
	}
	if len(second.Warnings) == 0 {
		t.Error("repeat call should warn that the challenge exists")
	}
}

func TestGenerate_FreezesBaseline(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	g := testGenerator(t, db, now)

	seedActivity(t, db, now, 20, domain.DailyActivityRecord{
		HabitCompletions: 2, JournalEntries: 1, GoalProgressEvents: 1,
	})
	if err := db.SaveBaseline("2026-07", domain.UserActivityBaseline{WindowDays: 31}); err != nil {
		t.Fatalf("seed prior baseline: %v", err)
	}

	res, err := g.Generate(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Challenge.Baseline == nil {
		t.Fatal("challenge must carry a frozen baseline snapshot")
	}
	frozen := res.Challenge.Baseline.TotalHabitCompletions

	// Later activity must not change the stored snapshot.
	seedActivity(t, db, now.AddDate(0, 0, 5), 3, domain.DailyActivityRecord{HabitCompletions: 9})
	got, err := db.GetChallenge(res.Challenge.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Baseline.TotalHabitCompletions != frozen {
		t.Errorf("frozen baseline changed: %d vs %d", got.Baseline.TotalHabitCompletions, frozen)
	}

	saved, err := db.GetBaseline("2026-08")
	if err != nil {
		t.Fatalf("get baseline: %v", err)
	}
	if saved == nil {
		t.Error("generation must persist the month's baseline snapshot")
	}
}

func TestGenerate_VarietyAcrossMonths(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	g := testGenerator(t, db, now)

	seedActivity(t, db, now, 20, domain.DailyActivityRecord{
		HabitCompletions: 2, JournalEntries: 1, GoalProgressEvents: 1,
	})
	if err := db.SaveBaseline("2026-06", domain.UserActivityBaseline{WindowDays: 31}); err != nil {
		t.Fatalf("seed prior baseline: %v", err)
	}

	first, err := g.Generate(context.Background(), "2026-07")
	if err != nil {
		t.Fatalf("generate july: %v", err)
	}
	second, err := g.Generate(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("generate august: %v", err)
	}
	if first.Challenge.Category == second.Challenge.Category {
		t.Errorf("consecutive months repeated category %s", first.Challenge.Category)
	}
}

func TestTargetMethods(t *testing.T) {
	g := testGenerator(t, testDB(t), time.Now())
	tmpl := domain.ChallengeTemplate{
		BaselineMetric: domain.MetricHabitsTotal,
		FallbackTarget: 30, MinTarget: 10,
	}

	// No baseline at all: fallback constant.
	target, method := g.target(tmpl, nil, 2)
	if method != domain.MethodFallback || target != 30 {
		t.Errorf("nil baseline: got %d via %s, want 30 via fallback", target, method)
	}

	// Healthy metric: scaled.
	b := &domain.UserActivityBaseline{TotalHabitCompletions: 100}
	target, method = g.target(tmpl, b, 2)
	if method != domain.MethodBaseline || target != 111 {
		t.Errorf("scaled: got %d via %s, want 111 via baseline", target, method)
	}

	// Tiny metric: minimum clamp binds.
	b = &domain.UserActivityBaseline{TotalHabitCompletions: 3}
	target, method = g.target(tmpl, b, 1)
	if method != domain.MethodMinimum || target != 10 {
		t.Errorf("clamped: got %d via %s, want 10 via minimum", target, method)
	}
}

func TestValidate_FlagsSilentFeatures(t *testing.T) {
	vr := Validate(nil)
	if vr.IsValid || len(vr.MissingMetrics) != 3 {
		t.Errorf("nil baseline: %+v", vr)
	}

	vr = Validate(&domain.UserActivityBaseline{HabitActiveDays: 5, JournalActiveDays: 3})
	if vr.IsValid {
		t.Error("missing goal signal should invalidate")
	}
	if len(vr.MissingMetrics) != 1 || vr.MissingMetrics[0] != string(domain.CategoryGoals) {
		t.Errorf("missing = %v, want [goals]", vr.MissingMetrics)
	}

	vr = Validate(&domain.UserActivityBaseline{HabitActiveDays: 5, JournalActiveDays: 3, GoalActiveDays: 1})
	if !vr.IsValid {
		t.Errorf("all features active should validate: %+v", vr)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Tracking
// ═══════════════════════════════════════════════════════════════════════════

func TestSync_RecomputesFromLog(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(db)
	tracker.now = func() time.Time { return now }

	ch := domain.MonthlyChallenge{
		ID: "ch-1", Month: "2026-08", Category: domain.CategoryHabits,
		TemplateID: "habits_monthly_volume", Title: "t", StarLevel: 1, XPReward: 500,
		Status: domain.ChallengeActive, TargetMethod: domain.MethodFallback,
		Requirements: []domain.ChallengeRequirement{{
			Type: domain.RequirementTotal, TrackingKey: TrackHabitCompletions, Target: 10,
			Milestones: []float64{0.25, 0.5, 0.75}, MilestonesFired: []bool{false, false, false},
		}},
		CreatedAt: now,
	}
	if err := db.InsertChallenge(ch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	for day := 10; day <= 12; day++ {
		err := db.UpsertDailyActivity(domain.DailyActivityRecord{
			Day: time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC).Format(domain.DayFormat), HabitCompletions: 2,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, fired, err := tracker.Sync(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got.Requirements[0].Current != 6 {
		t.Errorf("current = %d, want 6", got.Requirements[0].Current)
	}
	if got.Progress != 60 {
		t.Errorf("progress = %v, want 60", got.Progress)
	}
	// 25% and 50% milestones crossed, 75% not yet.
	if len(fired) != 2 {
		t.Errorf("milestones fired = %d, want 2", len(fired))
	}
	if !got.Requirements[0].MilestonesFired[0] || got.Requirements[0].MilestonesFired[2] {
		t.Errorf("milestone flags = %v", got.Requirements[0].MilestonesFired)
	}

	// A second sync must not re-fire milestones.
	_, fired, err = tracker.Sync(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if len(fired) != 0 {
		t.Errorf("milestones re-fired: %v", fired)
	}
}

func TestSync_CompletesWhenAllMet(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(db)
	tracker.now = func() time.Time { return now }

	ch := domain.MonthlyChallenge{
		ID: "ch-1", Month: "2026-08", Category: domain.CategoryJournal,
		TemplateID: "journal_monthly_entries", Title: "t", StarLevel: 1, XPReward: 500,
		Status: domain.ChallengeActive, TargetMethod: domain.MethodFallback,
		Requirements: []domain.ChallengeRequirement{{
			Type: domain.RequirementTotal, TrackingKey: TrackJournalEntries, Target: 3,
		}},
		CreatedAt: now,
	}
	if err := db.InsertChallenge(ch); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.UpsertDailyActivity(domain.DailyActivityRecord{Day: "2026-08-14", JournalEntries: 4}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, _, err := tracker.Sync(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got.Status != domain.ChallengeCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.CompletedAt.IsZero() {
		t.Error("completion time not set")
	}
}

func TestSync_NoChallengeIsNoop(t *testing.T) {
	tracker := NewTracker(testDB(t))
	ch, fired, err := tracker.Sync(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if ch != nil || fired != nil {
		t.Errorf("expected no-op, got %+v %+v", ch, fired)
	}
}

func TestTally_Keys(t *testing.T) {
	recs := []domain.DailyActivityRecord{
		{Day: "2026-08-01", HabitCompletions: 3, UniqueHabits: 2, JournalEntries: 1, JournalChars: 200, GoalProgressEvents: 1},
		{Day: "2026-08-02", UniqueHabits: 0, JournalEntries: 2, JournalChars: 900, GoalsCompleted: 1},
		{Day: "2026-08-03", HabitCompletions: 1, UniqueHabits: 4},
	}

	tests := []struct {
		key  string
		want int
	}{
		{TrackHabitCompletions, 4},
		{TrackUniqueHabits, 4}, // Max daily breadth
		{TrackHabitDays, 2},
		{TrackJournalEntries, 3},
		{TrackJournalChars, 900}, // Deepest single day
		{TrackJournalDays, 2},
		{TrackGoalEvents, 1},
		{TrackGoalsCompleted, 1},
		{TrackActiveDays, 3},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := tally(recs, tt.key); got != tt.want {
				t.Errorf("tally(%s) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}
